package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck/internal/domain/cache"
	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

const resourceDeployments = "deployments"

// DeploymentService records service rollouts.
type DeploymentService struct {
	store    monitor.DeploymentStore
	services monitor.ServiceStore
	cache    *cache.Cache
	logger   *slog.Logger
}

// NewDeploymentService creates a DeploymentService.
func NewDeploymentService(store monitor.DeploymentStore, services monitor.ServiceStore, c *cache.Cache, logger *slog.Logger) *DeploymentService {
	return &DeploymentService{store: store, services: services, cache: c, logger: logger}
}

// List returns deployments matching filter, reading through the cache.
func (s *DeploymentService) List(ctx context.Context, filter monitor.DeploymentFilter, page monitor.Page) ([]monitor.Deployment, int, error) {
	key := cache.ListKey(resourceDeployments, cache.ListParams{
		Page:     page.Number,
		PageSize: page.Size,
		Filters: map[string]string{
			"service_id": filter.ServiceID,
			"status":     string(filter.Status),
		},
	})
	result, err := cache.GetOrComputeJSON(ctx, s.cache, key, cache.TTLList, func(ctx context.Context) (listPage[monitor.Deployment], error) {
		items, total, err := s.store.ListDeployments(ctx, filter, page)
		return listPage[monitor.Deployment]{Items: items, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return result.Items, result.Total, nil
}

// Get returns one deployment by ID, reading through the cache.
func (s *DeploymentService) Get(ctx context.Context, id string) (*monitor.Deployment, error) {
	return cache.GetOrComputeJSON(ctx, s.cache, cache.DetailKey(resourceDeployments, id), cache.TTLDetail,
		func(ctx context.Context) (*monitor.Deployment, error) {
			return s.store.GetDeployment(ctx, id)
		})
}

// Create records the start of a rollout.
func (s *DeploymentService) Create(ctx context.Context, d *monitor.Deployment) (*monitor.Deployment, error) {
	if d.Version == "" {
		return nil, fmt.Errorf("%w: deployment version is required", ErrInvalidInput)
	}
	if _, err := s.services.GetService(ctx, d.ServiceID); err != nil {
		return nil, fmt.Errorf("deployment service %s: %w", d.ServiceID, err)
	}

	d.ID = uuid.New().String()
	d.StartedAt = time.Now().UTC()
	d.FinishedAt = nil
	if d.Status == "" {
		d.Status = monitor.DeploymentInProgress
	}

	if err := s.store.CreateDeployment(ctx, d); err != nil {
		return nil, fmt.Errorf("create deployment: %w", err)
	}
	s.invalidate(ctx, d.ID)
	s.logger.Info("deployment recorded",
		"id", d.ID, "service_id", d.ServiceID, "version", d.Version)
	return d, nil
}

// Update moves a deployment through its lifecycle. Reaching a terminal
// status stamps FinishedAt.
func (s *DeploymentService) Update(ctx context.Context, id string, d *monitor.Deployment) (*monitor.Deployment, error) {
	existing, err := s.store.GetDeployment(ctx, id)
	if err != nil {
		return nil, err
	}

	if d.Version != "" {
		existing.Version = d.Version
	}
	if d.DeployedBy != "" {
		existing.DeployedBy = d.DeployedBy
	}
	if d.Status != "" && d.Status != existing.Status {
		existing.Status = d.Status
		if isTerminalDeployment(d.Status) && existing.FinishedAt == nil {
			now := time.Now().UTC()
			existing.FinishedAt = &now
		}
	}

	if err := s.store.UpdateDeployment(ctx, existing); err != nil {
		return nil, fmt.Errorf("update deployment: %w", err)
	}
	s.invalidate(ctx, id)
	return existing, nil
}

// Delete removes a deployment record.
func (s *DeploymentService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteDeployment(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func isTerminalDeployment(status monitor.DeploymentStatus) bool {
	switch status {
	case monitor.DeploymentSucceeded, monitor.DeploymentFailed, monitor.DeploymentRolledBack:
		return true
	}
	return false
}

func (s *DeploymentService) invalidate(ctx context.Context, id string) {
	s.cache.Invalidate(ctx,
		cache.DetailKey(resourceDeployments, id),
		cache.ListFamily(resourceDeployments),
	)
}
