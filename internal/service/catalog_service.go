// Package service contains application services.
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

// resourceServices is the cache namespace for monitored services.
const resourceServices = "services"

// listPage is the cached shape of a list query: the rows plus the total
// matching count, so pagination metadata survives a cache hit.
type listPage[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// CatalogService manages the catalog of monitored services.
type CatalogService struct {
	store  monitor.ServiceStore
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(store monitor.ServiceStore, c *cache.Cache, logger *slog.Logger) *CatalogService {
	return &CatalogService{store: store, cache: c, logger: logger}
}

// List returns services matching filter, reading through the cache.
func (s *CatalogService) List(ctx context.Context, filter monitor.ServiceFilter, page monitor.Page) ([]monitor.Service, int, error) {
	key := cache.ListKey(resourceServices, cache.ListParams{
		Page:     page.Number,
		PageSize: page.Size,
		Filters: map[string]string{
			"status": string(filter.Status),
			"name":   filter.Name,
		},
	})
	result, err := cache.GetOrComputeJSON(ctx, s.cache, key, cache.TTLList, func(ctx context.Context) (listPage[monitor.Service], error) {
		items, total, err := s.store.ListServices(ctx, filter, page)
		return listPage[monitor.Service]{Items: items, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return result.Items, result.Total, nil
}

// Get returns one service by ID, reading through the cache.
func (s *CatalogService) Get(ctx context.Context, id string) (*monitor.Service, error) {
	return cache.GetOrComputeJSON(ctx, s.cache, cache.DetailKey(resourceServices, id), cache.TTLDetail,
		func(ctx context.Context) (*monitor.Service, error) {
			return s.store.GetService(ctx, id)
		})
}

// Create registers a new service to watch.
func (s *CatalogService) Create(ctx context.Context, svc *monitor.Service) (*monitor.Service, error) {
	if svc.Name == "" || svc.URL == "" {
		return nil, fmt.Errorf("%w: service name and url are required", ErrInvalidInput)
	}
	now := time.Now().UTC()
	svc.ID = uuid.New().String()
	svc.CreatedAt = now
	svc.UpdatedAt = now
	if svc.Status == "" {
		svc.Status = monitor.ServiceOperational
	}

	if err := s.store.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	s.invalidate(ctx, svc.ID)
	s.logger.Info("service registered", "id", svc.ID, "name", svc.Name)
	return svc, nil
}

// Update modifies an existing service.
func (s *CatalogService) Update(ctx context.Context, id string, svc *monitor.Service) (*monitor.Service, error) {
	existing, err := s.store.GetService(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = svc.Name
	existing.URL = svc.URL
	existing.HealthCheckURL = svc.HealthCheckURL
	if svc.Status != "" {
		existing.Status = svc.Status
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateService(ctx, existing); err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}
	s.invalidate(ctx, id)
	return existing, nil
}

// SetStatus records an observed health transition without touching the
// rest of the record. Used by the prober.
func (s *CatalogService) SetStatus(ctx context.Context, id string, status monitor.ServiceStatus) error {
	existing, err := s.store.GetService(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status == status {
		return nil
	}
	existing.Status = status
	existing.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateService(ctx, existing); err != nil {
		return fmt.Errorf("update service status: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// Delete removes a service and its dependent records.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteService(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.logger.Info("service deleted", "id", id)
	return nil
}

// invalidate drops the detail entry and every cached list after a write.
func (s *CatalogService) invalidate(ctx context.Context, id string) {
	s.cache.Invalidate(ctx,
		cache.DetailKey(resourceServices, id),
		cache.ListFamily(resourceServices),
	)
}
