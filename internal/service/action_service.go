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

const resourceActions = "actions"

// ActionService records remediation steps taken against incidents.
type ActionService struct {
	store     monitor.ActionStore
	incidents monitor.IncidentStore
	cache     *cache.Cache
	logger    *slog.Logger
}

// NewActionService creates an ActionService.
func NewActionService(store monitor.ActionStore, incidents monitor.IncidentStore, c *cache.Cache, logger *slog.Logger) *ActionService {
	return &ActionService{store: store, incidents: incidents, cache: c, logger: logger}
}

// List returns actions, optionally narrowed to one incident. The
// per-incident view is cached under a secondary-index key so it can be
// invalidated independently of the global list.
func (s *ActionService) List(ctx context.Context, filter monitor.ActionFilter, page monitor.Page) ([]monitor.Action, int, error) {
	params := cache.ListParams{Page: page.Number, PageSize: page.Size}
	key := cache.ListKey(resourceActions, params)
	if filter.IncidentID != "" {
		key = cache.IndexKey(resourceActions, "incident", filter.IncidentID, params)
	}
	result, err := cache.GetOrComputeJSON(ctx, s.cache, key, cache.TTLList, func(ctx context.Context) (listPage[monitor.Action], error) {
		items, total, err := s.store.ListActions(ctx, filter, page)
		return listPage[monitor.Action]{Items: items, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return result.Items, result.Total, nil
}

// Get returns one action by ID, reading through the cache.
func (s *ActionService) Get(ctx context.Context, id string) (*monitor.Action, error) {
	return cache.GetOrComputeJSON(ctx, s.cache, cache.DetailKey(resourceActions, id), cache.TTLDetail,
		func(ctx context.Context) (*monitor.Action, error) {
			return s.store.GetAction(ctx, id)
		})
}

// Create records an action against a known incident.
func (s *ActionService) Create(ctx context.Context, a *monitor.Action) (*monitor.Action, error) {
	if a.CommandRun == "" {
		return nil, fmt.Errorf("%w: action command is required", ErrInvalidInput)
	}
	if _, err := s.incidents.GetIncident(ctx, a.IncidentID); err != nil {
		return nil, fmt.Errorf("action incident %s: %w", a.IncidentID, err)
	}

	a.ID = uuid.New().String()
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	if err := s.store.CreateAction(ctx, a); err != nil {
		return nil, fmt.Errorf("create action: %w", err)
	}
	s.invalidate(ctx, a.ID, a.IncidentID)
	s.logger.Info("action recorded", "id", a.ID, "incident_id", a.IncidentID)
	return a, nil
}

// Update modifies an action's command or result.
func (s *ActionService) Update(ctx context.Context, id string, a *monitor.Action) (*monitor.Action, error) {
	existing, err := s.store.GetAction(ctx, id)
	if err != nil {
		return nil, err
	}

	if a.CommandRun != "" {
		existing.CommandRun = a.CommandRun
	}
	existing.Result = a.Result
	if a.ExecutedBy != "" {
		existing.ExecutedBy = a.ExecutedBy
	}

	if err := s.store.UpdateAction(ctx, existing); err != nil {
		return nil, fmt.Errorf("update action: %w", err)
	}
	s.invalidate(ctx, id, existing.IncidentID)
	return existing, nil
}

// Delete removes an action record.
func (s *ActionService) Delete(ctx context.Context, id string) error {
	existing, err := s.store.GetAction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAction(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id, existing.IncidentID)
	return nil
}

func (s *ActionService) invalidate(ctx context.Context, id, incidentID string) {
	s.cache.Invalidate(ctx,
		cache.DetailKey(resourceActions, id),
		cache.ListFamily(resourceActions),
		cache.IndexFamily(resourceActions, "incident", incidentID),
	)
}
