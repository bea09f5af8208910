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

const resourceIncidents = "incidents"

// IncidentService manages incident lifecycle.
type IncidentService struct {
	store    monitor.IncidentStore
	services monitor.ServiceStore
	cache    *cache.Cache
	logger   *slog.Logger
}

// NewIncidentService creates an IncidentService.
func NewIncidentService(store monitor.IncidentStore, services monitor.ServiceStore, c *cache.Cache, logger *slog.Logger) *IncidentService {
	return &IncidentService{store: store, services: services, cache: c, logger: logger}
}

// List returns incidents matching filter, reading through the cache.
func (s *IncidentService) List(ctx context.Context, filter monitor.IncidentFilter, page monitor.Page) ([]monitor.Incident, int, error) {
	key := cache.ListKey(resourceIncidents, cache.ListParams{
		Page:     page.Number,
		PageSize: page.Size,
		Filters: map[string]string{
			"service_id": filter.ServiceID,
			"status":     string(filter.Status),
			"severity":   string(filter.Severity),
		},
	})
	result, err := cache.GetOrComputeJSON(ctx, s.cache, key, cache.TTLList, func(ctx context.Context) (listPage[monitor.Incident], error) {
		items, total, err := s.store.ListIncidents(ctx, filter, page)
		return listPage[monitor.Incident]{Items: items, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return result.Items, result.Total, nil
}

// Get returns one incident by ID, reading through the cache.
func (s *IncidentService) Get(ctx context.Context, id string) (*monitor.Incident, error) {
	return cache.GetOrComputeJSON(ctx, s.cache, cache.DetailKey(resourceIncidents, id), cache.TTLDetail,
		func(ctx context.Context) (*monitor.Incident, error) {
			return s.store.GetIncident(ctx, id)
		})
}

// Create opens a new incident against a known service.
func (s *IncidentService) Create(ctx context.Context, inc *monitor.Incident) (*monitor.Incident, error) {
	if inc.Title == "" {
		return nil, fmt.Errorf("%w: incident title is required", ErrInvalidInput)
	}
	if _, err := s.services.GetService(ctx, inc.ServiceID); err != nil {
		return nil, fmt.Errorf("incident service %s: %w", inc.ServiceID, err)
	}

	inc.ID = uuid.New().String()
	inc.ReportedAt = time.Now().UTC()
	inc.ResolvedAt = nil
	if inc.Status == "" {
		inc.Status = monitor.IncidentOpen
	}
	if inc.Severity == "" {
		inc.Severity = monitor.SeverityMedium
	}

	if err := s.store.CreateIncident(ctx, inc); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	s.invalidate(ctx, inc.ID)
	s.logger.Info("incident opened",
		"id", inc.ID, "service_id", inc.ServiceID, "severity", inc.Severity)
	return inc, nil
}

// Update modifies an existing incident. Transitioning into resolved stamps
// ResolvedAt; transitioning back out clears it.
func (s *IncidentService) Update(ctx context.Context, id string, inc *monitor.Incident) (*monitor.Incident, error) {
	existing, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Title = inc.Title
	existing.Description = inc.Description
	if inc.Severity != "" {
		existing.Severity = inc.Severity
	}
	if inc.Status != "" && inc.Status != existing.Status {
		if inc.Status == monitor.IncidentResolved {
			now := time.Now().UTC()
			existing.ResolvedAt = &now
		} else {
			existing.ResolvedAt = nil
		}
		existing.Status = inc.Status
	}

	if err := s.store.UpdateIncident(ctx, existing); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	s.invalidate(ctx, id)
	return existing, nil
}

// Delete removes an incident and its actions.
func (s *IncidentService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteIncident(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// OpenForAlert opens an incident from a matched alert rule, deduplicated
// against an existing open incident with the same title on the service.
func (s *IncidentService) OpenForAlert(ctx context.Context, serviceID, title, description string, severity monitor.Severity) (*monitor.Incident, error) {
	open, _, err := s.store.ListIncidents(ctx, monitor.IncidentFilter{
		ServiceID: serviceID,
		Status:    monitor.IncidentOpen,
	}, monitor.Page{Size: 200})
	if err != nil {
		return nil, fmt.Errorf("list open incidents: %w", err)
	}
	for i := range open {
		if open[i].Title == title {
			return &open[i], nil
		}
	}
	return s.Create(ctx, &monitor.Incident{
		ServiceID:   serviceID,
		Title:       title,
		Description: description,
		Severity:    severity,
	})
}

func (s *IncidentService) invalidate(ctx context.Context, id string) {
	s.cache.Invalidate(ctx,
		cache.DetailKey(resourceIncidents, id),
		cache.ListFamily(resourceIncidents),
	)
}
