package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck/internal/domain/alert"
	"github.com/opsdeck/opsdeck/internal/domain/cache"
	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

const resourceLogs = "logs"

// maxBulkLogs caps one bulk ingest request.
const maxBulkLogs = 1000

// LogService ingests and queries application logs, evaluating alert rules
// on the ingest path.
type LogService struct {
	store     monitor.LogStore
	services  monitor.ServiceStore
	incidents *IncidentService
	alerts    *alert.Engine
	cache     *cache.Cache
	logger    *slog.Logger
}

// NewLogService creates a LogService. alerts may be nil when no rules are
// configured; incidents may be nil to disable auto-opening.
func NewLogService(store monitor.LogStore, services monitor.ServiceStore, incidents *IncidentService, alerts *alert.Engine, c *cache.Cache, logger *slog.Logger) *LogService {
	return &LogService{
		store:     store,
		services:  services,
		incidents: incidents,
		alerts:    alerts,
		cache:     c,
		logger:    logger,
	}
}

// List returns log entries matching filter, reading through the cache.
func (s *LogService) List(ctx context.Context, filter monitor.LogFilter, page monitor.Page) ([]monitor.LogEntry, int, error) {
	key := cache.ListKey(resourceLogs, cache.ListParams{
		Page:     page.Number,
		PageSize: page.Size,
		Filters: map[string]string{
			"service_id": filter.ServiceID,
			"level":      string(filter.Level),
		},
	})
	result, err := cache.GetOrComputeJSON(ctx, s.cache, key, cache.TTLList, func(ctx context.Context) (listPage[monitor.LogEntry], error) {
		items, total, err := s.store.ListLogs(ctx, filter, page)
		return listPage[monitor.LogEntry]{Items: items, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return result.Items, result.Total, nil
}

// Get returns one log entry by ID, reading through the cache.
func (s *LogService) Get(ctx context.Context, id string) (*monitor.LogEntry, error) {
	return cache.GetOrComputeJSON(ctx, s.cache, cache.DetailKey(resourceLogs, id), cache.TTLDetail,
		func(ctx context.Context) (*monitor.LogEntry, error) {
			return s.store.GetLog(ctx, id)
		})
}

// Ingest stores one log entry and runs it through the alert rules.
func (s *LogService) Ingest(ctx context.Context, entry *monitor.LogEntry) (*monitor.LogEntry, error) {
	if err := s.prepare(entry); err != nil {
		return nil, err
	}
	if err := s.store.CreateLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("create log: %w", err)
	}
	s.invalidate(ctx, entry.ID)
	s.evaluateAlerts(ctx, entry)
	return entry, nil
}

// IngestBatch stores a batch of entries in one transaction, then runs each
// through the alert rules.
func (s *LogService) IngestBatch(ctx context.Context, entries []monitor.LogEntry) ([]monitor.LogEntry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty log batch", ErrInvalidInput)
	}
	if len(entries) > maxBulkLogs {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit %d", ErrInvalidInput, len(entries), maxBulkLogs)
	}
	for i := range entries {
		if err := s.prepare(&entries[i]); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	if err := s.store.CreateLogs(ctx, entries); err != nil {
		return nil, fmt.Errorf("create logs: %w", err)
	}
	s.cache.Invalidate(ctx, cache.ListFamily(resourceLogs))
	for i := range entries {
		s.evaluateAlerts(ctx, &entries[i])
	}
	return entries, nil
}

// Delete removes a log entry.
func (s *LogService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteLog(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *LogService) prepare(entry *monitor.LogEntry) error {
	if entry.Message == "" {
		return fmt.Errorf("%w: log message is required", ErrInvalidInput)
	}
	if entry.Level == "" {
		entry.Level = monitor.LevelInfo
	}
	entry.ID = uuid.New().String()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return nil
}

// evaluateAlerts matches the entry against the rule set and opens an
// incident per fired rule. Alerting failures are logged, never surfaced to
// the ingest caller.
func (s *LogService) evaluateAlerts(ctx context.Context, entry *monitor.LogEntry) {
	if s.alerts == nil || s.incidents == nil {
		return
	}

	serviceName := entry.ServiceID
	if svc, err := s.services.GetService(ctx, entry.ServiceID); err == nil {
		serviceName = svc.Name
	}

	for _, rule := range s.alerts.Match(entry, serviceName) {
		desc := fmt.Sprintf("Alert rule %q fired on log entry %s: %s", rule.Name, entry.ID, entry.Message)
		inc, err := s.incidents.OpenForAlert(ctx, entry.ServiceID, rule.Name, desc, rule.Severity)
		if err != nil {
			s.logger.Warn("alert rule fired but incident could not be opened",
				"rule", rule.Name, "service_id", entry.ServiceID, "error", err)
			continue
		}
		s.logger.Info("alert rule fired",
			"rule", rule.Name, "incident_id", inc.ID, "service_id", entry.ServiceID)
	}
}

func (s *LogService) invalidate(ctx context.Context, id string) {
	s.cache.Invalidate(ctx,
		cache.DetailKey(resourceLogs, id),
		cache.ListFamily(resourceLogs),
	)
}
