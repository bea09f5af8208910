package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
	"github.com/opsdeck/opsdeck/internal/metrics"
	"github.com/opsdeck/opsdeck/internal/port/outbound"
)

// SourceComprehensive requests a full incident-chain analysis instead of a
// single data source.
const SourceComprehensive = "comprehensive"

// ErrNoAnalysisData is returned when the requested source or chain has no
// records to analyze.
var ErrNoAnalysisData = errors.New("no data available for analysis")

// ErrBadAnalysisRequest is returned for requests that cannot be dispatched,
// such as an unknown source or a deep analysis without a starting ID.
var ErrBadAnalysisRequest = errors.New("invalid analysis request")

// AnalyzeRequest describes one analysis invocation.
type AnalyzeRequest struct {
	Source       string            `json:"source"`
	Filters      map[string]string `json:"filters,omitempty"`
	Context      string            `json:"context,omitempty"`
	DeepAnalysis bool              `json:"deepAnalysis,omitempty"`
}

// AnalysisResponse is the result envelope returned to the caller.
type AnalysisResponse struct {
	Timestamp       time.Time `json:"timestamp"`
	Source          string    `json:"source"`
	Analysis        string    `json:"analysis"`
	DataAnalyzed    any       `json:"dataAnalyzed,omitempty"`
	RelatedData     any       `json:"relatedData,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

// unavailableAnalysis is returned in place of a completion when no API key
// is configured. The data fetch still happens, so the caller gets the
// records even without the write-up.
const unavailableAnalysis = "**AI Analysis Unavailable**\n\n" +
	"Groq API key not configured. Data retrieved successfully."

// AnalysisService orchestrates data fetching and LLM-backed analysis.
type AnalysisService struct {
	services    monitor.ServiceStore
	incidents   monitor.IncidentStore
	deployments monitor.DeploymentStore
	logs        monitor.LogStore
	actions     monitor.ActionStore
	llm         outbound.LLMClient
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(
	services monitor.ServiceStore,
	incidents monitor.IncidentStore,
	deployments monitor.DeploymentStore,
	logs monitor.LogStore,
	actions monitor.ActionStore,
	llm outbound.LLMClient,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		services:    services,
		incidents:   incidents,
		deployments: deployments,
		logs:        logs,
		actions:     actions,
		llm:         llm,
		metrics:     m,
		logger:      logger,
	}
}

// Analyze runs one analysis request end to end.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResponse, error) {
	start := time.Now()
	s.metrics.ActiveAnalyses.Inc()
	defer func() {
		s.metrics.ActiveAnalyses.Dec()
		s.metrics.AnalysisDuration.WithLabelValues(req.Source).Observe(time.Since(start).Seconds())
	}()

	comprehensive := req.DeepAnalysis || req.Source == SourceComprehensive

	var (
		prompt  string
		data    any
		related any
	)
	if comprehensive {
		chain, err := s.fetchChain(ctx, req.Filters["logId"], req.Filters["incidentId"])
		if err != nil {
			s.metrics.AnalysisRequests.WithLabelValues(req.Source, "error").Inc()
			return nil, err
		}
		if chain.empty() {
			s.metrics.AnalysisRequests.WithLabelValues(req.Source, "no_data").Inc()
			return nil, fmt.Errorf("%w: no records found for the provided IDs", ErrNoAnalysisData)
		}
		prompt = buildComprehensivePrompt(chain, req.Context)
		data = chain
		related = chain
	} else {
		fetched, err := s.fetchSource(ctx, req.Source, req.Filters)
		if err != nil {
			if errors.Is(err, ErrNoAnalysisData) {
				s.metrics.AnalysisRequests.WithLabelValues(req.Source, "no_data").Inc()
			} else {
				s.metrics.AnalysisRequests.WithLabelValues(req.Source, "error").Inc()
			}
			return nil, err
		}
		encoded, err := json.MarshalIndent(fetched, "", "  ")
		if err != nil {
			s.metrics.AnalysisRequests.WithLabelValues(req.Source, "error").Inc()
			return nil, fmt.Errorf("encode analysis data: %w", err)
		}
		prompt = buildAnalysisPrompt(req.Source, string(encoded), req.Context)
		data = fetched
	}

	source := req.Source
	if comprehensive {
		source = SourceComprehensive
	}

	if !s.llm.Configured() {
		s.metrics.AnalysisRequests.WithLabelValues(req.Source, "unavailable").Inc()
		return &AnalysisResponse{
			Timestamp:       time.Now().UTC(),
			Source:          source,
			Analysis:        unavailableAnalysis,
			DataAnalyzed:    data,
			RelatedData:     related,
			Recommendations: []string{"Configure the Groq API key in the ai section of the config"},
		}, nil
	}

	analysis, err := s.complete(ctx, prompt)
	if err != nil {
		s.metrics.AnalysisRequests.WithLabelValues(req.Source, "error").Inc()
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	s.metrics.AnalysisRequests.WithLabelValues(req.Source, "success").Inc()

	return &AnalysisResponse{
		Timestamp:    time.Now().UTC(),
		Source:       source,
		Analysis:     analysis,
		DataAnalyzed: data,
		RelatedData:  related,
	}, nil
}

// complete calls the LLM with API-call metrics around it.
func (s *AnalysisService) complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	result, err := s.llm.Complete(ctx, systemPrompt, prompt)
	s.metrics.GroqDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.GroqCalls.WithLabelValues("error").Inc()
		return "", err
	}
	s.metrics.GroqCalls.WithLabelValues("success").Inc()
	return result, nil
}

// fetchSource loads one resource list for a standard analysis.
func (s *AnalysisService) fetchSource(ctx context.Context, source string, filters map[string]string) (any, error) {
	page := monitor.Page{Size: 100}
	get := func(key string) string {
		if filters == nil {
			return ""
		}
		return filters[key]
	}

	switch source {
	case "logs":
		items, _, err := s.logs.ListLogs(ctx, monitor.LogFilter{
			ServiceID: get("serviceId"),
			Level:     monitor.LogLevel(get("level")),
		}, page)
		return requireItems(items, err)
	case "incidents":
		items, _, err := s.incidents.ListIncidents(ctx, monitor.IncidentFilter{
			ServiceID: get("serviceId"),
			Status:    monitor.IncidentStatus(get("status")),
			Severity:  monitor.Severity(get("severity")),
		}, page)
		return requireItems(items, err)
	case "services":
		items, _, err := s.services.ListServices(ctx, monitor.ServiceFilter{
			Status: monitor.ServiceStatus(get("status")),
		}, page)
		return requireItems(items, err)
	case "deployments":
		items, _, err := s.deployments.ListDeployments(ctx, monitor.DeploymentFilter{
			ServiceID: get("serviceId"),
			Status:    monitor.DeploymentStatus(get("status")),
		}, page)
		return requireItems(items, err)
	case "actions":
		items, _, err := s.actions.ListActions(ctx, monitor.ActionFilter{
			IncidentID: get("incidentId"),
		}, page)
		return requireItems(items, err)
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrBadAnalysisRequest, source)
	}
}

// requireItems maps an empty list to ErrNoAnalysisData.
func requireItems[T any](items []T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoAnalysisData
	}
	return items, nil
}

// fetchChain walks the incident chain starting from a log or an incident:
// log, incidents on its service, the incident, its service, actions taken,
// and recent error logs from the same service. Each hop that fails is
// skipped rather than aborting the walk.
func (s *AnalysisService) fetchChain(ctx context.Context, logID, incidentID string) (*chainData, error) {
	if logID == "" && incidentID == "" {
		return nil, fmt.Errorf("%w: deep analysis needs logId or incidentId in filters", ErrBadAnalysisRequest)
	}

	data := &chainData{}

	if logID != "" {
		entry, err := s.logs.GetLog(ctx, logID)
		if err == nil {
			data.Log = entry
			if incidentID == "" {
				incidents, _, err := s.incidents.ListIncidents(ctx, monitor.IncidentFilter{
					ServiceID: entry.ServiceID,
				}, monitor.Page{Size: 5})
				if err == nil && len(incidents) > 0 {
					incidentID = incidents[0].ID
				}
			}
		} else {
			s.logger.Debug("chain walk: log lookup failed", "log_id", logID, "error", err)
		}
	}

	if incidentID != "" {
		inc, err := s.incidents.GetIncident(ctx, incidentID)
		if err != nil {
			s.logger.Debug("chain walk: incident lookup failed", "incident_id", incidentID, "error", err)
			return data, nil
		}
		data.Incident = inc

		if svc, err := s.services.GetService(ctx, inc.ServiceID); err == nil {
			data.Service = svc
		}
		if actions, _, err := s.actions.ListActions(ctx, monitor.ActionFilter{IncidentID: inc.ID}, monitor.Page{Size: 20}); err == nil {
			data.Actions = actions
		}
		if logs, _, err := s.logs.ListLogs(ctx, monitor.LogFilter{
			ServiceID: inc.ServiceID,
			Level:     monitor.LevelError,
		}, monitor.Page{Size: 10}); err == nil {
			data.RelatedLogs = logs
		}
	}

	return data, nil
}
