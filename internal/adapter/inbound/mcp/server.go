// Package mcp exposes dashboard data to AI copilots over the Model
// Context Protocol. The server speaks MCP on stdio so an editor or agent
// can query incidents and service health without going through the HTTP
// API.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
	"github.com/opsdeck/opsdeck/internal/service"
)

// Server is the MCP tool surface over the application services.
type Server struct {
	catalog   *service.CatalogService
	incidents *service.IncidentService
	logs      *service.LogService
	actions   *service.ActionService
	version   string
	logger    *slog.Logger
}

// NewServer creates a Server.
func NewServer(catalog *service.CatalogService, incidents *service.IncidentService, logs *service.LogService, actions *service.ActionService, version string, logger *slog.Logger) *Server {
	return &Server{
		catalog:   catalog,
		incidents: incidents,
		logs:      logs,
		actions:   actions,
		version:   version,
		logger:    logger,
	}
}

// Run serves MCP over stdio until the context is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio", "version", s.version)
	return s.build().Run(ctx, &mcp.StdioTransport{})
}

// build assembles the SDK server with the tool set registered.
func (s *Server) build() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "opsdeck",
		Title:   "OpsDeck monitoring dashboard",
		Version: s.version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_incidents",
		Description: "List incidents, optionally filtered by status, severity, or service ID. Returns the most recently reported first.",
	}, s.listIncidents)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_incident",
		Description: "Fetch one incident by ID together with the remediation actions taken so far.",
	}, s.getIncident)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "service_health",
		Description: "List all monitored services with their current status.",
	}, s.serviceHealth)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "recent_errors",
		Description: "List recent error-level log entries, optionally for a single service.",
	}, s.recentErrors)

	return srv
}

type listIncidentsArgs struct {
	Status    string `json:"status,omitempty" jsonschema:"open, investigating, or resolved"`
	Severity  string `json:"severity,omitempty" jsonschema:"low, medium, high, or critical"`
	ServiceID string `json:"serviceId,omitempty" jsonschema:"restrict to one service"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of incidents to return, default 20"`
}

type incidentList struct {
	Incidents []monitor.Incident `json:"incidents"`
	Total     int                `json:"total"`
}

func (s *Server) listIncidents(ctx context.Context, req *mcp.CallToolRequest, args listIncidentsArgs) (*mcp.CallToolResult, incidentList, error) {
	filter := monitor.IncidentFilter{
		ServiceID: args.ServiceID,
		Status:    monitor.IncidentStatus(args.Status),
		Severity:  monitor.Severity(args.Severity),
	}
	items, total, err := s.incidents.List(ctx, filter, monitor.Page{Size: args.Limit})
	if err != nil {
		return nil, incidentList{}, fmt.Errorf("list incidents: %w", err)
	}
	return nil, incidentList{Incidents: items, Total: total}, nil
}

type getIncidentArgs struct {
	ID string `json:"id" jsonschema:"incident ID"`
}

type incidentDetail struct {
	Incident *monitor.Incident `json:"incident"`
	Actions  []monitor.Action  `json:"actions"`
}

func (s *Server) getIncident(ctx context.Context, req *mcp.CallToolRequest, args getIncidentArgs) (*mcp.CallToolResult, incidentDetail, error) {
	inc, err := s.incidents.Get(ctx, args.ID)
	if err != nil {
		return nil, incidentDetail{}, fmt.Errorf("get incident %s: %w", args.ID, err)
	}
	actions, _, err := s.actions.List(ctx, monitor.ActionFilter{IncidentID: args.ID}, monitor.Page{Size: 50})
	if err != nil {
		return nil, incidentDetail{}, fmt.Errorf("list actions for %s: %w", args.ID, err)
	}
	return nil, incidentDetail{Incident: inc, Actions: actions}, nil
}

type serviceHealthArgs struct {
	Status string `json:"status,omitempty" jsonschema:"operational, degraded, or down"`
}

type serviceList struct {
	Services []monitor.Service `json:"services"`
	Total    int               `json:"total"`
}

func (s *Server) serviceHealth(ctx context.Context, req *mcp.CallToolRequest, args serviceHealthArgs) (*mcp.CallToolResult, serviceList, error) {
	filter := monitor.ServiceFilter{Status: monitor.ServiceStatus(args.Status)}
	items, total, err := s.catalog.List(ctx, filter, monitor.Page{Size: 200})
	if err != nil {
		return nil, serviceList{}, fmt.Errorf("list services: %w", err)
	}
	return nil, serviceList{Services: items, Total: total}, nil
}

type recentErrorsArgs struct {
	ServiceID string `json:"serviceId,omitempty" jsonschema:"restrict to one service"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of entries to return, default 20"`
}

type logList struct {
	Logs  []monitor.LogEntry `json:"logs"`
	Total int                `json:"total"`
}

func (s *Server) recentErrors(ctx context.Context, req *mcp.CallToolRequest, args recentErrorsArgs) (*mcp.CallToolResult, logList, error) {
	filter := monitor.LogFilter{
		ServiceID: args.ServiceID,
		Level:     monitor.LevelError,
	}
	items, total, err := s.logs.List(ctx, filter, monitor.Page{Size: args.Limit})
	if err != nil {
		return nil, logList{}, fmt.Errorf("list error logs: %w", err)
	}
	return nil, logList{Logs: items, Total: total}, nil
}
