package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opsdeck/opsdeck/internal/adapter/outbound/memory"
	"github.com/opsdeck/opsdeck/internal/adapter/outbound/sqlite"
	"github.com/opsdeck/opsdeck/internal/domain/cache"
	"github.com/opsdeck/opsdeck/internal/domain/monitor"
	"github.com/opsdeck/opsdeck/internal/service"
)

type fixture struct {
	session  *mcp.ClientSession
	service  *monitor.Service
	incident *monitor.Incident
}

// newFixture seeds one service with an open incident, a remediation
// action, and a pair of log entries, then connects an MCP client over
// in-memory transports.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c := cache.New(memory.NewKVStore(), cache.WithLogger(logger))
	serviceStore := sqlite.NewServiceStore(db)
	incidentStore := sqlite.NewIncidentStore(db)

	catalog := service.NewCatalogService(serviceStore, c, logger)
	incidents := service.NewIncidentService(incidentStore, serviceStore, c, logger)
	logs := service.NewLogService(sqlite.NewLogStore(db), serviceStore, incidents, nil, c, logger)
	actions := service.NewActionService(sqlite.NewActionStore(db), incidentStore, c, logger)

	svc, err := catalog.Create(ctx, &monitor.Service{Name: "payments", URL: "https://payments.internal"})
	if err != nil {
		t.Fatalf("seed service: %v", err)
	}
	inc, err := incidents.Create(ctx, &monitor.Incident{
		ServiceID: svc.ID, Title: "payments down", Severity: monitor.SeverityHigh,
	})
	if err != nil {
		t.Fatalf("seed incident: %v", err)
	}
	if _, err := actions.Create(ctx, &monitor.Action{
		IncidentID: inc.ID, CommandRun: "systemctl restart payments",
	}); err != nil {
		t.Fatalf("seed action: %v", err)
	}
	for _, entry := range []monitor.LogEntry{
		{ServiceID: svc.ID, Level: monitor.LevelError, Message: "connection pool exhausted"},
		{ServiceID: svc.ID, Level: monitor.LevelInfo, Message: "health check passed"},
	} {
		if _, err := logs.Ingest(ctx, &entry); err != nil {
			t.Fatalf("seed log: %v", err)
		}
	}

	srv := NewServer(catalog, incidents, logs, actions, "test", logger).build()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	if _, err := srv.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("connect server: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	return &fixture{session: session, service: svc, incident: inc}
}

// decodeResult re-marshals the structured tool output into v.
func decodeResult(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode structured content: %v", err)
	}
}

func TestToolListing(t *testing.T) {
	f := newFixture(t)

	res, err := f.session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	want := map[string]bool{
		"list_incidents": false, "get_incident": false,
		"service_health": false, "recent_errors": false,
	}
	for _, tool := range res.Tools {
		if _, ok := want[tool.Name]; !ok {
			t.Errorf("unexpected tool %q", tool.Name)
			continue
		}
		want[tool.Name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %q not listed", name)
		}
	}
}

func TestServiceHealthTool(t *testing.T) {
	f := newFixture(t)

	res, err := f.session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "service_health",
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool returned error: %v", res.Content)
	}
	var out serviceList
	decodeResult(t, res, &out)
	if out.Total != 1 {
		t.Fatalf("Total = %d, want 1", out.Total)
	}
	if out.Services[0].Name != "payments" {
		t.Errorf("Name = %q, want payments", out.Services[0].Name)
	}
}

func TestGetIncidentTool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "get_incident",
		Arguments: map[string]any{"id": f.incident.ID},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool returned error: %v", res.Content)
	}
	var out incidentDetail
	decodeResult(t, res, &out)
	if out.Incident == nil || out.Incident.Title != "payments down" {
		t.Errorf("Incident = %+v, want title payments down", out.Incident)
	}
	if len(out.Actions) != 1 || out.Actions[0].CommandRun != "systemctl restart payments" {
		t.Errorf("Actions = %+v, want one restart command", out.Actions)
	}

	res, err = f.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "get_incident",
		Arguments: map[string]any{"id": "missing"},
	})
	if err != nil {
		t.Fatalf("CallTool with unknown ID: %v", err)
	}
	if !res.IsError {
		t.Error("unknown incident ID did not produce a tool error")
	}
}

func TestRecentErrorsTool(t *testing.T) {
	f := newFixture(t)

	res, err := f.session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "recent_errors",
		Arguments: map[string]any{"serviceId": f.service.ID},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool returned error: %v", res.Content)
	}
	var out logList
	decodeResult(t, res, &out)
	if out.Total != 1 {
		t.Fatalf("Total = %d, want 1 (info entries excluded)", out.Total)
	}
	if out.Logs[0].Message != "connection pool exhausted" {
		t.Errorf("Message = %q, want connection pool exhausted", out.Logs[0].Message)
	}
}

func TestListIncidentsToolFilters(t *testing.T) {
	f := newFixture(t)

	res, err := f.session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "list_incidents",
		Arguments: map[string]any{"status": "resolved"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	var out incidentList
	decodeResult(t, res, &out)
	if out.Total != 0 {
		t.Errorf("resolved Total = %d, want 0", out.Total)
	}

	res, err = f.session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "list_incidents",
		Arguments: map[string]any{"status": "open"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	decodeResult(t, res, &out)
	if out.Total != 1 {
		t.Errorf("open Total = %d, want 1", out.Total)
	}
}
