package service

import (
	"context"
	"errors"
	"testing"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

func seedCatalogService(t *testing.T, store *memStore) *monitor.Service {
	t.Helper()
	svc, err := NewCatalogService(store, newTestCache(), testLogger()).
		Create(context.Background(), &monitor.Service{Name: "payments", URL: "https://payments.internal"})
	if err != nil {
		t.Fatalf("seed service error: %v", err)
	}
	return svc
}

func TestIncidentCreateRejectsUnknownService(t *testing.T) {
	store := newMemStore()
	incidents := NewIncidentService(store, store, newTestCache(), testLogger())

	_, err := incidents.Create(context.Background(), &monitor.Incident{
		ServiceID: "missing", Title: "down",
	})
	if !errors.Is(err, monitor.ErrNotFound) {
		t.Errorf("Create with unknown service error = %v, want ErrNotFound", err)
	}
}

func TestIncidentResolveStampsResolvedAt(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := seedCatalogService(t, store)
	incidents := NewIncidentService(store, store, newTestCache(), testLogger())

	inc, err := incidents.Create(ctx, &monitor.Incident{
		ServiceID: svc.ID, Title: "elevated latency", Severity: monitor.SeverityHigh,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if inc.Status != monitor.IncidentOpen {
		t.Errorf("default status = %q, want open", inc.Status)
	}
	if inc.ResolvedAt != nil {
		t.Error("new incident has ResolvedAt set")
	}

	updated, err := incidents.Update(ctx, inc.ID, &monitor.Incident{
		Title: inc.Title, Status: monitor.IncidentResolved,
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.ResolvedAt == nil {
		t.Fatal("resolved incident has nil ResolvedAt")
	}

	reopened, err := incidents.Update(ctx, inc.ID, &monitor.Incident{
		Title: inc.Title, Status: monitor.IncidentInvestigating,
	})
	if err != nil {
		t.Fatalf("Update reopen error: %v", err)
	}
	if reopened.ResolvedAt != nil {
		t.Error("reopened incident kept ResolvedAt")
	}
}

func TestOpenForAlertDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := seedCatalogService(t, store)
	incidents := NewIncidentService(store, store, newTestCache(), testLogger())

	first, err := incidents.OpenForAlert(ctx, svc.ID, "error spike", "rule fired", monitor.SeverityHigh)
	if err != nil {
		t.Fatalf("OpenForAlert error: %v", err)
	}
	second, err := incidents.OpenForAlert(ctx, svc.ID, "error spike", "rule fired again", monitor.SeverityHigh)
	if err != nil {
		t.Fatalf("OpenForAlert second error: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("OpenForAlert opened a duplicate: %s vs %s", first.ID, second.ID)
	}

	// A resolved incident no longer suppresses a new one.
	if _, err := incidents.Update(ctx, first.ID, &monitor.Incident{
		Title: first.Title, Status: monitor.IncidentResolved,
	}); err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	third, err := incidents.OpenForAlert(ctx, svc.ID, "error spike", "rule fired once more", monitor.SeverityHigh)
	if err != nil {
		t.Fatalf("OpenForAlert third error: %v", err)
	}
	if third.ID == first.ID {
		t.Error("OpenForAlert reused a resolved incident")
	}
}

func TestIncidentListFiltersFromCacheIsolated(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := seedCatalogService(t, store)
	incidents := NewIncidentService(store, store, newTestCache(), testLogger())

	if _, err := incidents.Create(ctx, &monitor.Incident{
		ServiceID: svc.ID, Title: "a", Severity: monitor.SeverityCritical,
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := incidents.Create(ctx, &monitor.Incident{
		ServiceID: svc.ID, Title: "b", Severity: monitor.SeverityLow,
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	critical, total, err := incidents.List(ctx, monitor.IncidentFilter{Severity: monitor.SeverityCritical}, monitor.Page{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if total != 1 || len(critical) != 1 || critical[0].Title != "a" {
		t.Errorf("critical list = %+v (total %d), want only incident a", critical, total)
	}

	all, total, err := incidents.List(ctx, monitor.IncidentFilter{}, monitor.Page{})
	if err != nil {
		t.Fatalf("List all error: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("unfiltered list = %d rows, total %d, want 2", len(all), total)
	}
}
