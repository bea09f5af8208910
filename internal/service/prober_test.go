package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
	"github.com/opsdeck/opsdeck/internal/metrics"
)

func newProberFixture(t *testing.T, healthURL string) (*Prober, *CatalogService, *memStore) {
	t.Helper()
	store := newMemStore()
	catalog := NewCatalogService(store, newTestCache(), testLogger())
	logs := NewLogService(store, store, nil, nil, newTestCache(), testLogger())
	m := metrics.New(prometheus.NewRegistry())
	p := NewProber(catalog, logs, 50*time.Millisecond, m, testLogger(), WithProbeRate(1000))
	if healthURL != "" {
		if _, err := catalog.Create(context.Background(), &monitor.Service{
			Name: "payments", URL: "https://payments.internal", HealthCheckURL: healthURL,
		}); err != nil {
			t.Fatalf("seed service error: %v", err)
		}
	}
	return p, catalog, store
}

func TestSweepMarksFailingServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, catalog, store := newProberFixture(t, srv.URL)
	p.Sweep(context.Background())

	services, _, err := catalog.List(context.Background(), monitor.ServiceFilter{}, monitor.Page{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if services[0].Status != monitor.ServiceDegraded {
		t.Errorf("Status after 500 probe = %q, want degraded", services[0].Status)
	}

	// The transition is recorded as a log entry on the service.
	entries, _, err := store.ListLogs(context.Background(), monitor.LogFilter{ServiceID: services[0].ID}, monitor.Page{})
	if err != nil {
		t.Fatalf("ListLogs error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("transition logs = %d, want 1", len(entries))
	}
	if entries[0].Level != monitor.LevelWarn {
		t.Errorf("transition log level = %q, want warn", entries[0].Level)
	}
}

func TestSweepMarksUnreachableServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	p, catalog, _ := newProberFixture(t, url)
	p.Sweep(context.Background())

	services, _, err := catalog.List(context.Background(), monitor.ServiceFilter{}, monitor.Page{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if services[0].Status != monitor.ServiceDown {
		t.Errorf("Status after failed dial = %q, want down", services[0].Status)
	}
}

func TestSweepRecoveryTransitionsBack(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, catalog, store := newProberFixture(t, srv.URL)
	p.Sweep(context.Background())
	healthy.Store(true)
	p.Sweep(context.Background())

	services, _, err := catalog.List(context.Background(), monitor.ServiceFilter{}, monitor.Page{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if services[0].Status != monitor.ServiceOperational {
		t.Errorf("Status after recovery = %q, want operational", services[0].Status)
	}

	entries, _, err := store.ListLogs(context.Background(), monitor.LogFilter{ServiceID: services[0].ID}, monitor.Page{})
	if err != nil {
		t.Fatalf("ListLogs error: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("transition logs = %d, want 2 (down then up)", len(entries))
	}
}

func TestSweepSkipsServicesWithoutHealthCheck(t *testing.T) {
	p, catalog, _ := newProberFixture(t, "")
	if _, err := catalog.Create(context.Background(), &monitor.Service{
		Name: "no-probe", URL: "https://no-probe.internal",
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	p.Sweep(context.Background())

	services, _, err := catalog.List(context.Background(), monitor.ServiceFilter{}, monitor.Page{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if services[0].Status != monitor.ServiceOperational {
		t.Errorf("Status of unprobed service = %q, want untouched operational", services[0].Status)
	}
}

func TestProberRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, _, _ := newProberFixture(t, "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
