package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/opsdeck/opsdeck/internal/adapter/outbound/memory"
	"github.com/opsdeck/opsdeck/internal/domain/cache"
	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache() *cache.Cache {
	return cache.New(memory.NewKVStore(), cache.WithLogger(testLogger()))
}

func TestCatalogCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCatalogService(store, newTestCache(), testLogger())

	created, err := svc.Create(ctx, &monitor.Service{Name: "payments", URL: "https://payments.internal"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.ID == "" {
		t.Error("Create did not assign an ID")
	}
	if created.Status != monitor.ServiceOperational {
		t.Errorf("default status = %q, want operational", created.Status)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Name != "payments" {
		t.Errorf("Get Name = %q, want payments", got.Name)
	}
}

func TestCatalogCreateRequiresNameAndURL(t *testing.T) {
	svc := NewCatalogService(newMemStore(), newTestCache(), testLogger())
	if _, err := svc.Create(context.Background(), &monitor.Service{Name: "x"}); err == nil {
		t.Error("Create without URL succeeded, want error")
	}
	if _, err := svc.Create(context.Background(), &monitor.Service{URL: "https://x"}); err == nil {
		t.Error("Create without name succeeded, want error")
	}
}

func TestCatalogGetServesFromCache(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCatalogService(store, newTestCache(), testLogger())

	created, err := svc.Create(ctx, &monitor.Service{Name: "payments", URL: "https://payments.internal"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("Get error: %v", err)
	}

	// Mutate the store behind the cache's back; the stale cached copy
	// proves the read did not reach the store.
	store.mu.Lock()
	s := store.services[created.ID]
	s.Name = "renamed-directly"
	store.services[created.ID] = s
	store.mu.Unlock()

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Name != "payments" {
		t.Errorf("second Get Name = %q, want cached %q", got.Name, "payments")
	}
}

func TestCatalogUpdateInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCatalogService(store, newTestCache(), testLogger())

	created, err := svc.Create(ctx, &monitor.Service{Name: "payments", URL: "https://payments.internal"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("Get error: %v", err)
	}

	created.Name = "billing"
	if _, err := svc.Update(ctx, created.ID, created); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get after update error: %v", err)
	}
	if got.Name != "billing" {
		t.Errorf("Get after update Name = %q, want billing", got.Name)
	}
}

func TestCatalogListInvalidatedByCreate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCatalogService(store, newTestCache(), testLogger())

	if _, err := svc.Create(ctx, &monitor.Service{Name: "a", URL: "https://a"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	items, total, err := svc.List(ctx, monitor.ServiceFilter{}, monitor.Page{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("List = %d rows, total %d, want 1", len(items), total)
	}

	if _, err := svc.Create(ctx, &monitor.Service{Name: "b", URL: "https://b"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	items, total, err = svc.List(ctx, monitor.ServiceFilter{}, monitor.Page{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("List after second create = %d rows, total %d, want 2", len(items), total)
	}
}

func TestCatalogSetStatusSkipsNoop(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCatalogService(store, newTestCache(), testLogger())

	created, err := svc.Create(ctx, &monitor.Service{Name: "payments", URL: "https://payments.internal"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	before := store.services[created.ID].UpdatedAt

	if err := svc.SetStatus(ctx, created.ID, monitor.ServiceOperational); err != nil {
		t.Fatalf("SetStatus noop error: %v", err)
	}
	if got := store.services[created.ID].UpdatedAt; !got.Equal(before) {
		t.Error("noop SetStatus touched UpdatedAt")
	}

	if err := svc.SetStatus(ctx, created.ID, monitor.ServiceDown); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Status != monitor.ServiceDown {
		t.Errorf("Status = %q, want down", got.Status)
	}
}

func TestCatalogDeleteMissing(t *testing.T) {
	svc := NewCatalogService(newMemStore(), newTestCache(), testLogger())
	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, monitor.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}
