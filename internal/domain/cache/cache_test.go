package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opsdeck/opsdeck/internal/adapter/outbound/memory"
	"github.com/opsdeck/opsdeck/internal/port/outbound"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCache(t *testing.T) (*Cache, *memory.KVStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := memory.NewKVStore()
	store.SetClock(clock.Now)
	return New(store), store, clock
}

// countingCompute returns a compute function that counts invocations.
func countingCompute(value []byte) (func(ctx context.Context) ([]byte, error), *int) {
	calls := 0
	return func(ctx context.Context) ([]byte, error) {
		calls++
		return value, nil
	}, &calls
}

func TestGetOrCompute_HitDoesNotRecompute(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()
	compute, calls := countingCompute([]byte(`{"n":1}`))

	if _, err := c.GetOrCompute(ctx, "incident:id:1", TTLDetail, compute); err != nil {
		t.Fatalf("first GetOrCompute: %v", err)
	}
	if _, err := c.GetOrCompute(ctx, "incident:id:1", TTLDetail, compute); err != nil {
		t.Fatalf("second GetOrCompute: %v", err)
	}

	if *calls != 1 {
		t.Errorf("compute calls = %d, want 1", *calls)
	}
}

func TestGetOrCompute_RoundTripBitIdentical(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()
	payload := []byte(`{"incidents":[{"id":"1","title":"db down"}],"total":1}`)
	compute, _ := countingCompute(payload)

	first, err := c.GetOrCompute(ctx, "incident:all:abc", TTLList, compute)
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	second, err := c.GetOrCompute(ctx, "incident:all:abc", TTLList, compute)
	if err != nil {
		t.Fatalf("hit: %v", err)
	}

	if !bytes.Equal(first, payload) || !bytes.Equal(second, payload) {
		t.Errorf("cached value diverged: first=%q second=%q want=%q", first, second, payload)
	}
}

func TestGetOrCompute_TTLExpiryRecomputes(t *testing.T) {
	c, _, clock := newTestCache(t)
	ctx := context.Background()
	compute, calls := countingCompute([]byte("v"))

	c.GetOrCompute(ctx, "service:id:1", TTLDetail, compute)
	clock.Advance(TTLDetail + time.Second)
	c.GetOrCompute(ctx, "service:id:1", TTLDetail, compute)

	if *calls != 2 {
		t.Errorf("compute calls = %d, want 2 (entry should have expired)", *calls)
	}
}

func TestInvalidate_ExactKeyForcesRecompute(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()
	compute, calls := countingCompute([]byte("v"))

	c.GetOrCompute(ctx, "incident:id:123", TTLDetail, compute)
	c.Invalidate(ctx, "incident:id:123")
	c.GetOrCompute(ctx, "incident:id:123", TTLDetail, compute)

	if *calls != 2 {
		t.Errorf("compute calls = %d, want 2 (invalidate must force recompute before TTL)", *calls)
	}
}

func TestInvalidate_FamilyPattern(t *testing.T) {
	// Scenario C: after a create invalidates the list family and detail key,
	// a subsequent list query recomputes instead of serving the stale list.
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	listCompute, listCalls := countingCompute([]byte(`["pre-creation"]`))
	keyA := ListKey("resource", ListParams{Page: 1, PageSize: 20})
	keyB := ListKey("resource", ListParams{Page: 2, PageSize: 20})
	c.GetOrCompute(ctx, keyA, TTLList, listCompute)
	c.GetOrCompute(ctx, keyB, TTLList, listCompute)
	c.GetOrCompute(ctx, "resource:id:123", TTLDetail, listCompute)

	c.Invalidate(ctx, ListFamily("resource"), "resource:id:123")

	c.GetOrCompute(ctx, keyA, TTLList, listCompute)
	c.GetOrCompute(ctx, keyB, TTLList, listCompute)
	c.GetOrCompute(ctx, "resource:id:123", TTLDetail, listCompute)

	if *listCalls != 6 {
		t.Errorf("compute calls = %d, want 6 (all three entries invalidated)", *listCalls)
	}
}

func TestInvalidate_LeavesOtherResourcesAlone(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()
	compute, calls := countingCompute([]byte("v"))

	other := ListKey("service", ListParams{Page: 1, PageSize: 20})
	c.GetOrCompute(ctx, other, TTLList, compute)
	c.Invalidate(ctx, ListFamily("incident"))
	c.GetOrCompute(ctx, other, TTLList, compute)

	if *calls != 1 {
		t.Errorf("compute calls = %d, want 1 (service family must survive incident invalidation)", *calls)
	}
}

func TestGetOrCompute_ComputeErrorPropagates(t *testing.T) {
	c, _, _ := newTestCache(t)
	wantErr := errors.New("db offline")

	_, err := c.GetOrCompute(context.Background(), "k", TTLDetail, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

// failingKV errors on every operation to exercise fail-through behavior.
type failingKV struct{}

var errStoreDown = errors.New("connection refused")

func (failingKV) SortedSetAdd(context.Context, string, string, float64) error { return errStoreDown }
func (failingKV) SortedSetRemoveRangeByScore(context.Context, string, float64, float64) error {
	return errStoreDown
}
func (failingKV) SortedSetCard(context.Context, string) (int64, error) { return 0, errStoreDown }
func (failingKV) Expire(context.Context, string, time.Duration) error  { return errStoreDown }
func (failingKV) Get(context.Context, string) ([]byte, error)          { return nil, errStoreDown }
func (failingKV) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}
func (failingKV) Delete(context.Context, ...string) error     { return errStoreDown }
func (failingKV) DeletePattern(context.Context, string) error { return errStoreDown }
func (failingKV) Ping(context.Context) error                  { return errStoreDown }
func (failingKV) Close() error                                { return nil }

var _ outbound.KVStore = failingKV{}

func TestGetOrCompute_FailsThroughWhenStoreUnavailable(t *testing.T) {
	c := New(failingKV{})
	compute, calls := countingCompute([]byte("live"))

	got, err := c.GetOrCompute(context.Background(), "k", TTLDetail, compute)
	if err != nil {
		t.Fatalf("GetOrCompute with store down: %v (must fail through, not error)", err)
	}
	if string(got) != "live" {
		t.Errorf("value = %q, want %q", got, "live")
	}
	if *calls != 1 {
		t.Errorf("compute calls = %d, want 1", *calls)
	}
}

func TestInvalidate_StoreFailureDoesNotPanic(t *testing.T) {
	c := New(failingKV{})
	c.Invalidate(context.Background(), "incident:id:1", ListFamily("incident"))
}

func TestGetOrComputeJSON_TypedRoundTrip(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	type incident struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	calls := 0
	compute := func(ctx context.Context) (incident, error) {
		calls++
		return incident{ID: "1", Title: "api latency"}, nil
	}

	first, err := GetOrComputeJSON(ctx, c, "incident:id:1", TTLDetail, compute)
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	second, err := GetOrComputeJSON(ctx, c, "incident:id:1", TTLDetail, compute)
	if err != nil {
		t.Fatalf("hit: %v", err)
	}

	if first != second {
		t.Errorf("round trip mismatch: %+v vs %+v", first, second)
	}
	if calls != 1 {
		t.Errorf("compute calls = %d, want 1", calls)
	}
}

func TestGetOrComputeJSON_CorruptEntryTreatedAsMiss(t *testing.T) {
	c, store, _ := newTestCache(t)
	ctx := context.Background()

	// Seed a value that cannot deserialize into the target type.
	if err := store.SetWithTTL(ctx, "service:id:9", []byte("{not json"), TTLDetail); err != nil {
		t.Fatalf("seed: %v", err)
	}

	type svc struct {
		Name string `json:"name"`
	}
	calls := 0
	got, err := GetOrComputeJSON(ctx, c, "service:id:9", TTLDetail, func(ctx context.Context) (svc, error) {
		calls++
		return svc{Name: "payments"}, nil
	})
	if err != nil {
		t.Fatalf("GetOrComputeJSON: %v", err)
	}
	if got.Name != "payments" || calls != 1 {
		t.Errorf("got %+v with %d compute calls, want recomputed value with 1 call", got, calls)
	}

	// The bad entry must have been overwritten with a good one.
	calls = 0
	if _, err := GetOrComputeJSON(ctx, c, "service:id:9", TTLDetail, func(ctx context.Context) (svc, error) {
		calls++
		return svc{Name: "payments"}, nil
	}); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if calls != 0 {
		t.Errorf("compute calls after overwrite = %d, want 0", calls)
	}
}

func TestCacheHooks(t *testing.T) {
	store := memory.NewKVStore()
	var hits, misses int
	c := New(store,
		WithHitHook(func(string) { hits++ }),
		WithMissHook(func(string) { misses++ }),
	)
	compute, _ := countingCompute([]byte("v"))

	ctx := context.Background()
	c.GetOrCompute(ctx, "k", TTLDetail, compute)
	c.GetOrCompute(ctx, "k", TTLDetail, compute)

	if misses != 1 || hits != 1 {
		t.Errorf("hits=%d misses=%d, want 1 and 1", hits, misses)
	}
}
