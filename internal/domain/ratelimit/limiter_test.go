package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opsdeck/opsdeck/internal/adapter/outbound/memory"
	"github.com/opsdeck/opsdeck/internal/port/outbound"
)

// newTestLimiter returns a limiter over an in-memory store with a
// controllable clock starting at a fixed epoch.
func newTestLimiter(t *testing.T) (*Limiter, *memory.KVStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := memory.NewKVStore()
	store.SetClock(clock.Now)
	limiter := NewLimiter(store, WithClock(clock.Now))
	return limiter, store, clock
}

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

func TestCheck_LoginBudgetExhaustion(t *testing.T) {
	// Scenario A: login allows 3 attempts per 15 minutes; the 4th is limited.
	limiter, _, clock := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if limited := limiter.Check(ctx, "u1", ClassLogin); limited {
			t.Fatalf("check %d: limited = true, want false", i+1)
		}
	}

	clock.Advance(time.Second)
	if limited := limiter.Check(ctx, "u1", ClassLogin); !limited {
		t.Error("4th check within window: limited = false, want true")
	}
}

func TestCheck_WindowElapsesAndPrunes(t *testing.T) {
	// Scenario B: after the full window passes, prior entries are pruned
	// and a new attempt is admitted.
	limiter, _, clock := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.Check(ctx, "u1", ClassLogin)
	}
	clock.Advance(time.Second)
	if !limiter.Check(ctx, "u1", ClassLogin) {
		t.Fatal("setup: expected 4th check to be limited")
	}

	clock.Advance(901 * time.Second)
	if limited := limiter.Check(ctx, "u1", ClassLogin); limited {
		t.Error("check after window elapsed: limited = true, want false")
	}
}

func TestCheck_IdentityIsolation(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		limiter.Check(ctx, "u1", ClassLogin)
	}

	if limited := limiter.Check(ctx, "u2", ClassLogin); limited {
		t.Error("u2 first check: limited = true, want false (u1 attempts must not count)")
	}
}

func TestCheck_ClassIsolation(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		limiter.Check(ctx, "u1", ClassBulk)
	}

	if limited := limiter.Check(ctx, "u1", ClassCRUD); limited {
		t.Error("crud check: limited = true, want false (bulk attempts must not count)")
	}
}

func TestCheck_RejectedAttemptsOccupySlots(t *testing.T) {
	// The insert-then-count order means rejected attempts keep the window
	// full: issuing more rejected checks does not free capacity early.
	limiter, _, clock := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		limiter.Check(ctx, "u1", ClassBulk) // bulk: 5 per minute
	}
	clock.Advance(30 * time.Second)

	for i := 0; i < 3; i++ {
		if !limiter.Check(ctx, "u1", ClassBulk) {
			t.Fatalf("check %d at t=30s: limited = false, want true", i+1)
		}
	}

	// 31s later the first five entries are out of the window, but the three
	// rejected attempts at t=30s still count: 3 prior + this one = 4 <= 5.
	clock.Advance(31 * time.Second)
	if limited := limiter.Check(ctx, "u1", ClassBulk); limited {
		t.Error("check at t=61s: limited = true, want false")
	}
}

func TestCheck_SameMillisecondAttemptsAllCount(t *testing.T) {
	// Member tokens must be unique per call even for identical timestamps.
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	// All four checks run at the exact same clock reading.
	results := make([]bool, 4)
	for i := range results {
		results[i] = limiter.Check(ctx, "u1", ClassLogin)
	}

	for i, limited := range results[:3] {
		if limited {
			t.Errorf("check %d: limited = true, want false", i+1)
		}
	}
	if !results[3] {
		t.Error("4th same-millisecond check: limited = false, want true (entries collapsed?)")
	}
}

func TestCheck_RefreshesKeyTTL(t *testing.T) {
	limiter, store, clock := newTestLimiter(t)
	ctx := context.Background()

	limiter.Check(ctx, "u1", ClassCRUD)
	if got := store.Keys(); len(got) != 1 {
		t.Fatalf("keys after check = %v, want one", got)
	}

	// crud window is 60s; the key self-cleans at ~60s without further checks.
	clock.Advance(61 * time.Second)
	if got := store.Keys(); len(got) != 0 {
		t.Errorf("keys after TTL elapsed = %v, want none", got)
	}
}

func TestCheck_ConcurrentChecksSettleAtLimit(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	limitedCount := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limitedCount <- limiter.Check(ctx, "u1", ClassIncident) // 10 per minute
		}()
	}
	wg.Wait()
	close(limitedCount)

	admitted := 0
	for limited := range limitedCount {
		if !limited {
			admitted++
		}
	}
	// Every check inserts before counting, so at most MaxRequests checks can
	// observe a count within budget.
	if admitted > 10 {
		t.Errorf("admitted = %d, want <= 10", admitted)
	}
	if admitted == 0 {
		t.Error("admitted = 0, want > 0")
	}
}

// failingKV errors on every operation to exercise fail-open behavior.
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

func TestCheck_FailsOpenWhenStoreUnavailable(t *testing.T) {
	// Scenario D: a store failure must return not-limited, not propagate.
	limiter := NewLimiter(failingKV{})

	for i := 0; i < 10; i++ {
		if limited := limiter.Check(context.Background(), "u1", ClassLogin); limited {
			t.Fatalf("check %d with store down: limited = true, want false (fail open)", i+1)
		}
	}
}

func TestCheck_FailsOpenOnCancelledContext(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The memory store ignores context, but a real store would error; either
	// way Check must return a boolean without panicking.
	_ = limiter.Check(ctx, "u1", ClassAPI)
}
