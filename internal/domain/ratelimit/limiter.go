package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/opsdeck/opsdeck/internal/port/outbound"
)

// defaultCheckTimeout bounds the store round trips of a single check so a
// slow store cannot hang the request path.
const defaultCheckTimeout = 2 * time.Second

// Limiter decides whether a request is admitted under the sliding-window
// policy for its operation class. All window state lives in the shared
// key-value store; concurrent checks coordinate only through it.
type Limiter struct {
	store   outbound.KVStore
	logger  *slog.Logger
	timeout time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithLogger sets the logger used for fail-open warnings.
func WithLogger(logger *slog.Logger) LimiterOption {
	return func(l *Limiter) { l.logger = logger }
}

// WithCheckTimeout overrides the per-check store timeout.
func WithCheckTimeout(d time.Duration) LimiterOption {
	return func(l *Limiter) { l.timeout = d }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter creates a sliding-window limiter on top of the given store.
func NewLimiter(store outbound.KVStore, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		store:   store,
		logger:  slog.Default(),
		timeout: defaultCheckTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records one attempt for (identity, class) and reports whether the
// caller should be limited. The sequence per check is fixed:
//
//	insert member -> prune entries older than the window -> count -> refresh TTL
//
// The current attempt is inserted before counting, so the limiter enforces
// "at most N attempts per window" — a rejected attempt still occupies a
// slot. Inserting before pruning also keeps a burst from dodging entries
// that are about to expire.
//
// Any store failure fails open: the attempt is admitted and the failure is
// logged at warning level, never returned to the caller.
func (l *Limiter) Check(ctx context.Context, identity string, class Class) bool {
	policy := PolicyFor(class)
	key := FormatKey(class, identity)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	now := l.now().UnixMilli()
	member := memberToken(now, identity)

	if err := l.store.SortedSetAdd(ctx, key, member, float64(now)); err != nil {
		l.failOpen(key, "add", err)
		return false
	}

	cutoff := now - policy.Window.Milliseconds()
	if err := l.store.SortedSetRemoveRangeByScore(ctx, key, math.Inf(-1), float64(cutoff-1)); err != nil {
		l.failOpen(key, "prune", err)
		return false
	}

	count, err := l.store.SortedSetCard(ctx, key)
	if err != nil {
		l.failOpen(key, "count", err)
		return false
	}

	ttl := time.Duration(math.Ceil(policy.Window.Seconds())) * time.Second
	if err := l.store.Expire(ctx, key, ttl); err != nil {
		// The decision is already made; a failed TTL refresh only delays
		// self-cleanup of the key.
		l.logger.Warn("rate limiter failed to refresh key TTL",
			"key", key, "error", err)
	}

	return count > int64(policy.MaxRequests)
}

// failOpen logs a store failure and lets the request through.
func (l *Limiter) failOpen(key, op string, err error) {
	l.logger.Warn("rate limiter store unavailable, failing open",
		"key", key, "op", op, "error", err)
}

// memberToken builds a member unique per call so concurrent attempts in the
// same millisecond are not collapsed into one sorted-set entry.
func memberToken(millis int64, identity string) string {
	return fmt.Sprintf("%d-%s-%06d", millis, identity, rand.Intn(1_000_000))
}
