package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/opsdeck/opsdeck/internal/port/outbound"
)

// defaultOpTimeout bounds each store round trip so a slow store degrades to
// a live query instead of hanging the request.
const defaultOpTimeout = 2 * time.Second

// Cache is a read-through cache over the shared key-value store.
//
// It is a performance optimization, never an availability risk: any store
// failure on the read or write path falls through to the caller's compute
// function, logged at warning level and never surfaced as an error.
type Cache struct {
	store   outbound.KVStore
	logger  *slog.Logger
	timeout time.Duration

	onHit  func(key string)
	onMiss func(key string)
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for fail-through warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithOpTimeout overrides the per-operation store timeout.
func WithOpTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// WithHitHook registers a callback invoked on every cache hit.
func WithHitHook(fn func(key string)) Option {
	return func(c *Cache) { c.onHit = fn }
}

// WithMissHook registers a callback invoked on every cache miss.
func WithMissHook(fn func(key string)) Option {
	return func(c *Cache) { c.onMiss = fn }
}

// New creates a Cache on top of the given store.
func New(store outbound.KVStore, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		logger:  slog.Default(),
		timeout: defaultOpTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the cached value for key, or invokes compute, stores
// its result with the given TTL, and returns it.
//
// Concurrent misses on the same key may each invoke compute; the last
// writer's value wins. That is accepted — the staleness bound is the TTL,
// and compute is the authoritative query.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	readCtx, cancel := context.WithTimeout(ctx, c.timeout)
	cached, err := c.store.Get(readCtx, key)
	cancel()

	switch {
	case err == nil:
		c.hit(key)
		return cached, nil
	case errors.Is(err, outbound.ErrKeyNotFound):
		// Plain miss.
	default:
		c.logger.Warn("cache read failed, falling through to live query",
			"key", key, "error", err)
	}
	c.miss(key)

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.SetWithTTL(writeCtx, key, value, ttl); err != nil {
		// The result is still correct; only the next reader pays again.
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return value, nil
}

// Invalidate deletes the given exact keys and "*" family patterns,
// immediately and unconditionally. Deletion is best-effort sequential:
// a failure leaves entries stale for at most their TTL and is logged,
// never returned.
func (c *Cache) Invalidate(ctx context.Context, keysOrPatterns ...string) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var exact []string
	for _, k := range keysOrPatterns {
		if strings.ContainsRune(k, '*') {
			if err := c.store.DeletePattern(ctx, k); err != nil {
				c.logger.Warn("cache pattern invalidation failed", "pattern", k, "error", err)
			}
			continue
		}
		exact = append(exact, k)
	}
	if len(exact) > 0 {
		if err := c.store.Delete(ctx, exact...); err != nil {
			c.logger.Warn("cache invalidation failed", "keys", exact, "error", err)
		}
	}
}

func (c *Cache) hit(key string) {
	if c.onHit != nil {
		c.onHit(key)
	}
}

func (c *Cache) miss(key string) {
	if c.onMiss != nil {
		c.onMiss(key)
	}
}

// GetOrComputeJSON is a typed wrapper over Cache.GetOrCompute that stores
// values as JSON. A cached entry that fails to deserialize is treated as a
// miss: the value is recomputed and the bad entry overwritten.
func GetOrComputeJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := c.GetOrCompute(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err == nil {
		return out, nil
	}

	// Corrupt entry: recompute and overwrite.
	c.logger.Warn("cache entry failed to deserialize, recomputing", "key", key)
	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}
	if encoded, marshalErr := json.Marshal(value); marshalErr == nil {
		writeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if setErr := c.store.SetWithTTL(writeCtx, key, encoded, ttl); setErr != nil {
			c.logger.Warn("cache overwrite failed", "key", key, "error", setErr)
		}
	}
	return value, nil
}
