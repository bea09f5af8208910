// Package outbound defines the outbound port interfaces.
package outbound

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when a key does not exist or has expired.
var ErrKeyNotFound = errors.New("kv: key not found")

// KVStore is the port to the shared key-value store used for rate-limit
// windows and the read-through cache. The command set is deliberately small:
// sorted-set primitives for sliding windows, string get/set-with-expiry for
// cache entries, and delete by key or pattern for invalidation.
//
// Every call is a network round trip; implementations must honor context
// cancellation and apply their own bounded timeout. Callers treat any error
// as "store unavailable" and degrade per their own policy (fail open for
// rate limiting, fail through for caching).
//
// Implementations: Redis (prod), in-memory (dev/test).
type KVStore interface {
	// SortedSetAdd adds a member scored by score to the sorted set at key.
	SortedSetAdd(ctx context.Context, key, member string, score float64) error

	// SortedSetRemoveRangeByScore removes all members with min <= score <= max.
	SortedSetRemoveRangeByScore(ctx context.Context, key string, min, max float64) error

	// SortedSetCard returns the number of members in the sorted set at key.
	SortedSetCard(ctx context.Context, key string) (int64, error)

	// Expire sets the TTL of key so abandoned keys self-clean.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Get returns the value stored at key.
	// Returns ErrKeyNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL stores value at key with the given TTL.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given exact keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes all keys matching a glob pattern (e.g. "incident:all:*").
	DeletePattern(ctx context.Context, pattern string) error

	// Ping verifies connectivity to the store.
	Ping(ctx context.Context) error

	// Close releases the store connection.
	Close() error
}
