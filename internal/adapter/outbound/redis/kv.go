// Package redis provides the Redis-backed implementation of the KV store port.
package redis

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opsdeck/opsdeck/internal/port/outbound"
)

// scanBatchSize is the COUNT hint for SCAN during pattern invalidation.
const scanBatchSize = 200

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// DialTimeout bounds connection establishment. Zero uses go-redis defaults.
	DialTimeout time.Duration

	// OpTimeout bounds individual read/write commands.
	OpTimeout time.Duration
}

// KVStore implements outbound.KVStore on a Redis instance.
// All rate-limit windows and cache entries for every opsdeck instance live
// here; instances coordinate only through this store.
type KVStore struct {
	client *redis.Client
}

// NewKVStore creates a Redis client with the given settings.
// Connectivity is not verified here; call Ping during startup wiring.
func NewKVStore(cfg Config) *KVStore {
	return &KVStore{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.OpTimeout,
			WriteTimeout: cfg.OpTimeout,
		}),
	}
}

// SortedSetAdd implements outbound.KVStore.
func (s *KVStore) SortedSetAdd(ctx context.Context, key, member string, score float64) error {
	if err := s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("zadd %s: %w", key, err)
	}
	return nil
}

// SortedSetRemoveRangeByScore implements outbound.KVStore.
func (s *KVStore) SortedSetRemoveRangeByScore(ctx context.Context, key string, min, max float64) error {
	if err := s.client.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Err(); err != nil {
		return fmt.Errorf("zremrangebyscore %s: %w", key, err)
	}
	return nil
}

// SortedSetCard implements outbound.KVStore.
func (s *KVStore) SortedSetCard(ctx context.Context, key string) (int64, error) {
	count, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard %s: %w", key, err)
	}
	return count, nil
}

// Expire implements outbound.KVStore.
func (s *KVStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

// Get implements outbound.KVStore.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, outbound.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// SetWithTTL implements outbound.KVStore.
func (s *KVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete implements outbound.KVStore.
func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

// DeletePattern implements outbound.KVStore.
// Uses SCAN rather than KEYS so invalidation never blocks the server on a
// large keyspace; deletion is batched per SCAN page.
func (s *KVStore) DeletePattern(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()

	batch := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("del pattern %s: %w", pattern, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", pattern, err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("del pattern %s: %w", pattern, err)
		}
	}
	return nil
}

// Ping implements outbound.KVStore.
func (s *KVStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close implements outbound.KVStore.
func (s *KVStore) Close() error {
	return s.client.Close()
}

// formatScore renders a score bound for ZRemRangeByScore, mapping infinities
// to Redis's "-inf"/"+inf" notation.
func formatScore(f float64) string {
	switch {
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsInf(f, 1):
		return "+inf"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// Compile-time interface verification.
var _ outbound.KVStore = (*KVStore)(nil)
