// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/opsdeck/opsdeck/internal/port/outbound"
)

// KVStore implements outbound.KVStore in process memory.
// Thread-safe for concurrent access. For development and testing only:
// state is lost on restart and is not shared across instances.
type KVStore struct {
	mu      sync.Mutex
	strings map[string]stringEntry
	zsets   map[string]*zset
	expiry  map[string]time.Time

	// now is replaceable in tests.
	now func() time.Time
}

type stringEntry struct {
	value []byte
}

type zset struct {
	members map[string]float64
}

// NewKVStore creates an empty in-memory KV store.
func NewKVStore() *KVStore {
	return &KVStore{
		strings: make(map[string]stringEntry),
		zsets:   make(map[string]*zset),
		expiry:  make(map[string]time.Time),
		now:     time.Now,
	}
}

// SetClock overrides the time source used for TTL expiry. For tests.
func (s *KVStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// expired reports whether key has a TTL in the past. Caller holds the lock.
func (s *KVStore) expired(key string) bool {
	deadline, ok := s.expiry[key]
	return ok && s.now().After(deadline)
}

// purge removes an expired key. Caller holds the lock.
func (s *KVStore) purge(key string) {
	delete(s.strings, key)
	delete(s.zsets, key)
	delete(s.expiry, key)
}

// SortedSetAdd implements outbound.KVStore.
func (s *KVStore) SortedSetAdd(ctx context.Context, key, member string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expired(key) {
		s.purge(key)
	}
	z, ok := s.zsets[key]
	if !ok {
		z = &zset{members: make(map[string]float64)}
		s.zsets[key] = z
	}
	z.members[member] = score
	return nil
}

// SortedSetRemoveRangeByScore implements outbound.KVStore.
func (s *KVStore) SortedSetRemoveRangeByScore(ctx context.Context, key string, min, max float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expired(key) {
		s.purge(key)
		return nil
	}
	z, ok := s.zsets[key]
	if !ok {
		return nil
	}
	for member, score := range z.members {
		if score >= min && score <= max {
			delete(z.members, member)
		}
	}
	if len(z.members) == 0 {
		delete(s.zsets, key)
		delete(s.expiry, key)
	}
	return nil
}

// SortedSetCard implements outbound.KVStore.
func (s *KVStore) SortedSetCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expired(key) {
		s.purge(key)
		return 0, nil
	}
	z, ok := s.zsets[key]
	if !ok {
		return 0, nil
	}
	return int64(len(z.members)), nil
}

// Expire implements outbound.KVStore.
func (s *KVStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.strings[key]; !ok {
		if _, ok := s.zsets[key]; !ok {
			return nil
		}
	}
	s.expiry[key] = s.now().Add(ttl)
	return nil
}

// Get implements outbound.KVStore.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expired(key) {
		s.purge(key)
		return nil, outbound.ErrKeyNotFound
	}
	entry, ok := s.strings[key]
	if !ok {
		return nil, outbound.ErrKeyNotFound
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// SetWithTTL implements outbound.KVStore.
func (s *KVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.strings[key] = stringEntry{value: stored}
	if ttl > 0 {
		s.expiry[key] = s.now().Add(ttl)
	} else {
		delete(s.expiry, key)
	}
	return nil
}

// Delete implements outbound.KVStore.
func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		s.purge(key)
	}
	return nil
}

// DeletePattern implements outbound.KVStore.
// Patterns use path.Match glob syntax, matching Redis-style "prefix:*" families.
func (s *KVStore) DeletePattern(ctx context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.strings {
		if ok, _ := path.Match(pattern, key); ok {
			s.purge(key)
		}
	}
	for key := range s.zsets {
		if ok, _ := path.Match(pattern, key); ok {
			s.purge(key)
		}
	}
	return nil
}

// Ping implements outbound.KVStore.
func (s *KVStore) Ping(ctx context.Context) error { return nil }

// Close implements outbound.KVStore.
func (s *KVStore) Close() error { return nil }

// Keys returns all live keys in sorted order. Useful in tests.
func (s *KVStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key := range s.strings {
		if !s.expired(key) {
			keys = append(keys, key)
		}
	}
	for key := range s.zsets {
		if !s.expired(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Compile-time interface verification.
var _ outbound.KVStore = (*KVStore)(nil)
