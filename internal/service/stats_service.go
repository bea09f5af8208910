package service

import (
	"sync"
	"sync/atomic"
	"time"
)

// StatsService tracks runtime statistics using lock-free atomic counters.
// All counter operations are safe for concurrent access from multiple
// goroutines.
type StatsService struct {
	started time.Time

	requests    atomic.Int64
	rateLimited atomic.Int64
	errors      atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	// Per-route counters (mutex-protected map).
	mu          sync.Mutex
	routeCounts map[string]int64
}

// NewStatsService creates a new StatsService with all counters initialized
// to zero.
func NewStatsService() *StatsService {
	return &StatsService{
		started:     time.Now().UTC(),
		routeCounts: make(map[string]int64),
	}
}

// RecordRequest increments the served-request counter.
func (s *StatsService) RecordRequest() {
	s.requests.Add(1)
}

// RecordRateLimited increments the rate-limited counter.
func (s *StatsService) RecordRateLimited() {
	s.rateLimited.Add(1)
}

// RecordError increments the error counter.
func (s *StatsService) RecordError() {
	s.errors.Add(1)
}

// RecordCacheHit increments the cache-hit counter.
func (s *StatsService) RecordCacheHit() {
	s.cacheHits.Add(1)
}

// RecordCacheMiss increments the cache-miss counter.
func (s *StatsService) RecordCacheMiss() {
	s.cacheMisses.Add(1)
}

// RecordRoute increments the counter for the given route pattern.
// Empty strings are skipped.
func (s *StatsService) RecordRoute(route string) {
	if route == "" {
		return
	}
	s.mu.Lock()
	s.routeCounts[route]++
	s.mu.Unlock()
}

// Stats holds a snapshot of all counters at a point in time.
type Stats struct {
	UptimeSeconds int64            `json:"uptimeSeconds"`
	Requests      int64            `json:"requests"`
	RateLimited   int64            `json:"rateLimited"`
	Errors        int64            `json:"errors"`
	CacheHits     int64            `json:"cacheHits"`
	CacheMisses   int64            `json:"cacheMisses"`
	RouteCounts   map[string]int64 `json:"routeCounts"`
}

// GetStats returns a snapshot of all counters.
// The snapshot is consistent per-counter but not atomically across all
// counters.
func (s *StatsService) GetStats() Stats {
	s.mu.Lock()
	rc := make(map[string]int64, len(s.routeCounts))
	for k, v := range s.routeCounts {
		rc[k] = v
	}
	s.mu.Unlock()

	return Stats{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Requests:      s.requests.Load(),
		RateLimited:   s.rateLimited.Load(),
		Errors:        s.errors.Load(),
		CacheHits:     s.cacheHits.Load(),
		CacheMisses:   s.cacheMisses.Load(),
		RouteCounts:   rc,
	}
}

// Reset sets all counters to zero.
func (s *StatsService) Reset() {
	s.requests.Store(0)
	s.rateLimited.Store(0)
	s.errors.Store(0)
	s.cacheHits.Store(0)
	s.cacheMisses.Store(0)

	s.mu.Lock()
	s.routeCounts = make(map[string]int64)
	s.mu.Unlock()
}
