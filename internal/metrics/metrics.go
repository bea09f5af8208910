// Package metrics holds the Prometheus instruments shared across adapters
// and services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for opsdeck.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RateLimitedTotal *prometheus.CounterVec
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	ProbesTotal      *prometheus.CounterVec

	// AI analysis instruments keep their historical names, without the
	// opsdeck namespace, so existing dashboards keep working.
	AnalysisRequests *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	GroqCalls        *prometheus.CounterVec
	GroqDuration     prometheus.Histogram
	ActiveAnalyses   prometheus.Gauge
}

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opsdeck",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "opsdeck",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimitedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opsdeck",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"class"},
		),
		CacheHitsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "opsdeck",
				Name:      "cache_hits_total",
				Help:      "Read-through cache hits",
			},
		),
		CacheMissesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "opsdeck",
				Name:      "cache_misses_total",
				Help:      "Read-through cache misses",
			},
		),
		ProbesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opsdeck",
				Name:      "health_probes_total",
				Help:      "Health probes performed, by observed result",
			},
			[]string{"result"},
		),
		AnalysisRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_analysis_requests_total",
				Help: "AI analysis requests, by source and outcome",
			},
			[]string{"source", "status"},
		),
		AnalysisDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_analysis_duration_seconds",
				Help:    "End-to-end AI analysis duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		GroqCalls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groq_api_calls_total",
				Help: "Groq API calls, by outcome",
			},
			[]string{"status"},
		),
		GroqDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "groq_api_duration_seconds",
				Help:    "Groq API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ActiveAnalyses: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "active_ai_analyses",
				Help: "AI analyses currently in flight",
			},
		),
	}
}
