package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNew_RegistersAllInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RequestsTotal.WithLabelValues("GET", "/api/services", "ok").Inc()
	m.RequestDuration.WithLabelValues("GET", "/api/services").Observe(0.042)
	m.RateLimitedTotal.WithLabelValues("bulk").Inc()
	m.CacheHitsTotal.Inc()
	m.CacheMissesTotal.Inc()
	m.ProbesTotal.WithLabelValues("operational").Inc()
	m.AnalysisRequests.WithLabelValues("logs", "success").Inc()
	m.AnalysisDuration.WithLabelValues("logs").Observe(1.5)
	m.GroqCalls.WithLabelValues("success").Inc()
	m.GroqDuration.Observe(0.8)
	m.ActiveAnalyses.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]bool{
		"opsdeck_requests_total":           false,
		"opsdeck_request_duration_seconds": false,
		"opsdeck_rate_limited_total":       false,
		"opsdeck_cache_hits_total":         false,
		"opsdeck_cache_misses_total":       false,
		"opsdeck_health_probes_total":      false,
		"ai_analysis_requests_total":       false,
		"ai_analysis_duration_seconds":     false,
		"groq_api_calls_total":             false,
		"active_ai_analyses":               false,
		"groq_api_duration_seconds":        false,
	}
	for _, mf := range families {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected metric family %s to be registered", name)
		}
	}
}

func TestRateLimitedCounter_IncrementsPerClass(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RateLimitedTotal.WithLabelValues("login").Inc()
	m.RateLimitedTotal.WithLabelValues("login").Inc()
	m.RateLimitedTotal.WithLabelValues("api").Inc()

	var got dto.Metric
	if err := m.RateLimitedTotal.WithLabelValues("login").Write(&got); err != nil {
		t.Fatal(err)
	}
	if got.Counter.GetValue() != 2 {
		t.Errorf("expected login count 2, got %f", got.Counter.GetValue())
	}

	if err := m.RateLimitedTotal.WithLabelValues("api").Write(&got); err != nil {
		t.Fatal(err)
	}
	if got.Counter.GetValue() != 1 {
		t.Errorf("expected api count 1, got %f", got.Counter.GetValue())
	}
}

func TestRequestDuration_RecordsObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RequestDuration.WithLabelValues("POST", "/api/logs").Observe(0.01)
	m.RequestDuration.WithLabelValues("POST", "/api/logs").Observe(0.02)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, mf := range families {
		if mf.GetName() != "opsdeck_request_duration_seconds" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "route" && lp.GetValue() == "/api/logs" {
					if metric.GetHistogram().GetSampleCount() != 2 {
						t.Errorf("expected 2 observations, got %d", metric.GetHistogram().GetSampleCount())
					}
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected to find request_duration_seconds with route=/api/logs")
	}
}
