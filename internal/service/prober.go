package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
	"github.com/opsdeck/opsdeck/internal/metrics"
)

// defaultProbeTimeout bounds a single outbound health check.
const defaultProbeTimeout = 10 * time.Second

// defaultProbeRate caps outbound probes per second across all services so
// a large catalog does not burst against its own targets.
const defaultProbeRate = 5

// Prober polls each service's health check URL on an interval and records
// status transitions.
type Prober struct {
	catalog  *CatalogService
	logs     *LogService
	client   *http.Client
	limiter  *rate.Limiter
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProbeClient replaces the HTTP client used for probes.
func WithProbeClient(client *http.Client) ProberOption {
	return func(p *Prober) { p.client = client }
}

// WithProbeRate caps outbound probes per second.
func WithProbeRate(perSecond float64) ProberOption {
	return func(p *Prober) { p.limiter = rate.NewLimiter(rate.Limit(perSecond), 1) }
}

// NewProber creates a Prober polling every interval.
func NewProber(catalog *CatalogService, logs *LogService, interval time.Duration, m *metrics.Metrics, logger *slog.Logger, opts ...ProberOption) *Prober {
	p := &Prober{
		catalog:  catalog,
		logs:     logs,
		client:   &http.Client{Timeout: defaultProbeTimeout},
		limiter:  rate.NewLimiter(defaultProbeRate, 1),
		interval: interval,
		metrics:  m,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run probes all services every interval until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("health prober started", "interval", p.interval)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("health prober stopped")
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep probes every service with a health check URL once.
func (p *Prober) Sweep(ctx context.Context) {
	services, _, err := p.catalog.List(ctx, monitor.ServiceFilter{}, monitor.Page{Size: 200})
	if err != nil {
		p.logger.Warn("prober could not list services", "error", err)
		return
	}

	for i := range services {
		svc := &services[i]
		if svc.HealthCheckURL == "" {
			continue
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		p.probe(ctx, svc)
	}
}

// probe performs one health check and records a transition if the observed
// status differs from the stored one.
func (p *Prober) probe(ctx context.Context, svc *monitor.Service) {
	observed := p.check(ctx, svc.HealthCheckURL)

	result := "up"
	if observed != monitor.ServiceOperational {
		result = "down"
	}
	p.metrics.ProbesTotal.WithLabelValues(result).Inc()

	if observed == svc.Status {
		return
	}

	if err := p.catalog.SetStatus(ctx, svc.ID, observed); err != nil {
		p.logger.Warn("prober could not update status",
			"service_id", svc.ID, "error", err)
		return
	}
	p.logger.Info("service status transition",
		"service", svc.Name, "from", svc.Status, "to", observed)

	level := monitor.LevelWarn
	if observed == monitor.ServiceOperational {
		level = monitor.LevelInfo
	}
	_, err := p.logs.Ingest(ctx, &monitor.LogEntry{
		ServiceID: svc.ID,
		Level:     level,
		Message:   fmt.Sprintf("health check transition: %s -> %s", svc.Status, observed),
	})
	if err != nil {
		p.logger.Warn("prober could not record transition log",
			"service_id", svc.ID, "error", err)
	}
}

// check performs the HTTP probe. Any 2xx is operational, other responses
// are degraded, transport failures are down.
func (p *Prober) check(ctx context.Context, url string) monitor.ServiceStatus {
	ctx, cancel := context.WithTimeout(ctx, p.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return monitor.ServiceDown
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return monitor.ServiceDown
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return monitor.ServiceOperational
	}
	return monitor.ServiceDegraded
}
