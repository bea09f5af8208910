package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opsdeck/opsdeck/internal/domain/ratelimit"
	"github.com/opsdeck/opsdeck/internal/metrics"
	"github.com/opsdeck/opsdeck/internal/service"
)

// Pinger reports backend connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler wires the application services into the HTTP API.
type Handler struct {
	catalog     *service.CatalogService
	incidents   *service.IncidentService
	deployments *service.DeploymentService
	logs        *service.LogService
	actions     *service.ActionService
	auth        *service.AuthService
	analysis    *service.AnalysisService
	stats       *service.StatsService
	limiter     *ratelimit.Limiter
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	logger      *slog.Logger

	db           Pinger
	kv           Pinger
	llmAvailable func() bool
}

// Option configures a Handler dependency.
type Option func(*Handler)

// WithCatalogService sets the service catalog.
func WithCatalogService(s *service.CatalogService) Option {
	return func(h *Handler) { h.catalog = s }
}

// WithIncidentService sets the incident service.
func WithIncidentService(s *service.IncidentService) Option {
	return func(h *Handler) { h.incidents = s }
}

// WithDeploymentService sets the deployment service.
func WithDeploymentService(s *service.DeploymentService) Option {
	return func(h *Handler) { h.deployments = s }
}

// WithLogService sets the log service.
func WithLogService(s *service.LogService) Option {
	return func(h *Handler) { h.logs = s }
}

// WithActionService sets the action service.
func WithActionService(s *service.ActionService) Option {
	return func(h *Handler) { h.actions = s }
}

// WithAuthService sets the auth service.
func WithAuthService(s *service.AuthService) Option {
	return func(h *Handler) { h.auth = s }
}

// WithAnalysisService sets the AI analysis service.
func WithAnalysisService(s *service.AnalysisService) Option {
	return func(h *Handler) { h.analysis = s }
}

// WithHealthChecks sets the backends reported by the health endpoint.
func WithHealthChecks(db, kv Pinger, llmAvailable func() bool) Option {
	return func(h *Handler) {
		h.db = db
		h.kv = kv
		h.llmAvailable = llmAvailable
	}
}

// NewHandler creates a Handler.
func NewHandler(limiter *ratelimit.Limiter, stats *service.StatsService, m *metrics.Metrics, registry *prometheus.Registry, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		limiter:  limiter,
		stats:    stats,
		metrics:  m,
		registry: registry,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the full API handler with the middleware chain applied:
// request ID, real IP, auth, metrics, then per-route rate limiting.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	// Auth.
	mux.HandleFunc("POST /api/auth/register", h.rateLimit(ratelimit.ClassAuth, h.handleRegister))
	mux.HandleFunc("POST /api/auth/login", h.rateLimit(ratelimit.ClassLogin, h.handleLogin))
	mux.HandleFunc("GET /api/auth/me", h.rateLimit(ratelimit.ClassAPI, h.requireAuth(h.handleMe)))

	// Service catalog.
	mux.HandleFunc("GET /api/services", h.rateLimit(ratelimit.ClassAPI, h.handleListServices))
	mux.HandleFunc("GET /api/services/{id}", h.rateLimit(ratelimit.ClassAPI, h.handleGetService))
	mux.HandleFunc("POST /api/services", h.rateLimit(ratelimit.ClassCRUD, h.requireWriter(h.handleCreateService)))
	mux.HandleFunc("PUT /api/services/{id}", h.rateLimit(ratelimit.ClassCRUD, h.requireWriter(h.handleUpdateService)))
	mux.HandleFunc("DELETE /api/services/{id}", h.rateLimit(ratelimit.ClassCRUD, h.requireAdmin(h.handleDeleteService)))

	// Incidents.
	mux.HandleFunc("GET /api/incidents", h.rateLimit(ratelimit.ClassAPI, h.handleListIncidents))
	mux.HandleFunc("GET /api/incidents/{id}", h.rateLimit(ratelimit.ClassAPI, h.handleGetIncident))
	mux.HandleFunc("POST /api/incidents", h.rateLimit(ratelimit.ClassIncident, h.requireWriter(h.handleCreateIncident)))
	mux.HandleFunc("PUT /api/incidents/{id}", h.rateLimit(ratelimit.ClassIncident, h.requireWriter(h.handleUpdateIncident)))
	mux.HandleFunc("DELETE /api/incidents/{id}", h.rateLimit(ratelimit.ClassIncident, h.requireAdmin(h.handleDeleteIncident)))

	// Deployments.
	mux.HandleFunc("GET /api/deployments", h.rateLimit(ratelimit.ClassAPI, h.handleListDeployments))
	mux.HandleFunc("GET /api/deployments/{id}", h.rateLimit(ratelimit.ClassAPI, h.handleGetDeployment))
	mux.HandleFunc("POST /api/deployments", h.rateLimit(ratelimit.ClassCRUD, h.requireWriter(h.handleCreateDeployment)))
	mux.HandleFunc("PUT /api/deployments/{id}", h.rateLimit(ratelimit.ClassCRUD, h.requireWriter(h.handleUpdateDeployment)))
	mux.HandleFunc("DELETE /api/deployments/{id}", h.rateLimit(ratelimit.ClassCRUD, h.requireAdmin(h.handleDeleteDeployment)))

	// Logs.
	mux.HandleFunc("GET /api/logs", h.rateLimit(ratelimit.ClassAPI, h.handleListLogs))
	mux.HandleFunc("GET /api/logs/{id}", h.rateLimit(ratelimit.ClassAPI, h.handleGetLog))
	mux.HandleFunc("POST /api/logs", h.rateLimit(ratelimit.ClassLogs, h.requireWriter(h.handleIngestLog)))
	mux.HandleFunc("POST /api/logs/bulk", h.rateLimit(ratelimit.ClassBulk, h.requireWriter(h.handleIngestLogBatch)))
	mux.HandleFunc("DELETE /api/logs/{id}", h.rateLimit(ratelimit.ClassCRUD, h.requireAdmin(h.handleDeleteLog)))

	// Actions.
	mux.HandleFunc("GET /api/actions", h.rateLimit(ratelimit.ClassAPI, h.handleListActions))
	mux.HandleFunc("GET /api/actions/{id}", h.rateLimit(ratelimit.ClassAPI, h.handleGetAction))
	mux.HandleFunc("GET /api/actions/incident/{id}", h.rateLimit(ratelimit.ClassAPI, h.handleListIncidentActions))
	mux.HandleFunc("POST /api/actions", h.rateLimit(ratelimit.ClassCRUD, h.requireWriter(h.handleCreateAction)))
	mux.HandleFunc("PUT /api/actions/{id}", h.rateLimit(ratelimit.ClassCRUD, h.requireWriter(h.handleUpdateAction)))
	mux.HandleFunc("DELETE /api/actions/{id}", h.rateLimit(ratelimit.ClassCRUD, h.requireAdmin(h.handleDeleteAction)))

	// Stats and AI analysis.
	mux.HandleFunc("GET /api/stats", h.rateLimit(ratelimit.ClassAPI, h.requireAuth(h.handleStats)))
	mux.HandleFunc("POST /api/ai/analyze", h.rateLimit(ratelimit.ClassAPI, h.requireAuth(h.handleAnalyze)))

	// Metrics must wrap the mux directly: the mux stamps the matched
	// pattern onto the request it serves, and outer middlewares that
	// re-context the request would leave that copy's Pattern unset.
	var handler http.Handler = mux
	handler = h.metricsMiddleware(handler)
	handler = h.authMiddleware(handler)
	handler = realIPMiddleware(handler)
	handler = h.requestIDMiddleware(handler)
	return handler
}
