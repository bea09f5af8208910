package rest

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck/internal/ctxkey"
)

// requestIDMiddleware assigns each request a UUID, stores an enriched
// logger in the context, and echoes the ID back in X-Request-ID.
func (h *Handler) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)

		logger := h.logger.With("request_id", id, "method", r.Method, "path", r.URL.Path)
		ctx := context.WithValue(r.Context(), ctxkey.LoggerKey{}, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// realIPMiddleware resolves the client's IP address for rate limiting.
// It checks X-Forwarded-For and X-Real-IP (reverse proxy support), then
// falls back to RemoteAddr. Only the first X-Forwarded-For entry is
// trusted to avoid spoofing by appended hops.
func realIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxkey.ClientIPKey{}, extractRealIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractRealIP extracts the client's real IP address from the request.
func extractRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records request counters and durations per route
// pattern. It sits directly around the mux: ServeMux sets Pattern on the
// request it receives, so reading r.Pattern after next.ServeHTTP only
// works when no middleware in between swaps in a request copy.
func (h *Handler) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		h.metrics.RequestsTotal.WithLabelValues(r.Method, route, statusClass(rec.status)).Inc()
		h.metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		h.stats.RecordRequest()
		h.stats.RecordRoute(route)
		if rec.status >= 500 {
			h.stats.RecordError()
		}
	})
}

// statusClass buckets status codes (2xx, 4xx, ...) to bound label
// cardinality.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
