package rest

import (
	"net/http"
	"strconv"

	"github.com/opsdeck/opsdeck/internal/ctxkey"
	"github.com/opsdeck/opsdeck/internal/domain/ratelimit"
)

// rateLimit wraps a handler with a sliding-window check under the given
// class. Identity prefers the authenticated user, then the resolved client
// IP, then the shared anonymous bucket. Limited requests get a 429 with
// Retry-After set to the class window.
// A nil limiter disables enforcement (rate_limit.enabled: false).
func (h *Handler) rateLimit(class ratelimit.Class, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.limiter == nil {
			next(w, r)
			return
		}
		var userID, ip string
		if claims := claimsFromContext(r.Context()); claims != nil {
			userID = claims.Subject
		}
		if v, ok := r.Context().Value(ctxkey.ClientIPKey{}).(string); ok {
			ip = v
		}
		identity := ratelimit.ResolveIdentity(userID, ip)

		if h.limiter.Check(r.Context(), identity, class) {
			policy := ratelimit.PolicyFor(class)
			h.metrics.RateLimitedTotal.WithLabelValues(string(class)).Inc()
			h.stats.RecordRateLimited()
			h.requestLogger(r).Warn("request rate limited",
				"class", class, "identity", identity)

			w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
			h.respondError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}
