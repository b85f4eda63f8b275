package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/stevemurr/simple-config-server/dispatch"
)

// RateLimiter rejects requests beyond a token bucket rate with 429.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter allows rps requests per second with bursts of up to burst.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger.With(slog.String("component", "ratelimit")),
	}
}

func (rl *RateLimiter) Serve(w *dispatch.Response, r *dispatch.Request, next dispatch.Next) error {
	if !rl.limiter.Allow() {
		rl.logger.WarnContext(r.Context(), "rate limit exceeded",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
		)
		w.Header().Set("Retry-After", "1")
		w.SetStatus(http.StatusTooManyRequests)
		return w.End("Too Many Requests")
	}
	next()
	return nil
}
