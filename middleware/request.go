// Package middleware provides dispatch handlers that run ahead of the
// controllers: request ids, logging, CORS, metrics, body parsing, rate
// limiting and access token checks, plus the static page and not-found
// terminals.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stevemurr/simple-config-server/dispatch"
	"github.com/stevemurr/simple-config-server/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID takes the request id from the X-Request-ID header or generates
// one, stores it in the request context and echoes it in the response.
func RequestID() dispatch.Handler {
	return dispatch.HandlerFunc(func(w *dispatch.Response, r *dispatch.Request, next dispatch.Next) error {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		r.SetContext(logging.WithRequestID(r.Context(), id))
		next()
		return nil
	})
}

// Logger logs each request on arrival and again once the rest of the chain
// has produced a response.
func Logger(logger *slog.Logger) dispatch.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "http"))

	return dispatch.HandlerFunc(func(w *dispatch.Response, r *dispatch.Request, next dispatch.Next) error {
		start := time.Now()
		logger.DebugContext(r.Context(), "incoming request",
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
		)

		next()

		logger.InfoContext(r.Context(), "request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", w.Status()),
			slog.Int("bytes", w.BytesWritten()),
			slog.String("duration", time.Since(start).String()),
		)
		return nil
	})
}

// CORS sets the cross-origin headers and answers preflight requests. A
// single "*" entry allows every origin.
func CORS(allowedOrigins []string) dispatch.Handler {
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSpace(o)] = true
	}

	return dispatch.HandlerFunc(func(w *dispatch.Response, r *dispatch.Request, next dispatch.Next) error {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Access-Token, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "Location, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.SetStatus(http.StatusNoContent)
			return w.End("")
		}
		next()
		return nil
	})
}
