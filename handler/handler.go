// Package handler wires the HTTP routes of the configuration server.
package handler

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stevemurr/simple-config-server/config"
	"github.com/stevemurr/simple-config-server/configuration"
	"github.com/stevemurr/simple-config-server/dispatch"
	"github.com/stevemurr/simple-config-server/middleware"
	"github.com/stevemurr/simple-config-server/session"
)

// Dependencies are the services the routes are built on.
type Dependencies struct {
	Logger         *slog.Logger
	Sessions       *session.Manager
	Authenticator  Authenticator
	Configurations *configuration.Service

	// Registry receives the request metrics and is served on /metrics.
	// A private registry is created when nil.
	Registry *prometheus.Registry
}

// New builds the dispatcher. Routes run in this order: request id, logging,
// CORS, metrics, body parsing, the access check on the configuration
// endpoints, the login rate limit, the controllers, the health check, the
// test page, /metrics and finally not-found.
func New(cfg *config.Config, deps Dependencies) *dispatch.Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	d := dispatch.New(dispatch.WithLogger(logger))

	d.Use(middleware.RequestID())
	d.Use(middleware.Logger(logger))
	d.Use(middleware.CORS(cfg.HTTP.AllowedOrigins))
	d.Use(middleware.NewMetrics(reg))
	middleware.RegisterBodyParser(d, cfg.HTTP.BodyLimit)

	protected := "^" + regexp.QuoteMeta(strings.ToLower(cfg.Configurations.BaseURL)) + "(.*)"
	d.Add(dispatch.MustCompile(protected), "", middleware.AccessChecker(deps.Sessions, cfg.Auth.AccessTokenHeader))

	if cfg.Auth.LoginRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.Auth.LoginRPS, cfg.Auth.LoginBurst, logger)
		d.Route(cfg.Auth.BaseURL+"/login", http.MethodPost, limiter)
	}

	NewAuthController(cfg.Auth.BaseURL, cfg.Auth.AccessTokenHeader, deps.Sessions, deps.Authenticator, logger).Register(d)
	NewConfigurationController(cfg.Configurations.BaseURL, deps.Configurations).Register(d)

	d.Route("/health", http.MethodGet, dispatch.HandlerFunc(health))
	if cfg.HTTP.IndexFile != "" {
		d.Route("/", http.MethodGet, middleware.SendFile(cfg.HTTP.IndexFile))
	}
	d.Route("/metrics", http.MethodGet, middleware.MetricsEndpoint(reg))
	d.Use(middleware.NotFound(logger))
	return d
}

func health(w *dispatch.Response, _ *dispatch.Request, _ dispatch.Next) error {
	return w.SendJSON(map[string]string{"status": "healthy"}, http.StatusOK)
}
