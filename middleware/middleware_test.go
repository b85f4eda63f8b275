package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/simple-config-server/auth"
	"github.com/stevemurr/simple-config-server/config"
	"github.com/stevemurr/simple-config-server/dispatch"
	"github.com/stevemurr/simple-config-server/logging"
	"github.com/stevemurr/simple-config-server/middleware"
	"github.com/stevemurr/simple-config-server/session"
)

// echo is a terminal handler that reports what the chain left on the request.
type echo struct {
	payload   any
	requestID string
	user      auth.User
	hasUser   bool
	called    int
}

func (e *echo) Serve(w *dispatch.Response, r *dispatch.Request, _ dispatch.Next) error {
	e.called++
	e.payload = r.Payload
	e.requestID = logging.RequestID(r.Context())
	e.user, e.hasUser = auth.UserFrom(r.Context())
	w.SetStatus(http.StatusOK)
	return w.End("ok")
}

func serve(d *dispatch.Dispatcher, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)
	return rec
}

func TestRequestID(t *testing.T) {
	e := &echo{}
	d := dispatch.New()
	d.Use(middleware.RequestID())
	d.Use(e)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := serve(d, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", e.requestID)

	rec = serve(d, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, e.requestID)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	d := dispatch.New()
	d.Use(middleware.RequestID())
	d.Use(middleware.Logger(logger))
	d.Use(&echo{})

	req := httptest.NewRequest(http.MethodGet, "/v1/things?x=1", nil)
	req.Header.Set("X-Request-ID", "req-1")
	serve(d, req)

	out := buf.String()
	assert.Contains(t, out, `"msg":"incoming request"`)
	assert.Contains(t, out, `"url":"/v1/things?x=1"`)
	assert.Contains(t, out, `"msg":"request completed"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"request_id":"req-1"`)
}

func TestCORS(t *testing.T) {
	t.Run("wildcard", func(t *testing.T) {
		d := dispatch.New()
		d.Use(middleware.CORS([]string{"*"}))
		d.Use(&echo{})

		rec := serve(d, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("listed origins", func(t *testing.T) {
		e := &echo{}
		d := dispatch.New()
		d.Use(middleware.CORS([]string{"https://a.example", " https://b.example"}))
		d.Use(e)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://b.example")
		rec := serve(d, req)
		assert.Equal(t, "https://b.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec = serve(d, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://a.example")
		rec = serve(d, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 2, e.called, "preflight stops the chain")
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := dispatch.New()
	d.Use(middleware.NewMetrics(reg))
	d.Route("/metrics", http.MethodGet, middleware.MetricsEndpoint(reg))
	d.Use(middleware.NotFound(nil))

	serve(d, httptest.NewRequest(http.MethodGet, "/missing", nil))
	serve(d, httptest.NewRequest(http.MethodGet, "/missing", nil))

	rec := serve(d, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{code="404",method="GET"} 2`)
	assert.Contains(t, body, `http_request_duration_seconds_count{method="GET"} 2`)
}

func TestBodyParser(t *testing.T) {
	newDispatcher := func(limit int64) (*dispatch.Dispatcher, *echo) {
		e := &echo{}
		d := dispatch.New()
		middleware.RegisterBodyParser(d, limit)
		d.Use(e)
		return d, e
	}

	t.Run("json object", func(t *testing.T) {
		d, e := newDispatcher(0)
		rec := serve(d, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"admin"}`)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"username": "admin"}, e.payload)
	})

	t.Run("blank body", func(t *testing.T) {
		d, e := newDispatcher(0)
		rec := serve(d, httptest.NewRequest(http.MethodPut, "/", strings.NewReader("  \n")))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, e.payload)
	})

	t.Run("invalid json", func(t *testing.T) {
		d, e := newDispatcher(0)
		rec := serve(d, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid JSON", rec.Body.String())
		assert.Zero(t, e.called)
	})

	t.Run("too large", func(t *testing.T) {
		d, e := newDispatcher(8)
		rec := serve(d, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"0123456789"}`)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Zero(t, e.called)
	})

	t.Run("get is not parsed", func(t *testing.T) {
		d, e := newDispatcher(0)
		rec := serve(d, httptest.NewRequest(http.MethodGet, "/", strings.NewReader(`not json`)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, e.payload)
	})
}

func TestRateLimiter(t *testing.T) {
	d := dispatch.New()
	d.Use(middleware.NewRateLimiter(0.001, 2, slog.New(slog.NewTextHandler(io.Discard, nil))))
	d.Use(&echo{})

	for i := 0; i < 2; i++ {
		rec := serve(d, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(d, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestAccessChecker(t *testing.T) {
	sessions := session.NewManager()
	withUser := sessions.Create()
	withUser.Set(auth.SessionKey, auth.User{Name: "admin"})
	anonymous := sessions.Create()

	e := &echo{}
	d := dispatch.New()
	d.Add(dispatch.MustCompile(`^/v1/configurations(.*)`), "", middleware.AccessChecker(sessions, "x-access-token"))
	d.Use(e)

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"no token", "/v1/configurations", "", http.StatusForbidden},
		{"unknown token", "/v1/configurations", "nope", http.StatusForbidden},
		{"session without user", "/v1/configurations/web", anonymous.ID, http.StatusForbidden},
		{"logged in", "/v1/configurations/web", withUser.ID, http.StatusOK},
		{"unprotected path", "/v1/auth/login", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("x-access-token", tt.token)
			}
			rec := serve(d, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/configurations", nil)
	req.Header.Set("X-Access-Token", withUser.ID)
	serve(d, req)
	require.True(t, e.hasUser)
	assert.Equal(t, "admin", e.user.Name)
}

func TestSendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte("<h1>hi</h1>"), 0o644))

	d := dispatch.New()
	d.Route("/", http.MethodGet, middleware.SendFile(path))
	d.Route("/broken", http.MethodGet, middleware.SendFile(filepath.Join(t.TempDir(), "missing.html")))

	rec := serve(d, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<h1>hi</h1>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = serve(d, httptest.NewRequest(http.MethodGet, "/broken", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNotFound(t *testing.T) {
	d := dispatch.New()
	d.Route("/", http.MethodGet, &echo{})
	d.Use(middleware.NotFound(nil))

	rec := serve(d, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", rec.Body.String())

	rec = serve(d, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
