package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stevemurr/simple-config-server/dispatch"
)

// Metrics records request counts and latencies.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the request collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests handled, by method and status code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time spent handling HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) Serve(w *dispatch.Response, r *dispatch.Request, next dispatch.Next) error {
	start := time.Now()
	next()

	code := w.Status()
	if code == 0 {
		code = http.StatusOK
	}
	m.requests.WithLabelValues(r.Method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	return nil
}

// MetricsEndpoint serves the metrics gathered by g in the Prometheus text
// format.
func MetricsEndpoint(g prometheus.Gatherer) dispatch.Handler {
	return dispatch.Wrap(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
