package http

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the HTTP API, served by the
// /metrics endpoint.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
}

// NewMetrics creates and registers the HTTP metrics.
//
// This function uses sync.Once so the metrics are only registered once
// globally, preventing "duplicate metrics collector registration" panics.
//
// Metrics:
//   - docqd_http_requests_total{method, path, status} - request count
//   - docqd_http_request_duration_seconds{method, path} - latency histogram
//   - docqd_http_requests_in_flight - currently active requests
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "docqd_http_requests_total",
					Help: "Total HTTP requests by method, route, and status code",
				},
				[]string{"method", "path", "status"},
			),

			RequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "docqd_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds by method and route",
					Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
				},
				[]string{"method", "path"},
			),

			InFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "docqd_http_requests_in_flight",
					Help: "Number of HTTP requests currently being served",
				},
			),
		}
	})
	return globalMetrics
}

// Middleware returns an Echo middleware that records request counts,
// latency, and in-flight requests. Series are labeled by the route
// template, not the raw URI, so document IDs do not explode metric
// cardinality.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			m.InFlight.Inc()

			err := next(c)

			m.InFlight.Dec()

			path := c.Path()
			if path == "" {
				path = "/"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			m.RequestsTotal.WithLabelValues(method, path, status).Inc()
			m.RequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
