package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gameswap/cmd/internal/market/feed"
)

// Metrics owns a private Prometheus registry so the /metrics endpoint only
// exposes instruments this server registered.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics builds the registry and the HTTP instruments. When hub is
// non-nil a gauge tracks open feed subscriptions.
func NewMetrics(hub *feed.Hub) *Metrics {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gameswap_http_requests_total",
		Help: "HTTP requests processed, by method and status class.",
	}, []string{"method", "class"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gameswap_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds, by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	reg.MustRegister(requests, duration, collectors.NewGoCollector())

	if hub != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gameswap_feed_subscribers",
			Help: "Open offer-feed websocket subscriptions.",
		}, func() float64 {
			return float64(hub.SubscriberCount())
		}))
	}

	return &Metrics{
		registry: reg,
		requests: requests,
		duration: duration,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WithMetrics records one counter increment and one latency sample per
// request.
func WithMetrics(next http.Handler, m *Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		next.ServeHTTP(lrw, r)

		m.requests.WithLabelValues(r.Method, statusClass(lrw.status)).Inc()
		m.duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
