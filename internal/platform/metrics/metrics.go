// Package metrics exposes Prometheus instruments for the HTTP surface and
// for learning activity, registered on a private registry.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nepalijets/nepalijets-api/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nepalijets"

// Metrics holds every collector of the service.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ReviewCounter   *prometheus.CounterVec
	EventCounter    *prometheus.CounterVec
	PathLength      prometheus.Histogram
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		ReviewCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reviews_total",
				Help:      "Recorded practice results by outcome",
			},
			[]string{"outcome"},
		),
		EventCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "learning_events_total",
				Help:      "Learning events emitted by type",
			},
			[]string{"type"},
		),
		PathLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generated_path_length",
				Help:      "Number of items in generated learning paths",
				Buckets:   prometheus.LinearBuckets(0, 5, 11),
			},
		),
	}

	m.registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.ReviewCounter,
		m.EventCounter,
		m.PathLength,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records the count and latency of every request, labelled by
// the matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveReview counts one recorded result. Ratings of 3 and above pass.
func (m *Metrics) ObserveReview(performance int) {
	outcome := "failed"
	switch {
	case performance >= 4:
		outcome = "correct"
	case performance == 3:
		outcome = "passed"
	}
	m.ReviewCounter.WithLabelValues(outcome).Inc()
}

// ObservePath records the length of a generated path.
func (m *Metrics) ObservePath(length int) {
	m.PathLength.Observe(float64(length))
}

// HandleEvent implements events.EventHandler by counting events per type.
func (m *Metrics) HandleEvent(_ context.Context, event *events.LearningEvent) error {
	m.EventCounter.WithLabelValues(event.Type).Inc()
	return nil
}

var _ events.EventHandler = (*Metrics)(nil)
