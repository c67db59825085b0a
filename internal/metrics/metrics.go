// Package metrics exposes Prometheus collectors for HTTP traffic and
// inventory activity.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/atinyakov/PartKeeper/internal/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "partkeeper"

// Metrics owns a private registry so tests and servers do not share global state.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	usageEvents   prometheus.Counter
	usageQuantity prometheus.Counter
	mutations     *prometheus.CounterVec
}

// New registers all collectors, including the Go runtime and process ones.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		usageEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_events_total",
			Help:      "Recorded usage events.",
		}),
		usageQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_quantity_total",
			Help:      "Units taken out of stock by usage events.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_mutations_total",
			Help:      "Inventory mutations by operation and result.",
		}, []string{"op", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.usageEvents, m.usageQuantity, m.mutations,
	)
	return m
}

// UsageRecorded counts one usage event of quantity units.
func (m *Metrics) UsageRecorded(quantity int) {
	m.usageEvents.Inc()
	m.usageQuantity.Add(float64(quantity))
}

// Mutation counts an inventory operation by its outcome.
func (m *Metrics) Mutation(op string, err error) {
	m.mutations.WithLabelValues(op, Result(err)).Inc()
}

// Result maps an operation error to a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrBusy):
		return "busy"
	case errors.Is(err, models.ErrTimeout):
		return "timeout"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrDuplicateKey):
		return "duplicate"
	case errors.Is(err, models.ErrInvalidAmount), errors.Is(err, models.ErrInvalidPart):
		return "invalid"
	default:
		return "error"
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware observes every request under its chi route pattern, so
// /edit/SCR-001 and /edit/BLT-002 share one series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
