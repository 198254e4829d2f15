package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the mind map service metrics.
type Registry struct {
	RendersTotal        *prometheus.CounterVec
	RenderDuration      *prometheus.HistogramVec
	FetchesTotal        *prometheus.CounterVec
	DanglingReferences  prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.RendersTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindmap_renders_total",
			Help: "Total number of render passes",
		},
		[]string{"format", "status"},
	)
	r.RenderDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindmap_render_duration_seconds",
			Help:    "Render pass latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)
	r.FetchesTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindmap_fetches_total",
			Help: "Remote dataset fetches by outcome",
		},
		[]string{"status"},
	)
	r.DanglingReferences = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "mindmap_dangling_references_total",
			Help: "Connections skipped because an endpoint node is missing",
		},
	)
	r.HTTPRequestsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindmap_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	r.HTTPRequestDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindmap_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	return r
}

func (r *Registry) RecordRender(format, status string, d time.Duration) {
	r.RendersTotal.WithLabelValues(format, status).Inc()
	r.RenderDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (r *Registry) RecordFetch(status string) {
	r.FetchesTotal.WithLabelValues(status).Inc()
}

func (r *Registry) RecordDangling(n int) {
	r.DanglingReferences.Add(float64(n))
}

func (r *Registry) RecordHTTPRequest(method, route, status string, d time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
