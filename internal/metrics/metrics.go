// Package metrics exposes Prometheus collectors for the calendar service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the collectors and the registry they live in.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	layoutsBuilt      prometheus.Counter
	layoutDuration    prometheus.Histogram
	layoutEvents      prometheus.Histogram
	overflowEvents    prometheus.Counter
	layoutCacheHits   prometheus.Counter
	droppedRecords    *prometheus.CounterVec
	refreshRuns       *prometheus.CounterVec
	refreshDuration   prometheus.Histogram
	storeVersion      prometheus.Gauge
	feedErrors        prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpRequestLength *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets for latency histograms.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// NewManager creates a Manager with its own registry, so tests and multiple
// servers never collide on the default registerer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "coursecal",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.init()
	return m
}

func (m *Manager) init() {
	f := promauto.With(m.registry)

	m.layoutsBuilt = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "layout", Name: "built_total",
		Help: "Month layouts computed (cache misses).",
	})
	m.layoutDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "layout", Name: "duration_seconds",
		Help: "Time to normalize and lay out one month.", Buckets: m.buckets,
	})
	m.layoutEvents = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "layout", Name: "events",
		Help: "Events considered per month layout.", Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	m.overflowEvents = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "layout", Name: "unassigned_events_total",
		Help: "Events that got no lane and are only reachable via the day detail.",
	})
	m.layoutCacheHits = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "layout", Name: "cache_hits_total",
		Help: "Month layouts served from cache.",
	})
	m.droppedRecords = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "normalize", Name: "dropped_records_total",
		Help: "Source records dropped during normalization.",
	}, []string{"category"})
	m.refreshRuns = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "refresh", Name: "runs_total",
		Help: "Store refresh runs by outcome.",
	}, []string{"outcome"})
	m.refreshDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "refresh", Name: "duration_seconds",
		Help: "Duration of a store refresh.", Buckets: m.buckets,
	})
	m.storeVersion = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "store", Name: "version",
		Help: "Current record store version.",
	})
	m.feedErrors = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "refresh", Name: "feed_errors_total",
		Help: "Feed fetch or parse failures.",
	})
	m.httpRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	m.httpRequestLength = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help: "HTTP request latency by route.", Buckets: m.buckets,
	}, []string{"route"})
}

// ObserveLayout records one computed layout.
func (m *Manager) ObserveLayout(d time.Duration, events, unassigned int) {
	m.layoutsBuilt.Inc()
	m.layoutDuration.Observe(d.Seconds())
	m.layoutEvents.Observe(float64(events))
	m.overflowEvents.Add(float64(unassigned))
}

func (m *Manager) LayoutCacheHit() {
	m.layoutCacheHits.Inc()
}

// AddDropped counts normalization drops for a category.
func (m *Manager) AddDropped(category string, n int) {
	if n <= 0 {
		return
	}
	m.droppedRecords.WithLabelValues(category).Add(float64(n))
}

// ObserveRefresh records a refresh run and the resulting store version.
func (m *Manager) ObserveRefresh(d time.Duration, version uint64, feedErrors int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.refreshRuns.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(d.Seconds())
	m.feedErrors.Add(float64(feedErrors))
	if err == nil {
		m.storeVersion.Set(float64(version))
	}
}

// ObserveHTTP records one request.
func (m *Manager) ObserveHTTP(route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpRequestLength.WithLabelValues(route).Observe(d.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
