// Package metricscache decorates an httpcache.Store with Prometheus
// metrics: operation counts, latency histograms, and hit/miss results
// for Match, following the corpus's promauto-based instrumentation style.
package metricscache

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fetchstore/httpcache"
)

// Config configures the metric names and registry used by a Store.
type Config struct {
	// Registry is the Prometheus registerer to publish to. Defaults to
	// prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
	// Namespace prefixes every metric name. Defaults to "httpcache".
	Namespace string
	// Subsystem further scopes metric names. Optional.
	Subsystem string
}

// Store wraps an httpcache.Store, recording operation counts and latency.
type Store struct {
	store httpcache.Store

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New wraps store, publishing metrics per cfg.
func New(store httpcache.Store, cfg Config) *Store {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "httpcache"
	}
	factory := promauto.With(cfg.Registry)

	return &Store{
		store: store,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "store_operations_total",
			Help:      "Total number of store operations by operation and result.",
		}, []string{"operation", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of store operations in seconds.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"operation"}),
	}
}

func (s *Store) observe(operation string, start time.Time, err error, extra string) {
	result := "ok"
	if err != nil {
		result = "error"
	} else if extra != "" {
		result = extra
	}
	s.requests.WithLabelValues(operation, result).Inc()
	s.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (s *Store) Name() string { return "metricscache:" + s.store.Name() }

func (s *Store) Match(ctx context.Context, req *http.Request) (*httpcache.Entry, bool, error) {
	start := time.Now()
	entry, ok, err := s.store.Match(ctx, req)
	result := "miss"
	if ok {
		result = "hit"
	}
	s.observe("match", start, err, result)
	return entry, ok, err
}

func (s *Store) Put(ctx context.Context, req *http.Request, resp *http.Response) (*http.Response, error) {
	start := time.Now()
	out, err := s.store.Put(ctx, req, resp)
	s.observe("put", start, err, "")
	return out, err
}

func (s *Store) Delete(ctx context.Context, req *http.Request) (bool, error) {
	start := time.Now()
	deleted, err := s.store.Delete(ctx, req)
	s.observe("delete", start, err, "")
	return deleted, err
}

// RecordHTTPRequest records an end-to-end client request outcome,
// independent of the underlying store operation metrics above.
func (s *Store) RecordHTTPRequest(collector *HTTPCollector, method, cacheStatus string, statusCode int, duration time.Duration) {
	collector.requests.WithLabelValues(method, cacheStatus, strconv.Itoa(statusCode)).Inc()
	collector.duration.WithLabelValues(method, cacheStatus).Observe(duration.Seconds())
}

// HTTPCollector publishes Client-level request metrics, separate from the
// per-Store operation metrics above since a Client may compose multiple
// stores (see wrapper/multistore).
type HTTPCollector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPCollector registers Client-level metrics per cfg.
func NewHTTPCollector(cfg Config) *HTTPCollector {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "httpcache"
	}
	factory := promauto.With(cfg.Registry)

	return &HTTPCollector{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, cache status and status code.",
		}, []string{"method", "cache_status", "status_code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds by method and cache status.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30},
		}, []string{"method", "cache_status"}),
	}
}
