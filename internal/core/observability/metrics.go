// Package observability holds the Prometheus collectors recorded by the
// gateway's HTTP, codec, cache and event paths.
package observability

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type collectors struct {
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	codecOpsTotal              *prometheus.CounterVec
	batchSize                  *prometheus.HistogramVec
	cacheOpTotal               *prometheus.CounterVec
	cacheOpDuration            *prometheus.HistogramVec
	cacheResults               *prometheus.CounterVec
	eventsTotal                *prometheus.CounterVec
}

var (
	mu  sync.RWMutex
	cur *collectors
)

func init() {
	cur = newCollectors(prometheus.DefaultRegisterer)
}

// Init re-registers every collector on reg. With enabled=false the collectors
// go to a throwaway registry.
func Init(reg prometheus.Registerer, enabled bool) {
	if reg == nil || !enabled {
		reg = prometheus.NewRegistry()
	}
	c := newCollectors(reg)
	mu.Lock()
	cur = c
	mu.Unlock()
}

func get() *collectors {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

func newCollectors(reg prometheus.Registerer) *collectors {
	f := promauto.With(reg)
	return &collectors{
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
			[]string{"method", "route", "status"},
		),
		codecOpsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codec_ops_total",
				Help: "Codec item operations by outcome.",
			},
			[]string{"codec", "op", "outcome"},
		),
		batchSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codec_batch_size",
				Help:    "Number of items per batch request.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 9), // 1 to 65536
			},
			[]string{"codec", "op"},
		),
		cacheOpTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_op_total",
				Help: "Cache backend operations by result.",
			},
			[]string{"op", "result"},
		),
		cacheOpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cache_operation_duration_seconds",
				Help:    "Latency of cache backend operations.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
			[]string{"op"},
		),
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_results_total",
				Help: "Memo cache lookups by outcome.",
			},
			[]string{"outcome"},
		),
		eventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batch_events_total",
				Help: "Batch events by publish outcome.",
			},
			[]string{"outcome"},
		),
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	c := get()
	st := strconv.Itoa(status)
	c.httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	c.httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveCodec counts n items with the same outcome ("ok", "invalid", "error").
func ObserveCodec(codecName, op, outcome string, n int) {
	if n <= 0 {
		return
	}
	get().codecOpsTotal.WithLabelValues(codecName, op, outcome).Add(float64(n))
}

func ObserveBatch(codecName, op string, n int) {
	get().batchSize.WithLabelValues(codecName, op).Observe(float64(n))
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	c := get()
	res := "ok"
	if err != nil {
		res = "error"
	}
	c.cacheOpTotal.WithLabelValues(op, res).Inc()
	c.cacheOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func AddCacheHits(n int) {
	if n > 0 {
		get().cacheResults.WithLabelValues("hit").Add(float64(n))
	}
}

func AddCacheMisses(n int) {
	if n > 0 {
		get().cacheResults.WithLabelValues("miss").Add(float64(n))
	}
}

func IncEvent(outcome string) {
	get().eventsTotal.WithLabelValues(outcome).Inc()
}
