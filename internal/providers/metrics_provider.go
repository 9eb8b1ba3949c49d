package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"sitestatus/internal/structures"
	"time"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncStatusWrites(statusType string)
	IncBatchesEnqueued(count int)
	IncDeliveries(result string)
	IncMirrorFailures(topic string)
	IncStoreErrors(op string)
	SetConnections(count int)
	ObserveSnapshotDuration(duration time.Duration)
}

type MetricsProvider struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	statusWrites     *prometheus.CounterVec
	batchesEnqueued  prometheus.Counter
	deliveries       *prometheus.CounterVec
	mirrorFailures   *prometheus.CounterVec
	storeErrors      *prometheus.CounterVec
	connections      prometheus.Gauge
	snapshotDuration prometheus.Histogram
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncStatusWrites(statusType string) {
	m.statusWrites.WithLabelValues(statusType).Inc()
}

func (m *MetricsProvider) IncBatchesEnqueued(count int) {
	m.batchesEnqueued.Add(float64(count))
}

func (m *MetricsProvider) IncDeliveries(result string) {
	m.deliveries.WithLabelValues(result).Inc()
}

func (m *MetricsProvider) IncMirrorFailures(topic string) {
	m.mirrorFailures.WithLabelValues(topic).Inc()
}

func (m *MetricsProvider) IncStoreErrors(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *MetricsProvider) SetConnections(count int) {
	m.connections.Set(float64(count))
}

func (m *MetricsProvider) ObserveSnapshotDuration(duration time.Duration) {
	m.snapshotDuration.Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sitestatus_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sitestatus_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sitestatus_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sitestatus_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		statusWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sitestatus_status_writes_total",
			Help: "Total number of persisted status writes per status type",
		}, []string{"status_type"}),

		batchesEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sitestatus_delivery_batches_total",
			Help: "Total number of delivery batches enqueued",
		}),

		deliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sitestatus_deliveries_total",
			Help: "Per-connection delivery attempts by result",
		}, []string{"result"}),

		mirrorFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sitestatus_stream_publish_failures_total",
			Help: "Downstream stream publish failures per topic",
		}, []string{"topic"}),

		storeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sitestatus_store_errors_total",
			Help: "Backing store faults reported but not returned to callers",
		}, []string{"op"}),

		connections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sitestatus_connections",
			Help: "Currently open websocket connections",
		}),

		snapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitestatus_snapshot_duration_seconds",
			Help:    "Duration of snapshot export operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncStatusWrites(_ string)                         {}
func (n *noopMetrics) IncBatchesEnqueued(_ int)                         {}
func (n *noopMetrics) IncDeliveries(_ string)                           {}
func (n *noopMetrics) IncMirrorFailures(_ string)                       {}
func (n *noopMetrics) IncStoreErrors(_ string)                          {}
func (n *noopMetrics) SetConnections(_ int)                             {}
func (n *noopMetrics) ObserveSnapshotDuration(_ time.Duration)          {}
