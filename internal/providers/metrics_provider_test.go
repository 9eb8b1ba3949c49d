package providers

import (
	"sitestatus/internal/structures"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTestRegistry(t *testing.T) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	prevReg, prevGather := prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prevReg
		prometheus.DefaultGatherer = prevGather
	})
	return reg
}

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: false},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	// Ensure no-op methods don't panic
	m.IncRequestsTotal("/test", 200)
	m.ObserveRequestDuration("/test", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.IncStatusWrites("device")
	m.IncBatchesEnqueued(2)
	m.IncDeliveries("sent")
	m.IncMirrorFailures("sitestatus")
	m.IncStoreErrors("put")
	m.SetConnections(3)
	m.ObserveSnapshotDuration(time.Millisecond)
}

func TestMetricsProvider_WhenEnabled(t *testing.T) {
	useTestRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*MetricsProvider)
	assert.True(t, ok, "should return MetricsProvider when enabled")
}

func TestMetricsProvider_IncrementCounters(t *testing.T) {
	useTestRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf).(*MetricsProvider)

	m.IncRequestsTotal("GET /status/open", 200)
	m.IncRequestsTotal("GET /status/open", 404)
	m.ObserveRequestDuration("GET /status/open", 5*time.Millisecond)
	m.IncStatusWrites("device")
	m.IncStatusWrites("device")
	m.IncBatchesEnqueued(3)
	m.IncDeliveries("sent")
	m.IncDeliveries("failed")
	m.IncMirrorFailures("phase_status")
	m.IncStoreErrors("scan")
	m.SetConnections(7)
	m.ObserveSnapshotDuration(100 * time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET /status/open", "4xx")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.statusWrites.WithLabelValues("device")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.batchesEnqueued))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.deliveries.WithLabelValues("failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.mirrorFailures.WithLabelValues("phase_status")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.storeErrors.WithLabelValues("scan")))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.connections))
}

func TestMetricsProvider_RegistersNames(t *testing.T) {
	reg := useTestRegistry(t)
	m := NewMetricsProvider(&structures.Config{Metrics: structures.MetricsConfig{Enabled: true}})
	m.IncDeliveries("sent")
	m.SetConnections(1)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "sitestatus_deliveries_total")
	assert.Contains(t, names, "sitestatus_connections")
	assert.Contains(t, names, "sitestatus_cache_hits_total")
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{101, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}
