package testutil

import (
	"context"
	"sitestatus/internal/providers"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
	Dels []string
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
	m.Dels = append(m.Dels, key)
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	Closed       bool
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {
	m.Closed = true
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu              sync.Mutex
	Requests        int
	CacheHits       int
	CacheMisses     int
	StatusWrites    map[string]int
	BatchesEnqueued int
	Deliveries      map[string]int
	MirrorFailures  map[string]int
	StoreErrors     map[string]int
	Connections     int
	Snapshots       int
}

func (m *MockMetrics) inc(target *map[string]int, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if *target == nil {
		*target = make(map[string]int)
	}
	(*target)[key]++
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}
func (m *MockMetrics) IncStatusWrites(statusType string) { m.inc(&m.StatusWrites, statusType) }
func (m *MockMetrics) IncBatchesEnqueued(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesEnqueued += count
}
func (m *MockMetrics) IncDeliveries(result string)    { m.inc(&m.Deliveries, result) }
func (m *MockMetrics) IncMirrorFailures(topic string) { m.inc(&m.MirrorFailures, topic) }
func (m *MockMetrics) IncStoreErrors(op string)       { m.inc(&m.StoreErrors, op) }
func (m *MockMetrics) SetConnections(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Connections = count
}
func (m *MockMetrics) ObserveSnapshotDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Snapshots++
}

// Get reads a labelled counter under the lock.
func (m *MockMetrics) Get(counter map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counter[key]
}

// MockGateway implements gateway.Gateway. Errors maps a connection ID to the
// error its send returns.
type MockGateway struct {
	mu     sync.Mutex
	Errors map[string]error
	Sent   map[string][][]byte
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		Errors: make(map[string]error),
		Sent:   make(map[string][][]byte),
	}
}

func (m *MockGateway) PostToConnection(_ context.Context, connectionID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.Errors[connectionID]; ok {
		return err
	}
	m.Sent[connectionID] = append(m.Sent[connectionID], data)
	return nil
}

func (m *MockGateway) SentTo(connectionID string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sent[connectionID]
}

// PublishedMessage is one call recorded by MockPublisher.
type PublishedMessage struct {
	Topic string
	Site  string
	Data  any
}

// MockPublisher implements services.StreamPublisherInterface.
type MockPublisher struct {
	mu       sync.Mutex
	Err      error
	Messages []PublishedMessage
}

func (m *MockPublisher) Publish(_ context.Context, topic, site string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, PublishedMessage{Topic: topic, Site: site, Data: data})
	return m.Err
}
