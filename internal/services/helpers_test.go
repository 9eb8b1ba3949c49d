package services

import (
	"context"
	"errors"
	"sitestatus/internal/models"
	"sitestatus/internal/storage"
	"sitestatus/internal/structures"
	"sitestatus/internal/testutil"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() *structures.Config {
	return &structures.Config{
		Storage: structures.StorageConfig{
			Tables: structures.Tables{
				Status:      "site-status",
				Subscribers: "status-subscribers",
				Phase:       "phase-status",
			},
		},
		Queue: structures.QueueConfig{
			Driver:       "memory",
			Buffer:       64,
			DeliveryName: "status-delivery",
			StreamName:   "datastream-incoming",
		},
		Delivery:    structures.DeliveryConfig{BatchSize: 10, Workers: 2, SendTimeout: time.Second},
		Forecast:    structures.ForecastConfig{Retention: 96 * time.Hour},
		Subscribers: structures.SubscribersConfig{TTL: 24 * time.Hour},
		Phase:       structures.PhaseConfig{TTL: 24 * time.Hour, MaxAge: time.Hour, MaxItems: 1},
	}
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	conf      *structures.Config
	store     *storage.PebbleStore
	feed      *storage.ChangeFeed
	logger    *testutil.MockLogger
	metrics   *testutil.MockMetrics
	publisher *testutil.MockPublisher
	clock     *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conf := testConfig()
	feed := storage.NewChangeFeed(conf)
	logger := &testutil.MockLogger{}
	store, err := storage.OpenInMemory(feed, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		feed.Close()
		_ = store.Close()
	})
	return &testEnv{
		conf:      conf,
		store:     store,
		feed:      feed,
		logger:    logger,
		metrics:   &testutil.MockMetrics{},
		publisher: &testutil.MockPublisher{},
		clock:     newTestClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}
}

func (e *testEnv) statusService() *StatusService {
	return newStatusService(e.conf, e.store, e.publisher, e.logger, e.metrics, e.clock.Now)
}

func (e *testEnv) subscriberService() *SubscriberService {
	return newSubscriberService(e.conf, e.store, e.logger, e.metrics, e.clock.Now)
}

func (e *testEnv) phaseService() *PhaseStatusService {
	return newPhaseStatusService(e.conf, e.store, e.publisher, e.logger, e.metrics, e.clock.Now)
}

func mustMap(t *testing.T, raw string) *models.Map {
	t.Helper()
	v, err := models.ParseJSON([]byte(raw))
	require.NoError(t, err)
	m, ok := v.AsMap()
	require.True(t, ok)
	return m
}

var errBackend = errors.New("backend unavailable")

// failingDB returns tables whose every operation fails with a StoreError.
type failingDB struct{}

func (failingDB) Table(name string) storage.Table { return failingTable{name: name} }
func (failingDB) Ping() error                     { return errBackend }
func (failingDB) Close() error                    { return nil }

type failingTable struct {
	name string
}

func (f failingTable) fail(op string) error {
	return &storage.StoreError{Op: op, Table: f.name, Err: errBackend}
}

func (f failingTable) Name() string { return f.name }
func (f failingTable) Get(_ context.Context, _, _ string) (storage.Item, bool, error) {
	return storage.Item{}, false, f.fail("get")
}
func (f failingTable) Put(_ context.Context, _ storage.Item) error { return f.fail("put") }
func (f failingTable) Delete(_ context.Context, _, _ string) error { return f.fail("delete") }
func (f failingTable) Query(_ context.Context, _ string) ([]storage.Item, error) {
	return nil, f.fail("query")
}
func (f failingTable) Scan(_ context.Context) ([]storage.Item, error) { return nil, f.fail("scan") }
