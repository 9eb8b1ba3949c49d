package services

import (
	"context"
	"errors"
	"fmt"
	"sitestatus/internal/gateway"
	"sitestatus/internal/models"
	"sitestatus/internal/queue"
	"sitestatus/internal/storage"
	"sitestatus/internal/testutil"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatcherEnv struct {
	*testEnv
	status      *StatusService
	subscribers *SubscriberService
	queues      *queue.Set
	gw          *testutil.MockGateway
	dispatcher  *DeliveryDispatcher
}

func newDispatcherEnv(t *testing.T) *dispatcherEnv {
	t.Helper()
	env := newTestEnv(t)
	queues := &queue.Set{
		Delivery: queue.NewMemoryQueue(env.conf.Queue.DeliveryName, env.conf.Queue.Buffer),
		Stream:   queue.NewMemoryQueue(env.conf.Queue.StreamName, env.conf.Queue.Buffer),
	}
	t.Cleanup(func() { _ = queues.Close() })

	status := env.statusService()
	subscribers := env.subscriberService()
	gw := testutil.NewMockGateway()
	d := NewDeliveryDispatcher(env.conf, status, subscribers, queues, gw, env.feed, env.logger, env.metrics)
	return &dispatcherEnv{
		testEnv:     env,
		status:      status,
		subscribers: subscribers,
		queues:      queues,
		gw:          gw,
		dispatcher:  d,
	}
}

func (e *dispatcherEnv) putEvent(site, statusType string) storage.ChangeEvent {
	return storage.ChangeEvent{Table: e.conf.Storage.Tables.Status, PK: site, SK: statusType, Kind: storage.ChangePut}
}

func TestPartition(t *testing.T) {
	conns := make([]string, 25)
	for i := range conns {
		conns[i] = fmt.Sprintf("c%d", i)
	}

	batches := Partition(conns, 10)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 10)
	assert.Len(t, batches[2], 5)
	assert.Equal(t, "c0", batches[0][0])
	assert.Equal(t, "c24", batches[2][4])
}

func TestPartition_EdgeCases(t *testing.T) {
	assert.Empty(t, Partition(nil, 10))
	assert.Len(t, Partition([]string{"a", "b", "c"}, 10), 1)
	assert.Len(t, Partition([]string{"a", "b"}, 0), 2)
	exact := Partition([]string{"a", "b", "c", "d"}, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, exact)
}

func TestDeliveryDispatcher_HandleChangeEnqueuesBatches(t *testing.T) {
	env := newDispatcherEnv(t)
	ctx := context.Background()

	_, err := env.status.Post(ctx, "tst", "device", mustMap(t, `{"mount":{"m1":{"ra":1}}}`))
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		require.NoError(t, env.subscribers.Subscribe(ctx, fmt.Sprintf("c%02d", i), "tst"))
	}
	require.NoError(t, env.subscribers.Subscribe(ctx, "elsewhere", "sro"))

	n, err := env.dispatcher.HandleChange(ctx, env.putEvent("tst", "device"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, env.metrics.BatchesEnqueued)

	mq := env.queues.Delivery.(*queue.MemoryQueue)
	require.Equal(t, 3, mq.Len())

	total := 0
	for i := 0; i < 3; i++ {
		body, err := mq.Receive(ctx)
		require.NoError(t, err)
		var task models.DeliveryTask
		require.NoError(t, json.Unmarshal(body, &task))
		assert.Equal(t, "tst", task.Site)
		assert.Equal(t, "device", task.StatusType)
		assert.NotContains(t, task.Connections, "elsewhere")
		total += len(task.Connections)
	}
	assert.Equal(t, 25, total)
}

func TestDeliveryDispatcher_HandleChangeIgnores(t *testing.T) {
	env := newDispatcherEnv(t)
	ctx := context.Background()
	require.NoError(t, env.subscribers.Subscribe(ctx, "c1", "tst"))

	tests := []struct {
		name string
		evt  storage.ChangeEvent
	}{
		{"other table", storage.ChangeEvent{Table: "phase-status", PK: "tst", SK: "1", Kind: storage.ChangePut}},
		{"delete", storage.ChangeEvent{Table: env.conf.Storage.Tables.Status, PK: "tst", SK: "device", Kind: storage.ChangeDelete}},
		{"missing row", env.putEvent("tst", "device")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := env.dispatcher.HandleChange(ctx, tt.evt)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
	assert.Equal(t, 0, env.queues.Delivery.(*queue.MemoryQueue).Len())
}

func TestDeliveryDispatcher_HandleChangeNoSubscribers(t *testing.T) {
	env := newDispatcherEnv(t)
	ctx := context.Background()
	_, err := env.status.Post(ctx, "tst", "device", mustMap(t, `{"mount":{"m1":{"ra":1}}}`))
	require.NoError(t, err)

	n, err := env.dispatcher.HandleChange(ctx, env.putEvent("tst", "device"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeliveryDispatcher_DeliverSendsCurrentEntry(t *testing.T) {
	env := newDispatcherEnv(t)
	ctx := context.Background()

	_, err := env.status.Post(ctx, "tst", "device", mustMap(t, `{"mount":{"m1":{"ra":1}}}`))
	require.NoError(t, err)
	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, env.subscribers.Subscribe(ctx, id, "tst"))
	}
	env.gw.Errors["c2"] = gateway.ErrConnectionGone
	env.gw.Errors["c3"] = errors.New("write timeout")

	report := env.dispatcher.Deliver(ctx, models.DeliveryTask{
		Connections: []string{"c1", "c2", "c3"},
		Site:        "tst",
		StatusType:  "device",
	})

	assert.Equal(t, DeliveryReport{Sent: 1, Failed: 2}, report)
	assert.Equal(t, 1, env.metrics.Get(env.metrics.Deliveries, "sent"))
	assert.Equal(t, 2, env.metrics.Get(env.metrics.Deliveries, "failed"))

	sent := env.gw.SentTo("c1")
	require.Len(t, sent, 1)
	var entry models.StatusEntry
	require.NoError(t, json.Unmarshal(sent[0], &entry))
	assert.Equal(t, "tst", entry.Site)
	assert.Equal(t, "device", entry.StatusType)
	assert.True(t, entry.Status.Has("mount"))

	ids, err := env.subscribers.ListConnections(ctx, "tst")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c3"}, ids, "gone connection is unsubscribed, transient failure is kept")
}

func TestDeliveryDispatcher_DeliverMissingRow(t *testing.T) {
	env := newDispatcherEnv(t)

	report := env.dispatcher.Deliver(context.Background(), models.DeliveryTask{
		Connections: []string{"c1"},
		Site:        "tst",
		StatusType:  "device",
	})

	assert.Equal(t, DeliveryReport{}, report)
	assert.Empty(t, env.gw.SentTo("c1"))
}

func TestDeliveryDispatcher_RunDeliversWrites(t *testing.T) {
	env := newDispatcherEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, env.subscribers.Subscribe(ctx, "c1", "tst"))
	require.NoError(t, env.subscribers.Subscribe(ctx, "c2", "tst"))
	require.NoError(t, env.subscribers.Subscribe(ctx, "c3", "sro"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.dispatcher.Run(ctx)
	}()

	_, err := env.status.Post(ctx, "tst", "weather", mustMap(t, `{"observing_conditions":{"wx1":{"wx_ok":"Yes"}}}`))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(env.gw.SentTo("c1")) == 1 && len(env.gw.SentTo("c2")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, env.gw.SentTo("c3"))

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDeliveryDispatcher_RunStopsWhenFeedCloses(t *testing.T) {
	env := newDispatcherEnv(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		env.dispatcher.Run(context.Background())
	}()

	env.feed.Close()
	_ = env.queues.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
