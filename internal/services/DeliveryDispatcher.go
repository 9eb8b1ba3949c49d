package services

import (
	"context"
	"errors"
	json "github.com/goccy/go-json"
	"sitestatus/internal/gateway"
	"sitestatus/internal/models"
	"sitestatus/internal/providers"
	"sitestatus/internal/queue"
	"sitestatus/internal/storage"
	"sitestatus/internal/structures"
	"sync"
	"time"
)

const receiveBackoff = time.Second

type DeliveryReport struct {
	Sent   int
	Failed int
}

// DeliveryDispatcher turns status row changes into batched delivery tasks
// and runs the workers that push the current status to each subscriber.
type DeliveryDispatcher struct {
	statusTable string
	batchSize   int
	workers     int
	status      StatusServiceInterface
	subscribers SubscriberServiceInterface
	queue       queue.Queue
	gateway     gateway.Gateway
	events      <-chan storage.ChangeEvent
	feedDone    <-chan struct{}
	logger      providers.Logger
	metrics     providers.MetricsProviderInterface
}

func NewDeliveryDispatcher(conf *structures.Config, status StatusServiceInterface, subscribers SubscriberServiceInterface, queues *queue.Set, gw gateway.Gateway, feed *storage.ChangeFeed, logger providers.Logger, metrics providers.MetricsProviderInterface) *DeliveryDispatcher {
	batchSize := conf.Delivery.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	workers := conf.Delivery.Workers
	if workers <= 0 {
		workers = 1
	}
	return &DeliveryDispatcher{
		statusTable: conf.Storage.Tables.Status,
		batchSize:   batchSize,
		workers:     workers,
		status:      status,
		subscribers: subscribers,
		queue:       queues.Delivery,
		gateway:     gw,
		events:      feed.Events(),
		feedDone:    feed.Done(),
		logger:      logger,
		metrics:     metrics,
	}
}

// Partition splits connections into consecutive batches of at most size.
func Partition(connections []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	batches := make([][]string, 0, (len(connections)+size-1)/size)
	for start := 0; start < len(connections); start += size {
		end := min(start+size, len(connections))
		batch := make([]string, end-start)
		copy(batch, connections[start:end])
		batches = append(batches, batch)
	}
	return batches
}

// HandleChange enqueues one delivery task per batch of the site's
// subscribers. Deletions and rows without status data produce nothing.
func (d *DeliveryDispatcher) HandleChange(ctx context.Context, evt storage.ChangeEvent) (int, error) {
	if evt.Table != d.statusTable || evt.Kind != storage.ChangePut {
		return 0, nil
	}

	entry, found, err := d.status.GetEntry(ctx, evt.PK, evt.SK)
	if err != nil {
		return 0, err
	}
	if !found || entry.Status.Len() == 0 {
		d.logger.Debugf(providers.TypeDelivery, "No status data for %s/%s, nothing to deliver", evt.PK, evt.SK)
		return 0, nil
	}

	connections, err := d.subscribers.ListConnections(ctx, evt.PK)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, batch := range Partition(connections, d.batchSize) {
		body, err := json.Marshal(models.DeliveryTask{
			Connections: batch,
			Site:        evt.PK,
			StatusType:  evt.SK,
		})
		if err != nil {
			d.logger.Errorf(providers.TypeDelivery, "Encode delivery task for %s failed: %s", evt.PK, err)
			continue
		}
		if err := d.queue.Send(ctx, body); err != nil {
			d.logger.Errorf(providers.TypeDelivery, "Enqueue delivery task for %s/%s failed: %s", evt.PK, evt.SK, err)
			continue
		}
		enqueued++
	}
	d.metrics.IncBatchesEnqueued(enqueued)
	d.logger.Debugf(providers.TypeDelivery, "Enqueued %d batches for %s/%s (%d connections)", enqueued, evt.PK, evt.SK, len(connections))
	return enqueued, nil
}

// Deliver re-reads the current status once and pushes it to every
// connection of the task. A failed push is counted and skipped; a gone
// connection is also unsubscribed.
func (d *DeliveryDispatcher) Deliver(ctx context.Context, task models.DeliveryTask) DeliveryReport {
	var report DeliveryReport

	entry, found, err := d.status.GetEntry(ctx, task.Site, task.StatusType)
	if err != nil {
		d.logger.Errorf(providers.TypeDelivery, "Read %s/%s for delivery failed: %s", task.Site, task.StatusType, err)
		report.Failed = len(task.Connections)
		d.countFailures(report.Failed)
		return report
	}
	if !found {
		return report
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		d.logger.Errorf(providers.TypeDelivery, "Encode %s/%s failed: %s", task.Site, task.StatusType, err)
		report.Failed = len(task.Connections)
		d.countFailures(report.Failed)
		return report
	}

	for _, id := range task.Connections {
		if err := d.gateway.PostToConnection(ctx, id, payload); err != nil {
			report.Failed++
			d.metrics.IncDeliveries("failed")
			d.logger.Warnf(providers.TypeDelivery, "Delivery to %s failed: %s", id, err)
			if errors.Is(err, gateway.ErrConnectionGone) {
				if err := d.subscribers.Unsubscribe(ctx, id); err != nil {
					d.logger.Errorf(providers.TypeDelivery, "Unsubscribe of gone connection %s failed: %s", id, err)
				}
			}
			continue
		}
		report.Sent++
		d.metrics.IncDeliveries("sent")
	}
	return report
}

func (d *DeliveryDispatcher) countFailures(n int) {
	for i := 0; i < n; i++ {
		d.metrics.IncDeliveries("failed")
	}
}

// Run consumes the change feed and runs the delivery workers until ctx is
// cancelled or the feed closes.
func (d *DeliveryDispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(d.workers + 1)

	go func() {
		defer wg.Done()
		d.consumeFeed(ctx)
	}()
	for i := 0; i < d.workers; i++ {
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}

	d.logger.Infof(providers.TypeApp, "Delivery dispatcher started with %d workers", d.workers)
	wg.Wait()
	d.logger.Infof(providers.TypeApp, "Delivery dispatcher stopped")
}

func (d *DeliveryDispatcher) consumeFeed(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.feedDone:
			return
		case evt := <-d.events:
			if _, err := d.HandleChange(ctx, evt); err != nil {
				d.logger.Errorf(providers.TypeDelivery, "Dispatch of %s/%s aborted: %s", evt.PK, evt.SK, err)
			}
		}
	}
}

func (d *DeliveryDispatcher) work(ctx context.Context) {
	for {
		body, err := d.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			d.logger.Errorf(providers.TypeDelivery, "Receive from %s failed: %s", d.queue.Name(), err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(receiveBackoff):
			}
			continue
		}

		var task models.DeliveryTask
		if err := json.Unmarshal(body, &task); err != nil {
			d.logger.Errorf(providers.TypeDelivery, "Dropping malformed delivery task: %s", err)
			continue
		}
		report := d.Deliver(ctx, task)
		d.logger.Debugf(providers.TypeDelivery, "Delivered %s/%s: sent=%d failed=%d", task.Site, task.StatusType, report.Sent, report.Failed)
	}
}
