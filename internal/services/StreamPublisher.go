package services

import (
	"context"
	"fmt"
	json "github.com/goccy/go-json"
	"sitestatus/internal/models"
	"sitestatus/internal/providers"
	"sitestatus/internal/queue"
)

type StreamPublisherInterface interface {
	Publish(ctx context.Context, topic, site string, data any) error
}

// StreamPublisher mirrors writes to the downstream stream queue. Failures
// are logged and counted; callers treat the mirror as fire-and-forget.
type StreamPublisher struct {
	queue   queue.Queue
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewStreamPublisher(queues *queue.Set, logger providers.Logger, metrics providers.MetricsProviderInterface) StreamPublisherInterface {
	return &StreamPublisher{
		queue:   queues.Stream,
		logger:  logger,
		metrics: metrics,
	}
}

func (sp *StreamPublisher) Publish(ctx context.Context, topic, site string, data any) error {
	body, err := json.Marshal(models.StreamMessage{Topic: topic, Site: site, Data: data})
	if err != nil {
		sp.fail(topic, site, err)
		return fmt.Errorf("encode stream message: %w", err)
	}
	if err := sp.queue.Send(ctx, body); err != nil {
		sp.fail(topic, site, err)
		return fmt.Errorf("publish to %s: %w", sp.queue.Name(), err)
	}
	return nil
}

func (sp *StreamPublisher) fail(topic, site string, err error) {
	sp.metrics.IncMirrorFailures(topic)
	sp.logger.Warnf(providers.TypeApp, "Stream publish failed topic=%s site=%s: %s", topic, site, err)
}

// DrainStream consumes the stream queue when no external reader exists,
// logging each message at debug level. It returns when ctx ends or the
// queue closes.
func DrainStream(ctx context.Context, q queue.Queue, logger providers.Logger) {
	for {
		body, err := q.Receive(ctx)
		if err != nil {
			return
		}
		var msg models.StreamMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			logger.Warnf(providers.TypeApp, "Unreadable stream message: %s", err)
			continue
		}
		logger.Debugf(providers.TypeApp, "Stream %s site=%s", msg.Topic, msg.Site)
	}
}
