package queue

import (
	"context"
	"errors"
	"fmt"
	"sitestatus/internal/providers"
	"sitestatus/internal/structures"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var (
	ErrQueueFull = errors.New("queue: buffer full")
	ErrClosed    = errors.New("queue: closed")
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Queue is an at-most-once message queue.
type Queue interface {
	Name() string
	Send(ctx context.Context, body []byte) error
	// Receive blocks until a message arrives, ctx ends or the queue closes.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Set holds the two queues of the service: delivery fan-out tasks and the
// downstream stream mirror.
type Set struct {
	Delivery Queue
	Stream   Queue
	client   *redis.Client
}

func (s *Set) Close() error {
	errs := []error{s.Delivery.Close(), s.Stream.Close()}
	if s.client != nil {
		errs = append(errs, s.client.Close())
	}
	return errors.Join(errs...)
}

func NewQueueProvider(conf *structures.Config, logger providers.Logger) (*Set, func(), error) {
	var set *Set
	switch conf.Queue.Driver {
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Queue.Redis.Addr,
			Password: conf.Queue.Redis.Password,
			DB:       conf.Queue.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis queue unavailable: %w", err)
		}
		block := conf.Queue.Redis.BlockTimeout
		set = &Set{
			Delivery: NewRedisQueue(client, conf.Queue.DeliveryName, block),
			Stream:   NewRedisQueue(client, conf.Queue.StreamName, block),
			client:   client,
		}
		logger.Infof(providers.TypeApp, "Using redis queues at %s", conf.Queue.Redis.Addr)
	case DriverMemory, "":
		set = &Set{
			Delivery: NewMemoryQueue(conf.Queue.DeliveryName, conf.Queue.Buffer),
			Stream:   NewMemoryQueue(conf.Queue.StreamName, conf.Queue.Buffer),
		}
		logger.Infof(providers.TypeApp, "Using in-memory queues, buffer=%d", conf.Queue.Buffer)
	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", conf.Queue.Driver)
	}

	cleanup := func() {
		if err := set.Close(); err != nil {
			logger.Errorf(providers.TypeApp, "Queue close error: %s", err)
		}
	}
	return set, cleanup, nil
}
