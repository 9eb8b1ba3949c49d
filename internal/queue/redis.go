package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "sitestatus:queue:"

// RedisQueue stores messages in a redis list: producers LPUSH, consumers
// BRPOP, giving FIFO order across any number of replicas.
type RedisQueue struct {
	client  *redis.Client
	name    string
	key     string
	block   time.Duration
	stopped atomic.Bool
}

func NewRedisQueue(client *redis.Client, name string, block time.Duration) *RedisQueue {
	if block <= 0 {
		block = time.Second
	}
	return &RedisQueue{
		client: client,
		name:   name,
		key:    keyPrefix + name,
		block:  block,
	}
}

func (q *RedisQueue) Name() string {
	return q.name
}

func (q *RedisQueue) Send(ctx context.Context, body []byte) error {
	if q.stopped.Load() {
		return ErrClosed
	}
	return q.client.LPush(ctx, q.key, body).Err()
}

func (q *RedisQueue) Receive(ctx context.Context) ([]byte, error) {
	for {
		if q.stopped.Load() {
			return nil, ErrClosed
		}
		res, err := q.client.BRPop(ctx, q.block, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if len(res) != 2 {
			continue
		}
		return []byte(res[1]), nil
	}
}

// Close stops this queue; the shared client is closed by the owning Set.
func (q *RedisQueue) Close() error {
	q.stopped.Store(true)
	return nil
}
