package queue

import (
	"context"
	"sync"
)

const defaultBuffer = 1024

// MemoryQueue is a bounded in-process queue. Send never blocks: a full
// buffer is reported as ErrQueueFull.
type MemoryQueue struct {
	name   string
	ch     chan []byte
	closed chan struct{}
	once   sync.Once
}

func NewMemoryQueue(name string, buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &MemoryQueue{
		name:   name,
		ch:     make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

func (q *MemoryQueue) Name() string {
	return q.name
}

func (q *MemoryQueue) Send(ctx context.Context, body []byte) error {
	select {
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := make([]byte, len(body))
	copy(msg, body)
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-q.ch:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closed:
		return nil, ErrClosed
	}
}

func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

func (q *MemoryQueue) Close() error {
	q.once.Do(func() {
		close(q.closed)
	})
	return nil
}
