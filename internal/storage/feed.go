package storage

import (
	"context"
	"sitestatus/internal/structures"
	"sync"

	"go.uber.org/atomic"
)

const defaultFeedBuffer = 1024

type ChangeKind string

const (
	ChangePut    ChangeKind = "put"
	ChangeDelete ChangeKind = "delete"
)

// ChangeEvent carries the key of a modified row, never its payload.
type ChangeEvent struct {
	Table string     `json:"table"`
	PK    string     `json:"pk"`
	SK    string     `json:"sk"`
	Kind  ChangeKind `json:"kind"`
}

// ChangeFeed delivers row change notifications to a single consumer. Events
// published before a consumer attaches are discarded, so batch tools that
// write without a dispatcher never block.
type ChangeFeed struct {
	events   chan ChangeEvent
	closed   chan struct{}
	attached atomic.Bool
	once     sync.Once
}

func NewChangeFeed(conf *structures.Config) *ChangeFeed {
	size := conf.Storage.FeedBuffer
	if size <= 0 {
		size = defaultFeedBuffer
	}
	return &ChangeFeed{
		events: make(chan ChangeEvent, size),
		closed: make(chan struct{}),
	}
}

// Events attaches the consumer and returns the event channel.
func (f *ChangeFeed) Events() <-chan ChangeEvent {
	f.attached.Store(true)
	return f.events
}

// Publish blocks while the buffer is full, until ctx ends or the feed closes.
func (f *ChangeFeed) Publish(ctx context.Context, evt ChangeEvent) {
	if f == nil || !f.attached.Load() {
		return
	}
	select {
	case f.events <- evt:
	case <-ctx.Done():
	case <-f.closed:
	}
}

func (f *ChangeFeed) Close() {
	f.once.Do(func() {
		close(f.closed)
	})
}

func (f *ChangeFeed) Done() <-chan struct{} {
	return f.closed
}
