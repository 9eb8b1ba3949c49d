package storage

import (
	"context"
	"errors"
	"sitestatus/internal/providers"
	"sitestatus/internal/structures"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const keySep = "\x00"

// PebbleStore keeps every table in one pebble keyspace. Keys are encoded as
// table 0x00 pk 0x00 sk so a partition is a contiguous key range.
type PebbleStore struct {
	mu     sync.RWMutex
	db     *pebble.DB
	feed   *ChangeFeed
	logger providers.Logger
}

func NewPebbleProvider(conf *structures.Config, feed *ChangeFeed, logger providers.Logger) (*PebbleStore, func(), error) {
	opts := &pebble.Options{}
	path := conf.Storage.Path
	if conf.Storage.InMemory {
		opts.FS = vfs.NewMem()
		path = ""
	}
	store, err := open(path, opts, feed, logger)
	if err != nil {
		return nil, nil, err
	}
	if conf.Storage.InMemory {
		logger.Infof(providers.TypeApp, "Opened in-memory store")
	} else {
		logger.Infof(providers.TypeApp, "Opened store at %s", path)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Errorf(providers.TypeApp, "Store close error: %s", err)
		}
	}
	return store, cleanup, nil
}

// OpenInMemory opens a throwaway store, used by tests and dry runs.
func OpenInMemory(feed *ChangeFeed, logger providers.Logger) (*PebbleStore, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()}, feed, logger)
}

func open(path string, opts *pebble.Options, feed *ChangeFeed, logger providers.Logger) (*PebbleStore, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, wrap("open", path, err)
	}
	return &PebbleStore{db: db, feed: feed, logger: logger}, nil
}

func (s *PebbleStore) Table(name string) Table {
	return &pebbleTable{store: s, name: name}
}

func (s *PebbleStore) Ping() error {
	_, release, err := s.acquire()
	if err != nil {
		return err
	}
	release()
	return nil
}

func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// acquire holds the store open until release is called.
func (s *PebbleStore) acquire() (*pebble.DB, func(), error) {
	s.mu.RLock()
	if s.db == nil {
		s.mu.RUnlock()
		return nil, nil, ErrStoreClosed
	}
	return s.db, s.mu.RUnlock, nil
}

type pebbleTable struct {
	store *PebbleStore
	name  string
}

func (t *pebbleTable) Name() string {
	return t.name
}

func (t *pebbleTable) key(pk, sk string) ([]byte, error) {
	if strings.Contains(pk, keySep) || strings.Contains(sk, keySep) || strings.Contains(t.name, keySep) {
		return nil, ErrInvalidKey
	}
	return []byte(t.name + keySep + pk + keySep + sk), nil
}

func (t *pebbleTable) Get(ctx context.Context, pk, sk string) (Item, bool, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, false, wrap("get", t.name, err)
	}
	key, err := t.key(pk, sk)
	if err != nil {
		return Item{}, false, wrap("get", t.name, err)
	}
	db, release, err := t.store.acquire()
	if err != nil {
		return Item{}, false, wrap("get", t.name, err)
	}
	defer release()
	value, closer, err := db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, wrap("get", t.name, err)
	}
	data := make([]byte, len(value))
	copy(data, value)
	if err := closer.Close(); err != nil {
		return Item{}, false, wrap("get", t.name, err)
	}
	return Item{PK: pk, SK: sk, Data: data}, true, nil
}

func (t *pebbleTable) Put(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return wrap("put", t.name, err)
	}
	key, err := t.key(item.PK, item.SK)
	if err != nil {
		return wrap("put", t.name, err)
	}
	db, release, err := t.store.acquire()
	if err != nil {
		return wrap("put", t.name, err)
	}
	err = db.Set(key, item.Data, pebble.Sync)
	release()
	if err != nil {
		return wrap("put", t.name, err)
	}
	t.store.feed.Publish(ctx, ChangeEvent{Table: t.name, PK: item.PK, SK: item.SK, Kind: ChangePut})
	return nil
}

func (t *pebbleTable) Delete(ctx context.Context, pk, sk string) error {
	if err := ctx.Err(); err != nil {
		return wrap("delete", t.name, err)
	}
	key, err := t.key(pk, sk)
	if err != nil {
		return wrap("delete", t.name, err)
	}
	db, release, err := t.store.acquire()
	if err != nil {
		return wrap("delete", t.name, err)
	}
	err = db.Delete(key, pebble.Sync)
	release()
	if err != nil {
		return wrap("delete", t.name, err)
	}
	t.store.feed.Publish(ctx, ChangeEvent{Table: t.name, PK: pk, SK: sk, Kind: ChangeDelete})
	return nil
}

func (t *pebbleTable) Query(ctx context.Context, pk string) ([]Item, error) {
	if strings.Contains(pk, keySep) {
		return nil, wrap("query", t.name, ErrInvalidKey)
	}
	prefix := t.name + keySep + pk + keySep
	items, err := t.iterate(ctx, prefix)
	return items, wrap("query", t.name, err)
}

func (t *pebbleTable) Scan(ctx context.Context) ([]Item, error) {
	items, err := t.iterate(ctx, t.name+keySep)
	return items, wrap("scan", t.name, err)
}

func (t *pebbleTable) iterate(ctx context.Context, prefix string) ([]Item, error) {
	db, release, err := t.store.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound([]byte(prefix)),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	tablePrefix := t.name + keySep
	items := make([]Item, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rest := strings.TrimPrefix(string(iter.Key()), tablePrefix)
		parts := strings.SplitN(rest, keySep, 2)
		if len(parts) != 2 {
			continue
		}
		value := iter.Value()
		data := make([]byte, len(value))
		copy(data, value)
		items = append(items, Item{PK: parts[0], SK: parts[1], Data: data})
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return items, nil
}

// prefixUpperBound returns the smallest key greater than every key that
// starts with prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
