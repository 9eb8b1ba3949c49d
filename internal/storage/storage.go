package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidKey  = errors.New("storage: key contains reserved separator")
	ErrStoreClosed = errors.New("storage: store is closed")
)

// Item is one row: partition key, sort key and the JSON encoded attributes.
type Item struct {
	PK   string
	SK   string
	Data []byte
}

// Table offers the partition/sort key operations the services rely on.
// A missing row is reported as found=false, never as an error.
type Table interface {
	Name() string
	Get(ctx context.Context, pk, sk string) (Item, bool, error)
	Put(ctx context.Context, item Item) error
	Delete(ctx context.Context, pk, sk string) error
	// Query returns every row of a partition ordered by sort key.
	Query(ctx context.Context, pk string) ([]Item, error)
	// Scan returns every row of the table ordered by (pk, sk).
	Scan(ctx context.Context) ([]Item, error)
}

type Database interface {
	Table(name string) Table
	Ping() error
	Close() error
}

// StoreError wraps a backend fault. Op is one of get, put, delete, query,
// scan.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s on table %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Table: table, Err: err}
}
