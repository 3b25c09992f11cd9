// Package logstore keeps operator log messages for the lifetime of the
// process. Nothing survives a restart.
package logstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMessageRequired = errors.New("message required")

type Record struct {
	ID      int64     `json:"id"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type Store interface {
	// Create appends a record. IDs start at 1 and increase by one.
	Create(ctx context.Context, message string) (Record, error)
	// List returns every record in insertion order.
	List(ctx context.Context) ([]Record, error)
	Close() error
}

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend. dsn is only used by sqlite and
// defaults to a private in-memory database.
func Open(backend, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(dsn)
	}
	return nil, fmt.Errorf("unknown log store backend %q", backend)
}

func validate(message string) error {
	if message == "" {
		return ErrMessageRequired
	}
	return nil
}

var now = func() time.Time { return time.Now().UTC() }
