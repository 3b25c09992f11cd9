package logstore

import (
	"context"
	"sync"
)

type Memory struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemory() *Memory {
	return &Memory{records: make([]Record, 0)}
}

func (m *Memory) Create(ctx context.Context, message string) (Record, error) {
	if err := validate(message); err != nil {
		return Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := Record{
		ID:      int64(len(m.records)) + 1,
		Message: message,
		Time:    now(),
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *Memory) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
