// Package store persists the daily pivot so rollups can be queried after a
// run. infra/kpi provides the SQLite implementation.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/model"
)

// Store keeps DailyTotal rows keyed by (category, date). Put replaces rows
// with the same key, so re-running a dataset is idempotent.
type Store interface {
	Put(ctx context.Context, rows []aggregate.DailyTotal) error
	// Query returns the rows of category in [start, end] ordered by date.
	// A zero start or end leaves that side open.
	Query(ctx context.Context, category model.Category, start, end model.Date) ([]aggregate.DailyTotal, error)
	Close() error
}

// InRange reports whether d lies in [start, end], treating zero bounds as open.
func InRange(d, start, end model.Date) bool {
	if !start.IsZero() && d.Before(start) {
		return false
	}
	if !end.IsZero() && end.Before(d) {
		return false
	}
	return true
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[aggregate.DailyKey]aggregate.DailyTotal
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[aggregate.DailyKey]aggregate.DailyTotal{}}
}

func (s *MemoryStore) Put(ctx context.Context, rows []aggregate.DailyTotal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.rows[aggregate.DailyKey{Category: r.Category, Date: r.Date}] = r
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, category model.Category, start, end model.Date) ([]aggregate.DailyTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []aggregate.DailyTotal
	for k, r := range s.rows {
		if k.Category == category && InRange(k.Date, start, end) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
