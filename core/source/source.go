// Package source defines how the engine reads trips and emission factors.
// Implementations live in infra/source.
package source

import (
	"context"
	"io"

	"github.com/kilianp07/taxico2/core/factory"
	"github.com/kilianp07/taxico2/core/model"
)

// TripSource streams trips in dataset order. Next returns io.EOF after the
// last trip. A problem confined to one row is returned as *model.RecordError
// and reading may continue; any other error is fatal for the run.
type TripSource interface {
	Next(ctx context.Context) (model.TripRecord, error)
	Close() error
}

// FactorSource loads the emissions factor table once per run.
type FactorSource interface {
	Load(ctx context.Context) (model.Factors, error)
}

var tripRegistry = factory.NewRegistry[TripSource]()

// RegisterTripSource adds a trip source factory identified by name.
func RegisterTripSource(name string, f factory.Factory[TripSource]) error {
	return tripRegistry.Register(name, f)
}

// NewTripSource creates the configured trip source.
func NewTripSource(cfg factory.ModuleConfig) (TripSource, error) {
	return tripRegistry.Create(cfg)
}

// TripSourceTypes lists the registered trip source names.
func TripSourceTypes() []string { return tripRegistry.Names() }

// SliceSource serves trips from memory. Entries of Errs are returned in place
// of the trip at the same index.
type SliceSource struct {
	Trips []model.TripRecord
	Errs  map[int]error
	pos   int
}

// NewSliceSource returns a SliceSource over trips.
func NewSliceSource(trips ...model.TripRecord) *SliceSource {
	return &SliceSource{Trips: trips}
}

// Next returns the next trip or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (model.TripRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.TripRecord{}, err
	}
	if s.pos >= len(s.Trips) {
		return model.TripRecord{}, io.EOF
	}
	i := s.pos
	s.pos++
	if err, ok := s.Errs[i]; ok {
		return model.TripRecord{}, err
	}
	return s.Trips[i], nil
}

// Close is a no-op.
func (s *SliceSource) Close() error { return nil }

// StaticFactors serves a fixed table.
type StaticFactors model.Factors

// Load returns a copy of the table.
func (f StaticFactors) Load(context.Context) (model.Factors, error) {
	out := make(model.Factors, len(f))
	for c, r := range f {
		out[c] = r
	}
	return out, nil
}

// MultiSource reads several sources one after the other.
type MultiSource struct {
	sources []TripSource
	cur     int
}

// Concat returns a source reading each of srcs to exhaustion in order.
func Concat(srcs ...TripSource) *MultiSource {
	return &MultiSource{sources: srcs}
}

func (m *MultiSource) Next(ctx context.Context) (model.TripRecord, error) {
	for m.cur < len(m.sources) {
		t, err := m.sources[m.cur].Next(ctx)
		if err == io.EOF {
			m.cur++
			continue
		}
		return t, err
	}
	return model.TripRecord{}, io.EOF
}

// Close closes every source and returns the first error.
func (m *MultiSource) Close() error {
	var first error
	for _, s := range m.sources {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
