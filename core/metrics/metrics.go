package metrics

import (
	"errors"
	"time"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/extremal"
	"github.com/kilianp07/taxico2/core/model"
	"github.com/kilianp07/taxico2/core/timeseries"
)

// BucketEvent is emitted for every bucket the engine computes, daily pivot
// rows included.
type BucketEvent struct {
	RunID  string
	Bucket aggregate.Bucket
	// Date is set for daily buckets only.
	Date model.Date
}

// SkipEvent is emitted when a record is rejected, filtered or skipped.
type SkipEvent struct {
	RunID    string
	Row      int
	Category model.Category
	Reason   string
	Err      error
}

// RunEvent summarizes a completed run.
type RunEvent struct {
	RunID    string
	Read     int
	Enriched int
	Filtered int
	Skipped  int
	Extremes []extremal.Result
	Series   []timeseries.Series
	Duration time.Duration
	Time     time.Time
}

// Reporter receives the engine's structured events. Errors are logged by the
// engine and never abort a run.
type Reporter interface {
	BucketComputed(ev BucketEvent) error
	RecordSkipped(ev SkipEvent) error
	RunCompleted(ev RunEvent) error
}

// Closer is implemented by reporters holding connections.
type Closer interface {
	Close() error
}

// NopReporter implements Reporter with no-op methods.
type NopReporter struct{}

func (NopReporter) BucketComputed(BucketEvent) error { return nil }
func (NopReporter) RecordSkipped(SkipEvent) error    { return nil }
func (NopReporter) RunCompleted(RunEvent) error      { return nil }

// MultiReporter fans events out to several reporters.
type MultiReporter struct {
	Reporters []Reporter
}

// NewMultiReporter creates a MultiReporter with the provided reporters.
func NewMultiReporter(reps ...Reporter) *MultiReporter {
	return &MultiReporter{Reporters: reps}
}

// BucketComputed forwards the event to every reporter. A failing reporter
// does not stop the others; all errors are joined.
func (m *MultiReporter) BucketComputed(ev BucketEvent) error {
	var errs []error
	for _, r := range m.Reporters {
		if err := r.BucketComputed(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordSkipped forwards skip events.
func (m *MultiReporter) RecordSkipped(ev SkipEvent) error {
	var errs []error
	for _, r := range m.Reporters {
		if err := r.RecordSkipped(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunCompleted forwards the run summary.
func (m *MultiReporter) RunCompleted(ev RunEvent) error {
	var errs []error
	for _, r := range m.Reporters {
		if err := r.RunCompleted(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every reporter implementing Closer and returns the first error.
func (m *MultiReporter) Close() error {
	var first error
	for _, r := range m.Reporters {
		if c, ok := r.(Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
