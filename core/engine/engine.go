// Package engine runs the enrichment and aggregation pipeline over one trip
// dataset: stream, enrich, pivot, roll up, select extremes and build the
// monthly series.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/emissions"
	"github.com/kilianp07/taxico2/core/extremal"
	"github.com/kilianp07/taxico2/core/logger"
	"github.com/kilianp07/taxico2/core/metrics"
	"github.com/kilianp07/taxico2/core/model"
	"github.com/kilianp07/taxico2/core/source"
	"github.com/kilianp07/taxico2/core/store"
	"github.com/kilianp07/taxico2/core/timeseries"
)

// Engine is reusable across runs. Every run recomputes all derived data.
type Engine struct {
	cfg      Config
	factors  source.FactorSource
	reporter metrics.Reporter
	logger   logger.Logger
	store    store.Store
	now      func() time.Time
	newID    func() string
}

// New creates an Engine. A nil reporter or logger is replaced by a no-op.
func New(cfg Config, factors source.FactorSource, reporter metrics.Reporter, log logger.Logger) (*Engine, error) {
	if factors == nil {
		return nil, fmt.Errorf("factor source is nil: %w", model.ErrMissingFactors)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = metrics.NopReporter{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Engine{
		cfg:      cfg,
		factors:  factors,
		reporter: reporter,
		logger:   log,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// SetStore configures the store receiving the daily pivot after each run.
func (e *Engine) SetStore(s store.Store) { e.store = s }

// SetClock overrides the clock used for run timestamps.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// run holds the state of a single Run call.
type run struct {
	id      string
	summary Summary
}

// Run consumes src until io.EOF and returns the report. The source is not
// closed. Per-record errors are skipped and counted unless Strict is set;
// any other error aborts the run.
func (e *Engine) Run(ctx context.Context, src source.TripSource) (*Report, error) {
	started := e.now()
	r := &run{id: e.newID(), summary: Summary{SkippedByReason: map[string]int{}}}

	factors, err := e.factors.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load emission factors: %w", err)
	}
	enricher, err := emissions.NewEnricher(factors)
	if err != nil {
		return nil, err
	}
	var validator *emissions.Validator
	if e.cfg.Cleaning.Enabled {
		validator = emissions.NewValidator(e.cfg.Cleaning.rules())
	}

	acc := aggregate.NewAccumulator()
	for row := 1; ; row++ {
		trip, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var rec *model.RecordError
			if !errors.As(err, &rec) {
				return nil, fmt.Errorf("read trips: %w", err)
			}
			r.summary.Read++
			if err := e.recordFailure(r, rec); err != nil {
				return nil, err
			}
			continue
		}
		r.summary.Read++

		if validator != nil {
			if err := validator.Check(trip); err != nil {
				r.summary.Filtered++
				e.emitSkip(r, row, trip.Category, err)
				continue
			}
		}
		et, err := enricher.Enrich(trip)
		if err != nil {
			if err := e.recordFailure(r, &model.RecordError{Row: row, Category: trip.Category, Err: err}); err != nil {
				return nil, err
			}
			continue
		}
		acc.Add(et)
		r.summary.Enriched++
	}

	rep := &Report{RunID: r.id, StartedAt: started}
	var daily []aggregate.DailyTotal
	for _, c := range reportedCategories(enricher.Factors(), acc) {
		cr, err := e.buildCategory(r, acc, c)
		if err != nil {
			return nil, err
		}
		rep.Categories = append(rep.Categories, cr)
		daily = append(daily, cr.Daily...)
	}
	// One Put after every category is built; a failed run writes nothing.
	if e.store != nil && len(daily) > 0 {
		if err := e.store.Put(ctx, daily); err != nil {
			return nil, fmt.Errorf("store daily totals: %w", err)
		}
	}
	if len(r.summary.SkippedByReason) == 0 {
		r.summary.SkippedByReason = nil
	}
	rep.Summary = r.summary
	rep.Duration = e.now().Sub(started)

	if err := e.reporter.RunCompleted(metrics.RunEvent{
		RunID:    r.id,
		Read:     rep.Summary.Read,
		Enriched: rep.Summary.Enriched,
		Filtered: rep.Summary.Filtered,
		Skipped:  rep.Summary.Skipped,
		Extremes: rep.Extremes(),
		Series:   rep.Series(),
		Duration: rep.Duration,
		Time:     started,
	}); err != nil {
		e.logger.Warnf("report run completed: %v", err)
	}
	e.logger.Infow("run completed", map[string]any{
		"run_id":   r.id,
		"read":     rep.Summary.Read,
		"enriched": rep.Summary.Enriched,
		"filtered": rep.Summary.Filtered,
		"skipped":  rep.Summary.Skipped,
	})
	return rep, nil
}

// recordFailure applies the error policy to a per-record error.
func (e *Engine) recordFailure(r *run, rec *model.RecordError) error {
	if e.cfg.Strict {
		return fmt.Errorf("strict mode: %w", rec)
	}
	reason := model.Reason(rec.Err)
	r.summary.Skipped++
	r.summary.SkippedByReason[reason]++
	if len(r.summary.Examples) < e.cfg.MaxErrorExamples {
		r.summary.Examples = append(r.summary.Examples, ErrorExample{
			Row:      rec.Row,
			Category: rec.Category,
			Reason:   reason,
			Message:  rec.Err.Error(),
		})
	}
	e.logger.Debugf("skip %v", rec)
	e.emitSkip(r, rec.Row, rec.Category, rec.Err)
	return nil
}

func (e *Engine) emitSkip(r *run, row int, c model.Category, err error) {
	if rerr := e.reporter.RecordSkipped(metrics.SkipEvent{
		RunID:    r.id,
		Row:      row,
		Category: c,
		Reason:   model.Reason(err),
		Err:      err,
	}); rerr != nil {
		e.logger.Warnf("report skipped record: %v", rerr)
	}
}

func (e *Engine) buildCategory(r *run, acc *aggregate.Accumulator, c model.Category) (*CategoryReport, error) {
	daily := acc.Daily(c)
	rollup := aggregate.Build(c, daily, acc.Hourly(c))
	cr := &CategoryReport{
		Category: c,
		Stats:    acc.Stats(c),
		Rollup:   rollup,
		Series:   timeseries.Monthly(c, rollup.Months),
		Daily:    daily,
	}

	for _, b := range aggregate.DailyBuckets(c, daily) {
		e.emitBucket(r, b)
	}
	for _, g := range aggregate.Granularities {
		for _, b := range rollup.Buckets(g) {
			e.emitBucket(r, b)
		}
	}

	extremes, err := extremal.All(rollup)
	switch {
	case errors.Is(err, model.ErrNoDataForCategory):
		e.logger.Warnf("category %s: %v", c, err)
	case err != nil:
		return nil, err
	default:
		cr.Extremes = extremes
	}
	return cr, nil
}

func (e *Engine) emitBucket(r *run, b aggregate.Bucket) {
	ev := metrics.BucketEvent{RunID: r.id, Bucket: b}
	if b.Granularity == aggregate.Daily {
		d, err := model.ParseDate(b.Label)
		if err == nil {
			ev.Date = d
		}
	}
	if err := e.reporter.BucketComputed(ev); err != nil {
		e.logger.Warnf("report bucket %s/%s/%d: %v", b.Category, b.Granularity, b.ID, err)
	}
}

// reportedCategories is the factor table's categories plus any category
// seen in the data, in lexical order.
func reportedCategories(f model.Factors, acc *aggregate.Accumulator) []model.Category {
	seen := map[model.Category]bool{}
	var out []model.Category
	for _, c := range append(f.Categories(), acc.Categories()...) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
