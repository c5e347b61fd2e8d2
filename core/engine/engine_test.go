package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/extremal"
	"github.com/kilianp07/taxico2/core/metrics"
	"github.com/kilianp07/taxico2/core/model"
	"github.com/kilianp07/taxico2/core/source"
	"github.com/kilianp07/taxico2/core/store"
)

type recordingReporter struct {
	buckets []metrics.BucketEvent
	skips   []metrics.SkipEvent
	runs    []metrics.RunEvent
	err     error
}

func (r *recordingReporter) BucketComputed(ev metrics.BucketEvent) error {
	r.buckets = append(r.buckets, ev)
	return r.err
}

func (r *recordingReporter) RecordSkipped(ev metrics.SkipEvent) error {
	r.skips = append(r.skips, ev)
	return r.err
}

func (r *recordingReporter) RunCompleted(ev metrics.RunEvent) error {
	r.runs = append(r.runs, ev)
	return r.err
}

var factors = source.StaticFactors{model.CategoryYellow: 1, model.CategoryGreen: 0.5}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func trip(c model.Category, dist float64, pickup time.Time) model.TripRecord {
	return model.TripRecord{
		Category:       c,
		PassengerCount: 1,
		TripDistance:   dist,
		PickupTime:     pickup,
		DropoffTime:    pickup.Add(15 * time.Minute),
	}
}

func newEngine(t *testing.T, cfg Config, rep metrics.Reporter) *Engine {
	t.Helper()
	e, err := New(cfg, factors, rep, nil)
	require.NoError(t, err)
	e.SetClock(func() time.Time { return at(2024, time.June, 1, 0) })
	e.newID = func() string { return "run-1" }
	return e
}

func runTrips(t *testing.T, e *Engine, trips ...model.TripRecord) *Report {
	t.Helper()
	rep, err := e.Run(context.Background(), source.NewSliceSource(trips...))
	require.NoError(t, err)
	return rep
}

func bucket(t *testing.T, bs []aggregate.Bucket, id int) aggregate.Bucket {
	t.Helper()
	for _, b := range bs {
		if b.ID == id {
			return b
		}
	}
	t.Fatalf("bucket %d not found in %+v", id, bs)
	return aggregate.Bucket{}
}

func TestRun_TwoLevelRollup(t *testing.T) {
	e := newEngine(t, Config{}, nil)
	rep := runTrips(t, e,
		trip(model.CategoryYellow, 6, at(2024, time.April, 22, 8)),
		trip(model.CategoryYellow, 4, at(2024, time.April, 22, 18)),
		trip(model.CategoryYellow, 4, at(2024, time.April, 24, 9)),
	)
	y, err := rep.Category(model.CategoryYellow)
	require.NoError(t, err)

	week := bucket(t, y.Rollup.Weeks, 17)
	assert.InDelta(t, 14.0, week.Value, 1e-9)
	assert.InDelta(t, 10.0, bucket(t, y.Rollup.DayOfWeek, 1).Value, 1e-9)
	assert.InDelta(t, 4.0, bucket(t, y.Rollup.DayOfWeek, 3).Value, 1e-9)

	h, err := y.Extreme(aggregate.DayOfWeek, extremal.Heaviest)
	require.NoError(t, err)
	assert.Equal(t, 1, h.BucketID)
	assert.Equal(t, "Mon", h.Label)

	require.NotNil(t, y.Stats.MaxTrip)
	assert.InDelta(t, 6.0, y.Stats.MaxTrip.CO2Kg, 1e-9)
	assert.Equal(t, 3, rep.Summary.Enriched)
}

func TestRun_EmptyMonthsExcludedButZeroFilledInSeries(t *testing.T) {
	e := newEngine(t, Config{}, nil)
	rep := runTrips(t, e,
		trip(model.CategoryGreen, 10, at(2024, time.January, 10, 8)),
		trip(model.CategoryGreen, 2, at(2024, time.March, 5, 8)),
	)
	g, err := rep.Category(model.CategoryGreen)
	require.NoError(t, err)

	for _, b := range g.Rollup.Months {
		assert.NotEqual(t, 2, b.ID)
	}
	for _, r := range g.Extremes {
		if r.Granularity == aggregate.Month {
			assert.NotEqual(t, 2, r.BucketID)
		}
	}
	light, err := g.Extreme(aggregate.Month, extremal.Lightest)
	require.NoError(t, err)
	assert.Equal(t, 3, light.BucketID)

	require.Len(t, g.Series.Points, 12)
	assert.Equal(t, 0.0, g.Series.Points[1].TotalKg)
	assert.InDelta(t, 5.0, g.Series.Points[0].TotalKg, 1e-9)
	assert.InDelta(t, 1.0, g.Series.Points[2].TotalKg, 1e-9)
}

func TestRun_CategoryIsolation(t *testing.T) {
	e := newEngine(t, Config{}, nil)
	rep := runTrips(t, e, trip(model.CategoryGreen, 4, at(2024, time.May, 1, 12)))

	y, err := rep.Category(model.CategoryYellow)
	require.NoError(t, err)
	assert.False(t, y.HasData())
	assert.Empty(t, y.Extremes)
	_, err = y.Extreme(aggregate.Month, extremal.Heaviest)
	assert.ErrorIs(t, err, model.ErrNoDataForCategory)
	for _, p := range y.Series.Points {
		assert.Zero(t, p.TotalKg)
	}

	g, err := rep.Category(model.CategoryGreen)
	require.NoError(t, err)
	assert.Len(t, g.Extremes, 2*len(aggregate.Granularities))
	assert.InDelta(t, 2.0, g.Stats.TotalCO2Kg, 1e-9)
}

func TestRun_SumConservation(t *testing.T) {
	e := newEngine(t, Config{}, nil)
	var trips []model.TripRecord
	for i := 0; i < 50; i++ {
		trips = append(trips, trip(model.CategoryYellow, 0.1*float64(i+1), at(2024, time.Month(i%12+1), i%28+1, i%24)))
	}
	rep := runTrips(t, e, trips...)
	y, err := rep.Category(model.CategoryYellow)
	require.NoError(t, err)

	var months, weeks, daily float64
	for _, b := range y.Rollup.Months {
		months += b.Value
	}
	for _, b := range y.Rollup.Weeks {
		weeks += b.Value
	}
	for _, d := range y.Daily {
		daily += d.CO2Kg
	}
	assert.InDelta(t, y.Stats.TotalCO2Kg, months, 1e-9)
	assert.InDelta(t, y.Stats.TotalCO2Kg, weeks, 1e-9)
	assert.InDelta(t, y.Stats.TotalCO2Kg, daily, 1e-9)
}

func TestRun_Deterministic(t *testing.T) {
	trips := []model.TripRecord{
		trip(model.CategoryYellow, 1.3, at(2024, time.February, 2, 3)),
		trip(model.CategoryYellow, 2.7, at(2024, time.February, 9, 3)),
		trip(model.CategoryGreen, 0.9, at(2024, time.July, 4, 23)),
		trip(model.CategoryYellow, 3.1, at(2023, time.December, 31, 0)),
	}
	a := runTrips(t, newEngine(t, Config{}, nil), trips...)
	b := runTrips(t, newEngine(t, Config{}, nil), trips...)
	assert.Equal(t, a, b)
}

func TestRun_UnknownCategorySkipped(t *testing.T) {
	rec := &recordingReporter{}
	e := newEngine(t, Config{}, rec)
	rep := runTrips(t, e,
		trip(model.CategoryYellow, 1, at(2024, time.March, 1, 1)),
		trip(model.Category("blue"), 1, at(2024, time.March, 1, 1)),
	)
	assert.Equal(t, 2, rep.Summary.Read)
	assert.Equal(t, 1, rep.Summary.Enriched)
	assert.Equal(t, 1, rep.Summary.Skipped)
	assert.Equal(t, map[string]int{"unknown_category": 1}, rep.Summary.SkippedByReason)
	require.Len(t, rep.Summary.Examples, 1)
	assert.Equal(t, 2, rep.Summary.Examples[0].Row)
	require.Len(t, rec.skips, 1)
	assert.ErrorIs(t, rec.skips[0].Err, model.ErrUnknownCategory)
}

func TestRun_StrictFailsOnUnknownCategory(t *testing.T) {
	e := newEngine(t, Config{Strict: true}, nil)
	_, err := e.Run(context.Background(), source.NewSliceSource(
		trip(model.CategoryYellow, 1, at(2024, time.March, 1, 1)),
		trip(model.Category("blue"), 1, at(2024, time.March, 1, 1)),
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnknownCategory)
	var rec *model.RecordError
	require.True(t, errors.As(err, &rec))
	assert.Equal(t, 2, rec.Row)
}

func TestRun_InvalidTimestamps(t *testing.T) {
	bad := trip(model.CategoryYellow, 1, at(2024, time.March, 1, 10))
	bad.DropoffTime = bad.PickupTime.Add(-time.Minute)

	src := source.NewSliceSource(
		trip(model.CategoryYellow, 1, at(2024, time.March, 1, 10)),
		model.TripRecord{},
		bad,
	)
	src.Errs = map[int]error{1: &model.RecordError{Row: 2, Err: model.ErrInvalidTimestamp}}

	e := newEngine(t, Config{MaxErrorExamples: 1}, nil)
	rep, err := e.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Summary.Read)
	assert.Equal(t, 2, rep.Summary.Skipped)
	assert.Equal(t, 2, rep.Summary.SkippedByReason["invalid_timestamp"])
	assert.Len(t, rep.Summary.Examples, 1)
}

func TestRun_CleaningCountsFiltered(t *testing.T) {
	far := trip(model.CategoryYellow, 150, at(2024, time.March, 1, 10))
	empty := trip(model.CategoryYellow, 1, at(2024, time.March, 1, 10))
	empty.PassengerCount = 0

	e := newEngine(t, Config{Cleaning: CleaningConfig{Enabled: true}}, nil)
	rep := runTrips(t, e, far, empty, trip(model.CategoryYellow, 2, at(2024, time.March, 1, 10)))
	assert.Equal(t, 2, rep.Summary.Filtered)
	assert.Equal(t, 0, rep.Summary.Skipped)
	assert.Equal(t, 1, rep.Summary.Enriched)

	e = newEngine(t, Config{Strict: true, Cleaning: CleaningConfig{Enabled: true}}, nil)
	rep = runTrips(t, e, far)
	assert.Equal(t, 1, rep.Summary.Filtered)
}

func TestRun_ReporterEvents(t *testing.T) {
	rec := &recordingReporter{err: errors.New("sink down")}
	e := newEngine(t, Config{}, rec)
	rep := runTrips(t, e,
		trip(model.CategoryYellow, 1, at(2024, time.March, 1, 1)),
		trip(model.CategoryYellow, 1, at(2024, time.March, 2, 1)),
	)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, "run-1", rec.runs[0].RunID)
	assert.Equal(t, 2, rec.runs[0].Enriched)
	assert.Len(t, rec.runs[0].Series, 2)

	var daily int
	for _, ev := range rec.buckets {
		if ev.Bucket.Granularity == aggregate.Daily {
			daily++
			assert.False(t, ev.Date.IsZero())
		}
	}
	assert.Equal(t, 2, daily)
	assert.Equal(t, "run-1", rep.RunID)
}

func TestRun_StoresDailyTotals(t *testing.T) {
	st := store.NewMemoryStore()
	e := newEngine(t, Config{}, nil)
	e.SetStore(st)
	runTrips(t, e,
		trip(model.CategoryYellow, 1, at(2024, time.March, 1, 1)),
		trip(model.CategoryYellow, 2, at(2024, time.March, 1, 5)),
	)
	runTrips(t, e, trip(model.CategoryYellow, 2, at(2024, time.March, 1, 1)), trip(model.CategoryYellow, 1, at(2024, time.March, 1, 2)))

	rows, err := st.Query(context.Background(), model.CategoryYellow, model.Date{}, model.Date{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 3.0, rows[0].CO2Kg, 1e-9)
}

type recordingStore struct {
	*store.MemoryStore
	puts [][]aggregate.DailyTotal
	err  error
}

func (s *recordingStore) Put(ctx context.Context, rows []aggregate.DailyTotal) error {
	s.puts = append(s.puts, rows)
	if s.err != nil {
		return s.err
	}
	return s.MemoryStore.Put(ctx, rows)
}

func TestRun_StoresAllCategoriesInOnePut(t *testing.T) {
	st := &recordingStore{MemoryStore: store.NewMemoryStore()}
	e := newEngine(t, Config{}, nil)
	e.SetStore(st)
	runTrips(t, e,
		trip(model.CategoryYellow, 1, at(2024, time.March, 1, 1)),
		trip(model.CategoryGreen, 2, at(2024, time.March, 2, 1)),
		trip(model.CategoryYellow, 1, at(2024, time.March, 3, 1)),
	)

	require.Len(t, st.puts, 1)
	cats := map[model.Category]int{}
	for _, row := range st.puts[0] {
		cats[row.Category]++
	}
	assert.Equal(t, map[model.Category]int{model.CategoryGreen: 1, model.CategoryYellow: 2}, cats)
}

func TestRun_StoreFailureIsFatal(t *testing.T) {
	st := &recordingStore{MemoryStore: store.NewMemoryStore(), err: errors.New("disk full")}
	rec := &recordingReporter{}
	e := newEngine(t, Config{}, rec)
	e.SetStore(st)
	_, err := e.Run(context.Background(), source.NewSliceSource(
		trip(model.CategoryYellow, 1, at(2024, time.March, 1, 1)),
		trip(model.CategoryGreen, 2, at(2024, time.March, 2, 1)),
	))
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, st.puts, 1)
	assert.Empty(t, rec.runs)

	rows, err := st.Query(context.Background(), model.CategoryGreen, model.Date{}, model.Date{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRun_FatalErrors(t *testing.T) {
	_, err := New(Config{}, nil, nil, nil)
	assert.ErrorIs(t, err, model.ErrMissingFactors)

	e, err := New(Config{}, source.StaticFactors{}, nil, nil)
	require.NoError(t, err)
	_, err = e.Run(context.Background(), source.NewSliceSource())
	assert.ErrorIs(t, err, model.ErrMissingFactors)

	src := source.NewSliceSource(model.TripRecord{})
	src.Errs = map[int]error{0: errors.New("disk gone")}
	_, err = newEngine(t, Config{}, nil).Run(context.Background(), src)
	assert.ErrorContains(t, err, "disk gone")
}
