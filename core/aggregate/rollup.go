package aggregate

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/taxico2/core/model"
)

// Granularity names a calendar grouping dimension.
type Granularity string

const (
	Daily      Granularity = "daily"
	HourOfDay  Granularity = "hour_of_day"
	DayOfWeek  Granularity = "day_of_week"
	WeekOfYear Granularity = "week_of_year"
	Month      Granularity = "month"
)

// Granularities lists the dimensions reported for every category, in report order.
var Granularities = []Granularity{HourOfDay, DayOfWeek, WeekOfYear, Month}

// Bucket is one rolled-up value. For hour_of_day and day_of_week Value is the
// mean of the per-period totals in the bucket; for week_of_year and month it
// is the sum of the daily totals. Periods counts the contributing dates.
type Bucket struct {
	Category    model.Category `json:"category"`
	Granularity Granularity    `json:"granularity"`
	ID          int            `json:"bucket_id"`
	Label       string         `json:"label"`
	Value       float64        `json:"co2_kg"`
	Periods     int            `json:"periods"`
}

// Rollup holds the second-level aggregates of one category.
type Rollup struct {
	Category  model.Category `json:"category"`
	HourOfDay []Bucket       `json:"hour_of_day"`
	DayOfWeek []Bucket       `json:"day_of_week"`
	Weeks     []Bucket       `json:"week_of_year"`
	Months    []Bucket       `json:"month"`
}

// Buckets returns the rollup for g, or nil for an unknown granularity.
func (r Rollup) Buckets(g Granularity) []Bucket {
	switch g {
	case HourOfDay:
		return r.HourOfDay
	case DayOfWeek:
		return r.DayOfWeek
	case WeekOfYear:
		return r.Weeks
	case Month:
		return r.Months
	default:
		return nil
	}
}

// Build derives every rollup of c from its pivots. Rows of other categories
// are ignored.
func Build(c model.Category, daily []DailyTotal, hourly []HourlyTotal) Rollup {
	return Rollup{
		Category:  c,
		HourOfDay: AverageByHour(c, hourly),
		DayOfWeek: AverageByWeekday(c, daily),
		Weeks:     SumByWeek(c, daily),
		Months:    SumByMonth(c, daily),
	}
}

// AverageByHour groups date-hour totals by hour of day and averages them:
// the typical CO2 emitted in that hour slot on a day that had trips in it.
func AverageByHour(c model.Category, hourly []HourlyTotal) []Bucket {
	g := newGrouper()
	for _, h := range sortedHourly(hourly) {
		if h.Category == c {
			g.add(h.Hour, h.CO2Kg)
		}
	}
	return g.buckets(c, HourOfDay, mean, model.HourLabel)
}

// AverageByWeekday groups daily totals by day of week and averages them.
func AverageByWeekday(c model.Category, daily []DailyTotal) []Bucket {
	g := newGrouper()
	for _, d := range sortedDaily(daily) {
		if d.Category == c {
			g.add(d.Date.Weekday(), d.CO2Kg)
		}
	}
	return g.buckets(c, DayOfWeek, mean, model.WeekdayLabel)
}

// SumByWeek sums daily totals into ISO week numbers. Weeks with the same
// number in different years share a bucket.
func SumByWeek(c model.Category, daily []DailyTotal) []Bucket {
	g := newGrouper()
	for _, d := range sortedDaily(daily) {
		if d.Category == c {
			g.add(d.Date.ISOWeek(), d.CO2Kg)
		}
	}
	return g.buckets(c, WeekOfYear, floats.Sum, model.WeekLabel)
}

// SumByMonth sums daily totals into months 1 to 12, pooled across years.
func SumByMonth(c model.Category, daily []DailyTotal) []Bucket {
	g := newGrouper()
	for _, d := range sortedDaily(daily) {
		if d.Category == c {
			g.add(int(d.Date.Month), d.CO2Kg)
		}
	}
	return g.buckets(c, Month, floats.Sum, model.MonthLabel)
}

// DailyBuckets exposes the daily pivot in Bucket form, keyed by YYYYMMDD.
func DailyBuckets(c model.Category, daily []DailyTotal) []Bucket {
	var out []Bucket
	for _, d := range sortedDaily(daily) {
		if d.Category != c {
			continue
		}
		out = append(out, Bucket{
			Category:    c,
			Granularity: Daily,
			ID:          d.Date.Year*10000 + int(d.Date.Month)*100 + d.Date.Day,
			Label:       d.Date.String(),
			Value:       d.CO2Kg,
			Periods:     1,
		})
	}
	return out
}

func mean(v []float64) float64 { return stat.Mean(v, nil) }

// grouper collects values per bucket id. Values are appended in the order
// given, so callers feed it sorted input to keep float sums reproducible.
type grouper struct {
	values map[int][]float64
}

func newGrouper() *grouper { return &grouper{values: map[int][]float64{}} }

func (g *grouper) add(id int, v float64) { g.values[id] = append(g.values[id], v) }

func (g *grouper) buckets(c model.Category, gran Granularity, reduce func([]float64) float64, label func(int) string) []Bucket {
	ids := make([]int, 0, len(g.values))
	for id := range g.values {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Bucket, 0, len(ids))
	for _, id := range ids {
		vals := g.values[id]
		out = append(out, Bucket{
			Category:    c,
			Granularity: gran,
			ID:          id,
			Label:       label(id),
			Value:       reduce(vals),
			Periods:     len(vals),
		})
	}
	return out
}

func sortedDaily(in []DailyTotal) []DailyTotal {
	out := append([]DailyTotal(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func sortedHourly(in []HourlyTotal) []HourlyTotal {
	out := append([]HourlyTotal(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}
