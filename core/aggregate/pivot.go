// Package aggregate builds the per-day and per-date-hour CO2 pivots and the
// calendar rollups derived from them.
//
// Rollups are always two-level: trips are first summed into DailyTotal (or
// HourlyTotal) rows and the higher granularities are computed from those
// sums. A busy day therefore weighs as one period, not as its trip count.
package aggregate

import (
	"sort"

	"github.com/kilianp07/taxico2/core/model"
)

// DailyKey identifies a DailyTotal row.
type DailyKey struct {
	Category model.Category
	Date     model.Date
}

// HourlyKey identifies an HourlyTotal row.
type HourlyKey struct {
	Category model.Category
	Date     model.Date
	Hour     int
}

// DailyTotal is the CO2 emitted by one category on one date.
type DailyTotal struct {
	Category model.Category `json:"category"`
	Date     model.Date     `json:"date"`
	CO2Kg    float64        `json:"co2_kg"`
	Trips    int            `json:"trips"`
}

// HourlyTotal is the CO2 emitted by one category in one hour of one date.
type HourlyTotal struct {
	Category model.Category `json:"category"`
	Date     model.Date     `json:"date"`
	Hour     int            `json:"hour"`
	CO2Kg    float64        `json:"co2_kg"`
	Trips    int            `json:"trips"`
}

// TripPeak is the single highest-emitting trip of a category.
type TripPeak struct {
	PickupTime   string  `json:"pickup_time"`
	TripDistance float64 `json:"trip_distance"`
	CO2Kg        float64 `json:"co2_kg"`
}

// CategoryStats are trip-level totals kept alongside the pivots.
type CategoryStats struct {
	Trips      int       `json:"trips"`
	TotalCO2Kg float64   `json:"total_co2_kg"`
	MaxTrip    *TripPeak `json:"max_trip,omitempty"`
}

// Accumulator is the streaming first level: a keyed running sum per
// (category, date) and (category, date, hour). Memory grows with the number
// of distinct buckets, not with the number of trips. It is not safe for
// concurrent use.
type Accumulator struct {
	daily  map[DailyKey]*DailyTotal
	hourly map[HourlyKey]*HourlyTotal
	stats  map[model.Category]*CategoryStats
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		daily:  map[DailyKey]*DailyTotal{},
		hourly: map[HourlyKey]*HourlyTotal{},
		stats:  map[model.Category]*CategoryStats{},
	}
}

// Add folds one enriched trip into the pivots.
func (a *Accumulator) Add(t model.EnrichedTrip) {
	dk := DailyKey{Category: t.Category, Date: t.Calendar.Date}
	d := a.daily[dk]
	if d == nil {
		d = &DailyTotal{Category: t.Category, Date: t.Calendar.Date}
		a.daily[dk] = d
	}
	d.CO2Kg += t.CO2Kg
	d.Trips++

	hk := HourlyKey{Category: t.Category, Date: t.Calendar.Date, Hour: t.Calendar.Hour}
	h := a.hourly[hk]
	if h == nil {
		h = &HourlyTotal{Category: t.Category, Date: t.Calendar.Date, Hour: t.Calendar.Hour}
		a.hourly[hk] = h
	}
	h.CO2Kg += t.CO2Kg
	h.Trips++

	s := a.stats[t.Category]
	if s == nil {
		s = &CategoryStats{}
		a.stats[t.Category] = s
	}
	s.Trips++
	s.TotalCO2Kg += t.CO2Kg
	// Strictly greater keeps the earliest trip on ties.
	if s.MaxTrip == nil || t.CO2Kg > s.MaxTrip.CO2Kg {
		s.MaxTrip = &TripPeak{
			PickupTime:   t.PickupTime.Format("2006-01-02 15:04:05"),
			TripDistance: t.TripDistance,
			CO2Kg:        t.CO2Kg,
		}
	}
}

// Categories returns the categories seen so far in lexical order.
func (a *Accumulator) Categories() []model.Category {
	out := make([]model.Category, 0, len(a.stats))
	for c := range a.stats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stats returns the trip-level totals of c. The zero value is returned for a
// category without trips.
func (a *Accumulator) Stats(c model.Category) CategoryStats {
	if s := a.stats[c]; s != nil {
		return *s
	}
	return CategoryStats{}
}

// Daily returns the DailyTotal rows of c ordered by date.
func (a *Accumulator) Daily(c model.Category) []DailyTotal {
	var out []DailyTotal
	for k, v := range a.daily {
		if k.Category == c {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Hourly returns the HourlyTotal rows of c ordered by date then hour.
func (a *Accumulator) Hourly(c model.Category) []HourlyTotal {
	var out []HourlyTotal
	for k, v := range a.hourly {
		if k.Category == c {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}

// Len returns the number of DailyTotal and HourlyTotal rows held.
func (a *Accumulator) Len() (daily, hourly int) {
	return len(a.daily), len(a.hourly)
}
