// Package timeseries builds chart-ready monthly CO2 totals.
package timeseries

import (
	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/model"
)

// Point is the total CO2 of one month.
type Point struct {
	Month   int     `json:"month"`
	Label   string  `json:"label"`
	TotalKg float64 `json:"total_co2_kg"`
}

// Series is the ordered monthly totals of one category.
type Series struct {
	Category model.Category `json:"category"`
	Points   []Point        `json:"points"`
}

// Monthly returns twelve points, January first. Months without trips are
// reported as zero so a chart always has a complete x-axis; this is the only
// place a missing bucket becomes a value.
func Monthly(c model.Category, months []aggregate.Bucket) Series {
	totals := make(map[int]float64, len(months))
	for _, b := range months {
		if b.Category == c && b.Granularity == aggregate.Month {
			totals[b.ID] += b.Value
		}
	}
	s := Series{Category: c, Points: make([]Point, 12)}
	for m := 1; m <= 12; m++ {
		s.Points[m-1] = Point{Month: m, Label: model.MonthLabel(m), TotalKg: totals[m]}
	}
	return s
}

// Values returns the totals in month order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.TotalKg
	}
	return out
}
