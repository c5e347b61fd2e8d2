package engine

import (
	"fmt"
	"time"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/extremal"
	"github.com/kilianp07/taxico2/core/model"
	"github.com/kilianp07/taxico2/core/timeseries"
)

// Report is the typed result of one run.
type Report struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration_ns"`
	Summary    Summary           `json:"summary"`
	Categories []*CategoryReport `json:"categories"`
}

// Summary counts what happened to the input rows.
type Summary struct {
	Read            int            `json:"read"`
	Enriched        int            `json:"enriched"`
	Filtered        int            `json:"filtered"`
	Skipped         int            `json:"skipped"`
	SkippedByReason map[string]int `json:"skipped_by_reason,omitempty"`
	Examples        []ErrorExample `json:"examples,omitempty"`
}

// ErrorExample is one retained per-record error.
type ErrorExample struct {
	Row      int            `json:"row"`
	Category model.Category `json:"category,omitempty"`
	Reason   string         `json:"reason"`
	Message  string         `json:"message"`
}

// CategoryReport holds every result computed for one category.
type CategoryReport struct {
	Category model.Category          `json:"category"`
	Stats    aggregate.CategoryStats `json:"stats"`
	Rollup   aggregate.Rollup        `json:"rollup"`
	// Extremes is empty when the category had no trips.
	Extremes []extremal.Result      `json:"extremes"`
	Series   timeseries.Series      `json:"series"`
	Daily    []aggregate.DailyTotal `json:"-"`
}

// Extreme selects the heaviest or lightest bucket of g. It returns
// model.ErrNoDataForCategory when the category has no bucket for g.
func (c *CategoryReport) Extreme(g aggregate.Granularity, dir extremal.Direction) (extremal.Result, error) {
	return extremal.Select(c.Category, g, c.Rollup.Buckets(g), dir)
}

// HasData reports whether at least one trip of the category was enriched.
func (c *CategoryReport) HasData() bool { return c.Stats.Trips > 0 }

// Category returns the report of c.
func (r *Report) Category(c model.Category) (*CategoryReport, error) {
	for _, cr := range r.Categories {
		if cr.Category == c {
			return cr, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", c, model.ErrUnknownCategory)
}

// Extremes returns the extremal results of all categories in report order.
func (r *Report) Extremes() []extremal.Result {
	var out []extremal.Result
	for _, c := range r.Categories {
		out = append(out, c.Extremes...)
	}
	return out
}

// Series returns the monthly series of all categories in report order.
func (r *Report) Series() []timeseries.Series {
	out := make([]timeseries.Series, 0, len(r.Categories))
	for _, c := range r.Categories {
		out = append(out, c.Series)
	}
	return out
}
