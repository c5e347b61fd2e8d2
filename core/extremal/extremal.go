// Package extremal picks the heaviest and lightest bucket of a rollup.
package extremal

import (
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/model"
)

// Direction selects the maximum or the minimum bucket.
type Direction string

const (
	Heaviest Direction = "heaviest"
	Lightest Direction = "lightest"
)

// Directions lists both directions in report order.
var Directions = []Direction{Heaviest, Lightest}

// Result is the extremal bucket of one granularity for one category.
type Result struct {
	Category    model.Category        `json:"category"`
	Granularity aggregate.Granularity `json:"granularity"`
	BucketID    int                   `json:"bucket_id"`
	Label       string                `json:"label"`
	Value       float64               `json:"co2_kg"`
	Direction   Direction             `json:"direction"`
}

// Select returns the bucket with the maximum (Heaviest) or minimum (Lightest)
// value. On ties the bucket with the lowest ID wins in both directions. NaN
// values never win. An empty set yields model.ErrNoDataForCategory.
func Select(c model.Category, g aggregate.Granularity, buckets []aggregate.Bucket, dir Direction) (Result, error) {
	if dir != Heaviest && dir != Lightest {
		return Result{}, fmt.Errorf("unknown direction %q", dir)
	}
	candidates := make([]aggregate.Bucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Category == c && !math.IsNaN(b.Value) {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return Result{}, fmt.Errorf("%s %s: %w", c, g, model.ErrNoDataForCategory)
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	best := candidates[0]
	for _, b := range candidates[1:] {
		if (dir == Heaviest && b.Value > best.Value) || (dir == Lightest && b.Value < best.Value) {
			best = b
		}
	}
	return Result{
		Category:    c,
		Granularity: g,
		BucketID:    best.ID,
		Label:       best.Label,
		Value:       best.Value,
		Direction:   dir,
	}, nil
}

// Both returns the heaviest and the lightest bucket.
func Both(c model.Category, g aggregate.Granularity, buckets []aggregate.Bucket) (heaviest, lightest Result, err error) {
	if heaviest, err = Select(c, g, buckets, Heaviest); err != nil {
		return Result{}, Result{}, err
	}
	if lightest, err = Select(c, g, buckets, Lightest); err != nil {
		return Result{}, Result{}, err
	}
	return heaviest, lightest, nil
}

// All computes heaviest and lightest for every reported granularity of r.
// Results are ordered by granularity then direction.
func All(r aggregate.Rollup) ([]Result, error) {
	out := make([]Result, 0, 2*len(aggregate.Granularities))
	for _, g := range aggregate.Granularities {
		h, l, err := Both(r.Category, g, r.Buckets(g))
		if err != nil {
			return nil, err
		}
		out = append(out, h, l)
	}
	return out, nil
}
