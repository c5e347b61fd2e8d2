package model

import (
	"fmt"
	"math"
	"sort"
)

// Factors maps a category to its CO2 output in kilograms per mile.
type Factors map[Category]float64

// Rate returns the factor for c.
func (f Factors) Rate(c Category) (float64, error) {
	r, ok := f[c]
	if !ok {
		return 0, fmt.Errorf("%q: %w", c, ErrUnknownCategory)
	}
	return r, nil
}

// Validate checks that the table is usable for a run.
func (f Factors) Validate() error {
	if len(f) == 0 {
		return ErrMissingFactors
	}
	for c, r := range f {
		if c == "" {
			return fmt.Errorf("empty category in factor table")
		}
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("factor for %s must be a finite non-negative number, got %v", c, r)
		}
	}
	return nil
}

// Categories returns the categories of the table in lexical order.
func (f Factors) Categories() []Category {
	out := make([]Category, 0, len(f))
	for c := range f {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
