package emissions

import (
	"fmt"
	"time"

	"github.com/kilianp07/taxico2/core/model"
)

const (
	// DefaultMaxDistance is the longest plausible trip in miles.
	DefaultMaxDistance = 100.0
	// DefaultMaxDuration is the longest plausible trip.
	DefaultMaxDuration = 24 * time.Hour
)

// Rules are the plausibility bounds applied by Validator.
type Rules struct {
	MaxDistance float64
	MaxDuration time.Duration
}

// SetDefaults fills zero bounds.
func (r *Rules) SetDefaults() {
	if r.MaxDistance <= 0 {
		r.MaxDistance = DefaultMaxDistance
	}
	if r.MaxDuration <= 0 {
		r.MaxDuration = DefaultMaxDuration
	}
}

// Validator rejects trips an upstream cleaning stage would have removed:
// no passengers, a distance outside (0, MaxDistance] or a duration outside
// [0, MaxDuration].
type Validator struct {
	rules Rules
}

// NewValidator returns a Validator with defaults applied to rules.
func NewValidator(rules Rules) *Validator {
	rules.SetDefaults()
	return &Validator{rules: rules}
}

// Check returns an error wrapping model.ErrRejectedTrip when t fails a rule.
func (v *Validator) Check(t model.TripRecord) error {
	if t.PassengerCount <= 0 {
		return fmt.Errorf("passenger_count %d: %w", t.PassengerCount, model.ErrRejectedTrip)
	}
	if t.TripDistance <= 0 || t.TripDistance > v.rules.MaxDistance {
		return fmt.Errorf("trip_distance %.2f: %w", t.TripDistance, model.ErrRejectedTrip)
	}
	d := t.Duration()
	if d < 0 || d > v.rules.MaxDuration {
		return fmt.Errorf("duration %s: %w", d, model.ErrRejectedTrip)
	}
	return nil
}
