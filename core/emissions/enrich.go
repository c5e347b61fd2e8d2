// Package emissions attaches a CO2 figure and calendar features to trips.
package emissions

import (
	"fmt"
	"math"

	"github.com/kilianp07/taxico2/core/model"
)

// Enricher computes EnrichedTrips from a fixed factor table. It holds no
// mutable state, so Enrich is a pure function of its input.
type Enricher struct {
	factors model.Factors
}

// NewEnricher copies and validates the factor table.
func NewEnricher(factors model.Factors) (*Enricher, error) {
	if err := factors.Validate(); err != nil {
		return nil, fmt.Errorf("emission factors: %w", err)
	}
	cp := make(model.Factors, len(factors))
	for c, r := range factors {
		cp[c] = r
	}
	return &Enricher{factors: cp}, nil
}

// Factors returns a copy of the table used by the enricher.
func (e *Enricher) Factors() model.Factors {
	cp := make(model.Factors, len(e.factors))
	for c, r := range e.factors {
		cp[c] = r
	}
	return cp
}

// Enrich returns the trip with co2_kg = trip_distance * factor[category] and
// the calendar features of its pickup time.
func (e *Enricher) Enrich(t model.TripRecord) (model.EnrichedTrip, error) {
	rate, err := e.factors.Rate(t.Category)
	if err != nil {
		return model.EnrichedTrip{}, err
	}
	if t.PickupTime.IsZero() || t.DropoffTime.IsZero() {
		return model.EnrichedTrip{}, fmt.Errorf("missing pickup or dropoff: %w", model.ErrInvalidTimestamp)
	}
	if t.DropoffTime.Before(t.PickupTime) {
		return model.EnrichedTrip{}, fmt.Errorf("dropoff %s before pickup %s: %w",
			t.DropoffTime.Format("2006-01-02 15:04:05"), t.PickupTime.Format("2006-01-02 15:04:05"), model.ErrInvalidTimestamp)
	}
	if t.TripDistance < 0 || math.IsNaN(t.TripDistance) || math.IsInf(t.TripDistance, 0) {
		return model.EnrichedTrip{}, fmt.Errorf("distance %v: %w", t.TripDistance, model.ErrInvalidTrip)
	}
	return model.EnrichedTrip{
		TripRecord: t,
		CO2Kg:      t.TripDistance * rate,
		Calendar:   model.CalendarOf(t.PickupTime),
	}, nil
}
