package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCategory is returned when a trip's category has no emissions factor.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidTimestamp is returned for unparseable timestamps or a dropoff before pickup.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrInvalidTrip is returned for trips whose numeric fields cannot be used.
	ErrInvalidTrip = errors.New("invalid trip")
	// ErrRejectedTrip is returned when a trip fails the optional cleaning rules.
	ErrRejectedTrip = errors.New("trip rejected by cleaning rules")
	// ErrNoDataForCategory is returned when a selection has no bucket to choose from.
	ErrNoDataForCategory = errors.New("no data for category")
	// ErrMissingFactors is returned when the emissions factor table is absent or empty.
	ErrMissingFactors = errors.New("missing emissions factors")
)

// RecordError wraps a failure tied to one input row. The engine skips such
// records unless it runs in strict mode.
type RecordError struct {
	Row      int
	Category Category
	Err      error
}

func (e *RecordError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("row %d (%s): %v", e.Row, e.Category, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Reason returns a stable short code for the per-record error kind.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, ErrRejectedTrip):
		return "rejected"
	case errors.Is(err, ErrInvalidTrip):
		return "invalid_trip"
	default:
		return "other"
	}
}
