package model

import (
	"strings"
	"time"
)

// Category identifies a taxi fleet. The emissions factor table is keyed by it.
type Category string

const (
	CategoryYellow Category = "yellow"
	CategoryGreen  Category = "green"
)

// ParseCategory normalizes a raw category value read from a dataset.
func ParseCategory(s string) Category {
	return Category(strings.ToLower(strings.TrimSpace(s)))
}

func (c Category) String() string { return string(c) }

// TripRecord is a completed trip as delivered by the upstream cleaning stage.
// Timestamps are wall-clock values in the dataset's local time; see Naive.
type TripRecord struct {
	Category       Category  `json:"category"`
	PassengerCount int       `json:"passenger_count"`
	TripDistance   float64   `json:"trip_distance"`
	PickupTime     time.Time `json:"pickup_time"`
	DropoffTime    time.Time `json:"dropoff_time"`
}

// Duration returns the time between pickup and dropoff.
func (t TripRecord) Duration() time.Duration {
	return t.DropoffTime.Sub(t.PickupTime)
}

// DurationSeconds returns the trip duration truncated to whole seconds.
func (t TripRecord) DurationSeconds() int64 {
	return int64(t.Duration() / time.Second)
}

// EnrichedTrip is a trip with its CO2 output and the calendar features of its
// pickup time. It is never modified after creation.
type EnrichedTrip struct {
	TripRecord
	CO2Kg    float64  `json:"co2_kg"`
	Calendar Calendar `json:"calendar"`
}
