package model

import (
	"fmt"
	"strings"
	"time"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"01/02/2006 15:04:05",
	"01/02/2006 03:04:05 PM",
}

// Naive keeps the wall clock of t and drops its location, labelling the
// result UTC. Two timestamps with the same wall clock compare equal whatever
// zone they were recorded in.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// ParseTimestamp parses the timestamp formats found in trip datasets and
// returns a naive wall-clock time. Offsets, when present, are ignored rather
// than applied.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp: %w", ErrInvalidTimestamp)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q: %w", s, ErrInvalidTimestamp)
}
