package model

import (
	"fmt"
	"strings"
	"time"
)

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var monthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Date is a calendar day without time of day or location. It is comparable
// and used as a map key by the pivots.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// DateOf returns the wall-clock date of t.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight of d labelled UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string { return d.Time().Format(time.DateOnly) }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Weekday returns 0 for Sunday through 6 for Saturday.
func (d Date) Weekday() int { return int(d.Time().Weekday()) }

// ISOWeek returns the ISO-8601 week number, 1 to 53.
func (d Date) ISOWeek() int {
	_, w := d.Time().ISOWeek()
	return w
}

// MarshalText encodes d as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText decodes a YYYY-MM-DD value.
func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Calendar holds the calendar features derived from a pickup time.
type Calendar struct {
	Date    Date `json:"date"`
	Hour    int  `json:"hour_of_day"`
	Weekday int  `json:"day_of_week"`
	Week    int  `json:"week_of_year"`
	Month   int  `json:"month"`
}

// CalendarOf derives the calendar features of t from its wall clock. No
// location conversion or daylight-saving normalization is applied: a pickup
// recorded at 02:30 is in hour 2 even on a day where that local time does not
// exist.
func CalendarOf(t time.Time) Calendar {
	d := DateOf(t)
	return Calendar{
		Date:    d,
		Hour:    t.Hour(),
		Weekday: d.Weekday(),
		Week:    d.ISOWeek(),
		Month:   int(d.Month),
	}
}

// WeekdayLabel returns the short English name for a 0 (Sunday) to 6 index.
func WeekdayLabel(i int) string {
	if i < 0 || i > 6 {
		return fmt.Sprintf("dow%d", i)
	}
	return weekdayLabels[i]
}

// MonthLabel returns the short English name for a 1 to 12 month number.
func MonthLabel(m int) string {
	if m < 1 || m > 12 {
		return fmt.Sprintf("month%d", m)
	}
	return monthLabels[m-1]
}

// HourLabel formats an hour of day as HH:00.
func HourLabel(h int) string { return fmt.Sprintf("%02d:00", h) }

// WeekLabel formats an ISO week number as W01..W53.
func WeekLabel(w int) string { return fmt.Sprintf("W%02d", w) }
