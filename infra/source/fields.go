package source

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/taxico2/core/model"
)

// Logical trip fields and the column names accepted for each. Lookups are
// case-insensitive.
const (
	fieldCategory   = "category"
	fieldPassengers = "passenger_count"
	fieldDistance   = "trip_distance"
	fieldPickup     = "pickup_time"
	fieldDropoff    = "dropoff_time"
)

var fieldOrder = []string{fieldCategory, fieldPassengers, fieldDistance, fieldPickup, fieldDropoff}

var fieldAliases = map[string][]string{
	fieldCategory:   {"category", "color", "vehicle_type", "taxi_type"},
	fieldPassengers: {"passenger_count", "passengers"},
	fieldDistance:   {"trip_distance", "distance"},
	fieldPickup:     {"pickup_time", "pickup_datetime", "tpep_pickup_datetime", "lpep_pickup_datetime"},
	fieldDropoff:    {"dropoff_time", "dropoff_datetime", "tpep_dropoff_datetime", "lpep_dropoff_datetime"},
}

// columnIndex maps each logical field to its position in header. Category
// may be absent when a default category is configured.
func columnIndex(header []string, haveDefault bool) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	idx := make(map[string]int, len(fieldAliases))
	for _, field := range fieldOrder {
		for _, a := range fieldAliases[field] {
			if i, ok := pos[a]; ok {
				idx[field] = i
				break
			}
		}
		if _, ok := idx[field]; !ok && !(field == fieldCategory && haveDefault) {
			return nil, fmt.Errorf("missing column %q (accepted: %s)", field, strings.Join(fieldAliases[field], ", "))
		}
	}
	return idx, nil
}

// rawTrip holds one input row as text.
type rawTrip struct {
	Category   string
	Passengers string
	Distance   string
	Pickup     string
	Dropoff    string
}

// parse converts r into a TripRecord. Failures are returned as
// *model.RecordError so the engine can skip the row.
func (r rawTrip) parse(row int, def model.Category) (model.TripRecord, error) {
	cat := model.ParseCategory(r.Category)
	if cat == "" {
		cat = def
	}
	fail := func(err error) (model.TripRecord, error) {
		return model.TripRecord{}, &model.RecordError{Row: row, Category: cat, Err: err}
	}
	if cat == "" {
		return fail(fmt.Errorf("empty category: %w", model.ErrUnknownCategory))
	}

	var passengers int
	if s := strings.TrimSpace(r.Passengers); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !validPassengers(f) {
			return fail(fmt.Errorf("passenger_count %q: %w", s, model.ErrInvalidTrip))
		}
		passengers = int(f)
	}
	dist, err := strconv.ParseFloat(strings.TrimSpace(r.Distance), 64)
	if err != nil {
		return fail(fmt.Errorf("trip_distance %q: %w", r.Distance, model.ErrInvalidTrip))
	}
	pickup, err := model.ParseTimestamp(r.Pickup)
	if err != nil {
		return fail(fmt.Errorf("pickup: %w", err))
	}
	dropoff, err := model.ParseTimestamp(r.Dropoff)
	if err != nil {
		return fail(fmt.Errorf("dropoff: %w", err))
	}
	return model.TripRecord{
		Category:       cat,
		PassengerCount: passengers,
		TripDistance:   dist,
		PickupTime:     pickup,
		DropoffTime:    dropoff,
	}, nil
}

// validPassengers reports whether f is a whole count that fits an int32.
func validPassengers(f float64) bool {
	return !math.IsNaN(f) && f == math.Trunc(f) && f >= 0 && f <= math.MaxInt32
}

// text renders a scanned database or JSON value for rawTrip.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case json.Number:
		return x.String()
	case time.Time:
		return model.Naive(x).Format("2006-01-02T15:04:05.999999999")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
