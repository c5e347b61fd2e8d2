package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxico2/core/model"
)

func enriched(cat model.Category, co2 float64, pickup time.Time) model.EnrichedTrip {
	return model.EnrichedTrip{
		TripRecord: model.TripRecord{
			Category:       cat,
			PassengerCount: 1,
			TripDistance:   co2,
			PickupTime:     pickup,
			DropoffTime:    pickup.Add(10 * time.Minute),
		},
		CO2Kg:    co2,
		Calendar: model.CalendarOf(pickup),
	}
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestAccumulator_DailyAndHourly(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(enriched(model.CategoryYellow, 3, at(2024, 1, 2, 8)))
	acc.Add(enriched(model.CategoryYellow, 2, at(2024, 1, 2, 8)))
	acc.Add(enriched(model.CategoryYellow, 1, at(2024, 1, 2, 22)))
	acc.Add(enriched(model.CategoryYellow, 4, at(2024, 1, 1, 9)))
	acc.Add(enriched(model.CategoryGreen, 7, at(2024, 1, 1, 9)))

	daily := acc.Daily(model.CategoryYellow)
	require.Len(t, daily, 2)
	assert.Equal(t, "2024-01-01", daily[0].Date.String())
	assert.Equal(t, 4.0, daily[0].CO2Kg)
	assert.Equal(t, 6.0, daily[1].CO2Kg)
	assert.Equal(t, 3, daily[1].Trips)

	hourly := acc.Hourly(model.CategoryYellow)
	require.Len(t, hourly, 3)
	assert.Equal(t, 9, hourly[0].Hour)
	assert.Equal(t, 8, hourly[1].Hour)
	assert.Equal(t, 5.0, hourly[1].CO2Kg)
	assert.Equal(t, 22, hourly[2].Hour)

	d, h := acc.Len()
	assert.Equal(t, 3, d)
	assert.Equal(t, 4, h)
	assert.Equal(t, []model.Category{model.CategoryGreen, model.CategoryYellow}, acc.Categories())

	st := acc.Stats(model.CategoryYellow)
	assert.Equal(t, 4, st.Trips)
	assert.Equal(t, 10.0, st.TotalCO2Kg)
	require.NotNil(t, st.MaxTrip)
	assert.Equal(t, 4.0, st.MaxTrip.CO2Kg)
	assert.Equal(t, "2024-01-01 09:00:00", st.MaxTrip.PickupTime)
	assert.Equal(t, CategoryStats{}, acc.Stats("blue"))
}

func TestSumConservation(t *testing.T) {
	acc := NewAccumulator()
	var want float64
	start := at(2024, 1, 1, 0)
	for i := 0; i < 500; i++ {
		co2 := 0.1 + float64(i%17)*0.37
		want += co2
		acc.Add(enriched(model.CategoryYellow, co2, start.Add(time.Duration(i)*97*time.Minute)))
	}
	var got float64
	for _, d := range acc.Daily(model.CategoryYellow) {
		got += d.CO2Kg
	}
	assert.InDelta(t, want, got, 1e-9)
	assert.InDelta(t, want, acc.Stats(model.CategoryYellow).TotalCO2Kg, 1e-9)

	var hourly float64
	for _, h := range acc.Hourly(model.CategoryYellow) {
		hourly += h.CO2Kg
	}
	assert.InDelta(t, want, hourly, 1e-9)
}

func TestWeekAndMonthConsistency(t *testing.T) {
	acc := NewAccumulator()
	start := at(2024, 1, 25, 6)
	for i := 0; i < 40; i++ {
		acc.Add(enriched(model.CategoryGreen, float64(i+1), start.Add(time.Duration(i)*13*time.Hour)))
	}
	daily := acc.Daily(model.CategoryGreen)

	perWeek := map[int]float64{}
	perMonth := map[int]float64{}
	for _, d := range daily {
		perWeek[d.Date.ISOWeek()] += d.CO2Kg
		perMonth[int(d.Date.Month)] += d.CO2Kg
	}
	weeks := SumByWeek(model.CategoryGreen, daily)
	require.Len(t, weeks, len(perWeek))
	for _, w := range weeks {
		assert.InDelta(t, perWeek[w.ID], w.Value, 1e-9, "week %d", w.ID)
	}
	months := SumByMonth(model.CategoryGreen, daily)
	require.Len(t, months, len(perMonth))
	for _, m := range months {
		assert.InDelta(t, perMonth[m.ID], m.Value, 1e-9, "month %d", m.ID)
	}
}

// Two trips on day A totalling 10 kg and one trip on day B of 4 kg in the
// same week: the week is 14 kg and each weekday keeps its own daily sum.
func TestTwoLevelRollup(t *testing.T) {
	acc := NewAccumulator()
	// Monday and Wednesday of ISO week 17, 2024.
	acc.Add(enriched(model.CategoryYellow, 6, at(2024, 4, 22, 8)))
	acc.Add(enriched(model.CategoryYellow, 4, at(2024, 4, 22, 18)))
	acc.Add(enriched(model.CategoryYellow, 4, at(2024, 4, 24, 12)))

	r := Build(model.CategoryYellow, acc.Daily(model.CategoryYellow), acc.Hourly(model.CategoryYellow))

	require.Len(t, r.Weeks, 1)
	assert.Equal(t, 17, r.Weeks[0].ID)
	assert.Equal(t, 14.0, r.Weeks[0].Value)
	assert.Equal(t, "W17", r.Weeks[0].Label)

	require.Len(t, r.DayOfWeek, 2)
	assert.Equal(t, 1, r.DayOfWeek[0].ID)
	assert.Equal(t, "Mon", r.DayOfWeek[0].Label)
	assert.Equal(t, 10.0, r.DayOfWeek[0].Value)
	assert.Equal(t, 3, r.DayOfWeek[1].ID)
	assert.Equal(t, 4.0, r.DayOfWeek[1].Value)
	for _, b := range r.DayOfWeek {
		assert.NotEqual(t, 14.0/3, b.Value)
	}

	require.Len(t, r.Months, 1)
	assert.Equal(t, 14.0, r.Months[0].Value)
	assert.Equal(t, "Apr", r.Months[0].Label)
}

func TestAverageByWeekday_MeanOfDailySums(t *testing.T) {
	acc := NewAccumulator()
	// Two Mondays: one busy (3 trips, 9 kg) and one quiet (1 trip, 1 kg).
	acc.Add(enriched(model.CategoryYellow, 3, at(2024, 4, 22, 8)))
	acc.Add(enriched(model.CategoryYellow, 3, at(2024, 4, 22, 9)))
	acc.Add(enriched(model.CategoryYellow, 3, at(2024, 4, 22, 10)))
	acc.Add(enriched(model.CategoryYellow, 1, at(2024, 4, 29, 8)))

	dow := AverageByWeekday(model.CategoryYellow, acc.Daily(model.CategoryYellow))
	require.Len(t, dow, 1)
	// Mean of daily sums (9+1)/2, not mean of trips (10/4).
	assert.Equal(t, 5.0, dow[0].Value)
	assert.Equal(t, 2, dow[0].Periods)
}

func TestAverageByHour_MeanOfDateHourSums(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(enriched(model.CategoryGreen, 2, at(2024, 3, 1, 7)))
	acc.Add(enriched(model.CategoryGreen, 2, at(2024, 3, 1, 7)))
	acc.Add(enriched(model.CategoryGreen, 6, at(2024, 3, 2, 7)))
	acc.Add(enriched(model.CategoryGreen, 1, at(2024, 3, 2, 23)))

	hours := AverageByHour(model.CategoryGreen, acc.Hourly(model.CategoryGreen))
	require.Len(t, hours, 2)
	assert.Equal(t, 7, hours[0].ID)
	assert.Equal(t, "07:00", hours[0].Label)
	assert.Equal(t, 5.0, hours[0].Value)
	assert.Equal(t, 2, hours[0].Periods)
	assert.Equal(t, 23, hours[1].ID)
	assert.Equal(t, 1.0, hours[1].Value)
}

func TestEmptyBucketsExcluded(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(enriched(model.CategoryYellow, 5, at(2024, 1, 10, 8)))
	acc.Add(enriched(model.CategoryYellow, 2, at(2024, 3, 10, 8)))

	months := SumByMonth(model.CategoryYellow, acc.Daily(model.CategoryYellow))
	require.Len(t, months, 2)
	assert.Equal(t, 1, months[0].ID)
	assert.Equal(t, 3, months[1].ID)

	assert.Empty(t, SumByMonth(model.CategoryGreen, acc.Daily(model.CategoryYellow)))
	assert.Empty(t, Build(model.CategoryGreen, nil, nil).Buckets(Month))
}

func TestCategoryIsolation(t *testing.T) {
	base := NewAccumulator()
	withGreen := NewAccumulator()
	for i := 0; i < 30; i++ {
		tr := enriched(model.CategoryYellow, float64(i%5+1), at(2024, 2, 1, 0).Add(time.Duration(i)*7*time.Hour))
		base.Add(tr)
		withGreen.Add(tr)
	}
	withGreen.Add(enriched(model.CategoryGreen, 1e6, at(2024, 2, 3, 14)))

	a := Build(model.CategoryYellow, base.Daily(model.CategoryYellow), base.Hourly(model.CategoryYellow))
	b := Build(model.CategoryYellow, withGreen.Daily(model.CategoryYellow), withGreen.Hourly(model.CategoryYellow))
	assert.Equal(t, a, b)

	// Mixed input rows are filtered by category.
	var mixed []DailyTotal
	mixed = append(mixed, withGreen.Daily(model.CategoryYellow)...)
	mixed = append(mixed, withGreen.Daily(model.CategoryGreen)...)
	assert.Equal(t, a.Months, SumByMonth(model.CategoryYellow, mixed))
}

func TestRollupDeterministicOrder(t *testing.T) {
	acc := NewAccumulator()
	for i := 0; i < 200; i++ {
		acc.Add(enriched(model.CategoryYellow, 0.1*float64(i%9)+0.01, at(2024, 5, 1, 0).Add(time.Duration(i)*5*time.Hour)))
	}
	daily := acc.Daily(model.CategoryYellow)
	reversed := make([]DailyTotal, len(daily))
	for i := range daily {
		reversed[len(daily)-1-i] = daily[i]
	}
	assert.Equal(t, SumByWeek(model.CategoryYellow, daily), SumByWeek(model.CategoryYellow, reversed))
	assert.Equal(t, AverageByWeekday(model.CategoryYellow, daily), AverageByWeekday(model.CategoryYellow, reversed))
}

func TestDailyBuckets(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(enriched(model.CategoryYellow, 1.5, at(2024, 12, 31, 23)))
	b := DailyBuckets(model.CategoryYellow, acc.Daily(model.CategoryYellow))
	require.Len(t, b, 1)
	assert.Equal(t, 20241231, b[0].ID)
	assert.Equal(t, "2024-12-31", b[0].Label)
	assert.Equal(t, Daily, b[0].Granularity)
}

func TestRollupBuckets(t *testing.T) {
	r := Rollup{HourOfDay: []Bucket{{ID: 1}}, DayOfWeek: []Bucket{{ID: 2}}, Weeks: []Bucket{{ID: 3}}, Months: []Bucket{{ID: 4}}}
	assert.Equal(t, 1, r.Buckets(HourOfDay)[0].ID)
	assert.Equal(t, 2, r.Buckets(DayOfWeek)[0].ID)
	assert.Equal(t, 3, r.Buckets(WeekOfYear)[0].ID)
	assert.Equal(t, 4, r.Buckets(Month)[0].ID)
	assert.Nil(t, r.Buckets(Daily))
}
