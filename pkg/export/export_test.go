package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/engine"
	"github.com/kilianp07/taxico2/core/model"
	"github.com/kilianp07/taxico2/core/source"
)

func trip(c model.Category, pickup string, dist float64) model.TripRecord {
	pu, _ := time.Parse(time.DateTime, pickup)
	return model.TripRecord{Category: c, PassengerCount: 1, TripDistance: dist, PickupTime: pu, DropoffTime: pu.Add(10 * time.Minute)}
}

func sampleReport(t *testing.T) *engine.Report {
	t.Helper()
	factors := source.StaticFactors{model.CategoryYellow: 0.5, model.CategoryGreen: 0.3}
	eng, err := engine.New(engine.Config{}, factors, nil, nil)
	require.NoError(t, err)
	rep, err := eng.Run(context.Background(), source.NewSliceSource(
		trip(model.CategoryYellow, "2024-01-15 10:05:00", 10),
		trip(model.CategoryYellow, "2024-03-04 08:30:00", 2),
	))
	require.NoError(t, err)
	return rep
}

func TestWriteReportJSON(t *testing.T) {
	rep := sampleReport(t)
	var buf bytes.Buffer
	require.NoError(t, WriteReportJSON(&buf, rep))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, rep.RunID, out["run_id"])
	assert.Len(t, out["categories"], 2)
}

func TestWriteExtremesCSV(t *testing.T) {
	rep := sampleReport(t)
	var buf bytes.Buffer
	require.NoError(t, WriteExtremesCSV(&buf, rep.Extremes()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"category", "granularity", "direction", "bucket_id", "label", "co2_kg"}, rows[0])
	// green has no trips and contributes no rows.
	assert.Len(t, rows, 1+8)
	assert.Contains(t, rows, []string{"yellow", "hour_of_day", "heaviest", "10", "10:00", "5"})
	assert.Contains(t, rows, []string{"yellow", "hour_of_day", "lightest", "8", "08:00", "1"})
	assert.Contains(t, rows, []string{"yellow", "month", "heaviest", "1", "Jan", "5"})
}

func TestWriteSeriesCSV(t *testing.T) {
	rep := sampleReport(t)
	var buf bytes.Buffer
	require.NoError(t, WriteSeriesCSV(&buf, rep.Series()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+24)
	assert.Equal(t, []string{"green", "1", "Jan", "0"}, rows[1])
	assert.Contains(t, rows, []string{"yellow", "1", "Jan", "5"})
	assert.Contains(t, rows, []string{"yellow", "2", "Feb", "0"})
	assert.Contains(t, rows, []string{"yellow", "3", "Mar", "1"})
}

func TestWriteText(t *testing.T) {
	rep := sampleReport(t)
	rep.Summary.SkippedByReason = map[string]int{"unknown_category": 2}
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, rep))

	out := buf.String()
	assert.Contains(t, out, "read=2 enriched=2 filtered=0 skipped=0")
	assert.Contains(t, out, "skipped unknown_category: 2")
	assert.Contains(t, out, "no data")
	assert.Contains(t, out, "max hour_of_day")
	assert.Contains(t, out, "min month")
}

func TestWriteChartHTML(t *testing.T) {
	rep := sampleReport(t)
	var buf bytes.Buffer
	require.NoError(t, WriteChartHTML(&buf, rep.Series()))

	out := buf.String()
	assert.Contains(t, out, "Monthly taxi CO2 emissions")
	assert.Contains(t, out, "yellow")
	assert.Contains(t, out, "green")
	assert.Contains(t, out, "Dec")
}

func TestWriteDailyCSV(t *testing.T) {
	rows := []aggregate.DailyTotal{
		{Category: model.CategoryYellow, Date: model.Date{Year: 2024, Month: time.March, Day: 1}, CO2Kg: 1.25, Trips: 3},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteDailyCSV(&buf, rows))
	assert.Equal(t, "category,date,trips,co2_kg\nyellow,2024-03-01,3,1.25\n", buf.String())
}
