// Package export writes run results as JSON, CSV, plain text and HTML charts.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/engine"
	"github.com/kilianp07/taxico2/core/extremal"
	"github.com/kilianp07/taxico2/core/timeseries"
)

// WriteReportJSON writes the full report to w as indented JSON.
func WriteReportJSON(w io.Writer, rep *engine.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteExtremesCSV writes one row per extremal result.
func WriteExtremesCSV(w io.Writer, results []extremal.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"category", "granularity", "direction", "bucket_id", "label", "co2_kg"}); err != nil {
		return err
	}
	for _, r := range results {
		rec := []string{
			string(r.Category),
			string(r.Granularity),
			string(r.Direction),
			strconv.Itoa(r.BucketID),
			r.Label,
			formatKg(r.Value),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSeriesCSV writes the monthly series in long format, twelve rows per
// category.
func WriteSeriesCSV(w io.Writer, series []timeseries.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"category", "month", "label", "total_co2_kg"}); err != nil {
		return err
	}
	for _, s := range series {
		for _, p := range s.Points {
			rec := []string{string(s.Category), strconv.Itoa(p.Month), p.Label, formatKg(p.TotalKg)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatKg(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WriteDailyCSV writes stored daily totals, one row per category and date.
func WriteDailyCSV(w io.Writer, rows []aggregate.DailyTotal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"category", "date", "trips", "co2_kg"}); err != nil {
		return err
	}
	for _, d := range rows {
		rec := []string{string(d.Category), d.Date.String(), strconv.Itoa(d.Trips), formatKg(d.CO2Kg)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
