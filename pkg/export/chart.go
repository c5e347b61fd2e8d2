package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/taxico2/core/model"
	"github.com/kilianp07/taxico2/core/timeseries"
)

// WriteChartHTML renders the monthly totals as a line chart with one line per
// category.
func WriteChartHTML(w io.Writer, series []timeseries.Series) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Monthly taxi CO2 emissions"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Month"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "CO2 (kg)"}),
	)

	months := make([]string, 12)
	for m := 1; m <= 12; m++ {
		months[m-1] = model.MonthLabel(m)
	}
	line.SetXAxis(months)
	for _, s := range series {
		data := make([]opts.LineData, 0, len(s.Points))
		for _, v := range s.Values() {
			data = append(data, opts.LineData{Value: v})
		}
		line.AddSeries(string(s.Category), data)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
