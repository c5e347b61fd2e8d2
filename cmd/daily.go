package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxico2/app"
	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/model"
	"github.com/kilianp07/taxico2/pkg/export"
)

var (
	dailyCategory string
	dailyStart    string
	dailyEnd      string
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Query the stored daily CO2 totals",
	RunE:  runDaily,
}

func init() {
	dailyCmd.Flags().StringVar(&dailyCategory, "category", "", "category to query, all stored categories when empty")
	dailyCmd.Flags().StringVar(&dailyStart, "start", "", "first date (YYYY-MM-DD), inclusive")
	dailyCmd.Flags().StringVar(&dailyEnd, "end", "", "last date (YYYY-MM-DD), inclusive")
	rootCmd.AddCommand(dailyCmd)
}

func parseDateFlag(name, v string) (model.Date, error) {
	if v == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return model.Date{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

func runDaily(cmd *cobra.Command, args []string) error {
	start, err := parseDateFlag("start", dailyStart)
	if err != nil {
		return err
	}
	end, err := parseDateFlag("end", dailyEnd)
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return errors.New("--end is before --start")
	}

	cfg, cleanup, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signalContext()
	defer stop()

	st, err := app.OpenStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	cats := []model.Category{model.ParseCategory(dailyCategory)}
	if dailyCategory == "" {
		if cats, err = st.Categories(ctx); err != nil {
			return err
		}
	}
	var rows []aggregate.DailyTotal
	for _, c := range cats {
		r, err := st.Query(ctx, c, start, end)
		if err != nil {
			return err
		}
		rows = append(rows, r...)
	}
	return export.WriteDailyCSV(cmd.OutOrStdout(), rows)
}
