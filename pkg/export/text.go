package export

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/kilianp07/taxico2/core/engine"
	"github.com/kilianp07/taxico2/core/extremal"
)

// WriteText writes a human readable summary of the run.
func WriteText(w io.Writer, rep *engine.Report) error {
	s := rep.Summary
	if _, err := fmt.Fprintf(w, "run %s: read=%d enriched=%d filtered=%d skipped=%d\n",
		rep.RunID, s.Read, s.Enriched, s.Filtered, s.Skipped); err != nil {
		return err
	}
	reasons := make([]string, 0, len(s.SkippedByReason))
	for reason := range s.SkippedByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		if _, err := fmt.Fprintf(w, "  skipped %s: %d\n", reason, s.SkippedByReason[reason]); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range rep.Categories {
		fmt.Fprintf(tw, "\n%s\ttrips=%d\ttotal=%.3f kg\n", c.Category, c.Stats.Trips, c.Stats.TotalCO2Kg)
		if !c.HasData() {
			fmt.Fprintf(tw, "  no data\t\t\n")
			continue
		}
		for _, r := range c.Extremes {
			fmt.Fprintf(tw, "  %s %s\t%s\t%.3f kg\n", directionWord(r.Direction), r.Granularity, r.Label, r.Value)
		}
	}
	return tw.Flush()
}

func directionWord(d extremal.Direction) string {
	if d == extremal.Heaviest {
		return "max"
	}
	return "min"
}
