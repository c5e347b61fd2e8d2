package metrics

import (
	coremetrics "github.com/kilianp07/taxico2/core/metrics"
	"github.com/kilianp07/taxico2/infra/logger"
)

// LogReporter writes events to a Logger. Bucket and skip events are logged
// at debug level.
type LogReporter struct {
	log logger.Logger
}

// NewLogReporter returns a LogReporter. A nil logger uses the "reporter" component.
func NewLogReporter(l logger.Logger) *LogReporter {
	if l == nil {
		l = logger.New("reporter")
	}
	return &LogReporter{log: l}
}

func (r *LogReporter) BucketComputed(ev coremetrics.BucketEvent) error {
	b := ev.Bucket
	r.log.Debugw("bucket computed", map[string]any{
		"run_id":      ev.RunID,
		"category":    string(b.Category),
		"granularity": string(b.Granularity),
		"bucket":      b.Label,
		"co2_kg":      b.Value,
		"periods":     b.Periods,
	})
	return nil
}

func (r *LogReporter) RecordSkipped(ev coremetrics.SkipEvent) error {
	fields := map[string]any{
		"run_id":   ev.RunID,
		"row":      ev.Row,
		"category": string(ev.Category),
		"reason":   ev.Reason,
	}
	if ev.Err != nil {
		fields["error"] = ev.Err.Error()
	}
	r.log.Debugw("record skipped", fields)
	return nil
}

func (r *LogReporter) RunCompleted(ev coremetrics.RunEvent) error {
	for _, x := range ev.Extremes {
		r.log.Infof("%s %s %s: %s (%.3f kg)", x.Category, x.Granularity, x.Direction, x.Label, x.Value)
	}
	r.log.Infow("run completed", map[string]any{
		"run_id":      ev.RunID,
		"read":        ev.Read,
		"enriched":    ev.Enriched,
		"filtered":    ev.Filtered,
		"skipped":     ev.Skipped,
		"duration_ms": ev.Duration.Milliseconds(),
	})
	return nil
}
