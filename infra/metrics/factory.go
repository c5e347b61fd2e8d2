package metrics

import (
	"github.com/kilianp07/taxico2/core/factory"
	coremetrics "github.com/kilianp07/taxico2/core/metrics"
	"github.com/kilianp07/taxico2/infra/logger"
)

// init registers the built-in reporters.
func init() {
	_ = coremetrics.RegisterReporter("nop", func(map[string]any) (coremetrics.Reporter, error) {
		return coremetrics.NopReporter{}, nil
	})

	_ = coremetrics.RegisterReporter("log", func(conf map[string]any) (coremetrics.Reporter, error) {
		var c struct {
			Component string `json:"component"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Component == "" {
			c.Component = "reporter"
		}
		return NewLogReporter(logger.New(c.Component)), nil
	})

	_ = coremetrics.RegisterReporter("prometheus", func(map[string]any) (coremetrics.Reporter, error) {
		return NewPromReporter()
	})

	_ = coremetrics.RegisterReporter("influx", func(conf map[string]any) (coremetrics.Reporter, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxReporterWithFallback(c), nil
	})
}
