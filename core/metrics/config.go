package metrics

import "github.com/kilianp07/taxico2/core/factory"

// Config defines the reporters attached to a run.
type Config struct {
	Reporters []factory.ModuleConfig `json:"reporters"`
	// PrometheusAddr, when set, exposes /metrics while the service runs.
	PrometheusAddr string `json:"prometheus_addr"`
}
