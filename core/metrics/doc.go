// Package metrics defines the reporting interface the engine calls with
// structured events: a bucket was computed, a record was skipped, a run
// completed. Reporters such as the Prometheus, InfluxDB and log reporters in
// infra/metrics decide the sink and format, and can be combined with
// NewMultiReporter. NewReporter builds the configured set from module
// configs and returns a MultiReporter automatically when several are given.
package metrics
