package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/taxico2/core/aggregate"
	coremetrics "github.com/kilianp07/taxico2/core/metrics"
)

// PromReporter exposes the latest run as Prometheus metrics. Daily buckets
// are not exported to keep label cardinality bounded.
type PromReporter struct {
	skipped  *prometheus.CounterVec
	buckets  *prometheus.GaugeVec
	extremes *prometheus.GaugeVec
	monthly  *prometheus.GaugeVec
	records  *prometheus.GaugeVec
	duration prometheus.Histogram
}

// NewPromReporter registers the metrics on the default Prometheus registerer.
func NewPromReporter() (*PromReporter, error) {
	return NewPromReporterWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromReporterWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromReporterWithRegistry(reg prometheus.Registerer) (*PromReporter, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PromReporter{
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxico2_records_skipped_total",
			Help: "Trip records skipped or filtered, by reason",
		}, []string{"category", "reason"}),
		buckets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taxico2_bucket_co2_kg",
			Help: "CO2 of each rollup bucket in the latest run",
		}, []string{"category", "granularity", "bucket"}),
		extremes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taxico2_extreme_co2_kg",
			Help: "CO2 of the heaviest and lightest bucket per granularity",
		}, []string{"category", "granularity", "direction", "bucket"}),
		monthly: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taxico2_monthly_co2_kg",
			Help: "Monthly CO2 totals, zero for months without trips",
		}, []string{"category", "month"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taxico2_run_records",
			Help: "Record counts of the latest run by stage",
		}, []string{"stage"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taxico2_run_duration_seconds",
			Help:    "Wall time of engine runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
	var err error
	if r.skipped, err = register(reg, r.skipped); err != nil {
		return nil, err
	}
	if r.buckets, err = register(reg, r.buckets); err != nil {
		return nil, err
	}
	if r.extremes, err = register(reg, r.extremes); err != nil {
		return nil, err
	}
	if r.monthly, err = register(reg, r.monthly); err != nil {
		return nil, err
	}
	if r.records, err = register(reg, r.records); err != nil {
		return nil, err
	}
	if r.duration, err = register(reg, r.duration); err != nil {
		return nil, err
	}
	return r, nil
}

// register returns the already registered collector when an identical one
// exists, so several reporters can share the default registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// BucketComputed sets the bucket gauge for rollup buckets.
func (r *PromReporter) BucketComputed(ev coremetrics.BucketEvent) error {
	b := ev.Bucket
	if b.Granularity == aggregate.Daily {
		return nil
	}
	r.buckets.WithLabelValues(string(b.Category), string(b.Granularity), strconv.Itoa(b.ID)).Set(b.Value)
	return nil
}

// RecordSkipped increments the skip counter.
func (r *PromReporter) RecordSkipped(ev coremetrics.SkipEvent) error {
	r.skipped.WithLabelValues(string(ev.Category), ev.Reason).Inc()
	return nil
}

// RunCompleted publishes the run counts, extremes and monthly series.
func (r *PromReporter) RunCompleted(ev coremetrics.RunEvent) error {
	r.records.WithLabelValues("read").Set(float64(ev.Read))
	r.records.WithLabelValues("enriched").Set(float64(ev.Enriched))
	r.records.WithLabelValues("filtered").Set(float64(ev.Filtered))
	r.records.WithLabelValues("skipped").Set(float64(ev.Skipped))
	r.duration.Observe(ev.Duration.Seconds())

	r.extremes.Reset()
	for _, x := range ev.Extremes {
		r.extremes.WithLabelValues(string(x.Category), string(x.Granularity), string(x.Direction), x.Label).Set(x.Value)
	}
	for _, s := range ev.Series {
		for _, p := range s.Points {
			r.monthly.WithLabelValues(string(s.Category), p.Label).Set(p.TotalKg)
		}
	}
	return nil
}
