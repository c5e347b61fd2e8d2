package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/taxico2/core/aggregate"
	coremetrics "github.com/kilianp07/taxico2/core/metrics"
	"github.com/kilianp07/taxico2/infra/logger"
)

// maxPending bounds the points buffered between two writes.
const maxPending = 5000

// InfluxReporter writes run events to an InfluxDB instance using the official
// client. Bucket and skip points are buffered and written together with the
// run summary, so a run costs one request per maxPending points.
type InfluxReporter struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger

	mu      sync.Mutex
	pending []*write.Point
}

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// NewInfluxReporter creates a reporter configured for the given InfluxDB endpoint.
func NewInfluxReporter(cfg InfluxConfig) *InfluxReporter {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxReporter{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-reporter"),
	}
}

// NewInfluxReporterWithFallback pings the InfluxDB instance and returns a
// NopReporter if the health check fails.
func NewInfluxReporterWithFallback(cfg InfluxConfig) coremetrics.Reporter {
	rep := NewInfluxReporter(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := rep.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			rep.log.Errorf("influx health check error: %v", err)
		} else {
			rep.log.Errorf("influx health status: %s", health.Status)
		}
		rep.client.Close()
		return coremetrics.NopReporter{}
	}
	return rep
}

// BucketComputed buffers one co2_bucket point. Daily buckets carry their date
// as timestamp; rollup buckets are stamped by the server.
func (r *InfluxReporter) BucketComputed(ev coremetrics.BucketEvent) error {
	b := ev.Bucket
	p := write.NewPointWithMeasurement("co2_bucket").
		AddTag("category", string(b.Category)).
		AddTag("granularity", string(b.Granularity)).
		AddTag("bucket_id", strconv.Itoa(b.ID)).
		AddTag("run_id", ev.RunID).
		AddField("co2_kg", round3(b.Value)).
		AddField("periods", b.Periods)
	if b.Granularity == aggregate.Daily && !ev.Date.IsZero() {
		p = p.SetTime(ev.Date.Time())
	}
	return r.add(p)
}

// RecordSkipped buffers a record_skipped point.
func (r *InfluxReporter) RecordSkipped(ev coremetrics.SkipEvent) error {
	p := write.NewPointWithMeasurement("record_skipped").
		AddTag("category", string(ev.Category)).
		AddTag("reason", ev.Reason).
		AddTag("run_id", ev.RunID).
		AddField("row", ev.Row)
	return r.add(p)
}

// add buffers p and writes the buffer once it reaches maxPending points.
func (r *InfluxReporter) add(p *write.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, p)
	if len(r.pending) < maxPending {
		return nil
	}
	return r.flushLocked()
}

// flushLocked writes and clears the buffer. Points of a failed write are
// dropped. r.mu must be held.
func (r *InfluxReporter) flushLocked(extra ...*write.Point) error {
	points := append(r.pending, extra...)
	r.pending = nil
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.writeAPI.WritePoint(ctx, points...); err != nil {
		r.log.Errorf("influx write of %d points failed: %v", len(points), err)
		return err
	}
	return nil
}

// RunCompleted writes the buffered points, the run summary and one point per
// extremal result in a single request.
func (r *InfluxReporter) RunCompleted(ev coremetrics.RunEvent) error {
	points := []*write.Point{
		write.NewPointWithMeasurement("run_completed").
			AddTag("run_id", ev.RunID).
			AddField("read", ev.Read).
			AddField("enriched", ev.Enriched).
			AddField("filtered", ev.Filtered).
			AddField("skipped", ev.Skipped).
			AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
			SetTime(ev.Time),
	}
	for _, x := range ev.Extremes {
		points = append(points, write.NewPointWithMeasurement("co2_extreme").
			AddTag("run_id", ev.RunID).
			AddTag("category", string(x.Category)).
			AddTag("granularity", string(x.Granularity)).
			AddTag("direction", string(x.Direction)).
			AddField("bucket_id", x.BucketID).
			AddField("label", x.Label).
			AddField("co2_kg", round3(x.Value)).
			SetTime(ev.Time))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked(points...)
}

// Close writes any buffered points and releases the HTTP client.
func (r *InfluxReporter) Close() error {
	r.mu.Lock()
	err := r.flushLocked()
	r.mu.Unlock()
	r.client.Close()
	return err
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
