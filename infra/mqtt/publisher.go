package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/taxico2/core/extremal"
	"github.com/kilianp07/taxico2/core/factory"
	coremetrics "github.com/kilianp07/taxico2/core/metrics"
	"github.com/kilianp07/taxico2/core/model"
	"github.com/kilianp07/taxico2/core/monitoring"
	"github.com/kilianp07/taxico2/infra/logger"
)

// ReportPublisher is a Reporter publishing the results of each completed
// run as JSON:
//
//	<prefix>/runs/latest                 run counts
//	<prefix>/<category>/extremes         heaviest and lightest buckets
//	<prefix>/<category>/series           monthly totals
//
// Bucket and skip events are not published.
type ReportPublisher struct {
	cli     pahoClient
	prefix  string
	qos     byte
	retain  bool
	retries int
	backoff time.Duration
	logger  logger.Logger
}

// NewReportPublisher connects to the broker.
func NewReportPublisher(cfg Config) (*ReportPublisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected") }
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &ReportPublisher{
		cli:     c,
		prefix:  cfg.TopicPrefix,
		qos:     cfg.QoS,
		retain:  cfg.Retain,
		retries: *cfg.MaxRetries,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:  log,
	}, nil
}

func (p *ReportPublisher) BucketComputed(coremetrics.BucketEvent) error { return nil }
func (p *ReportPublisher) RecordSkipped(coremetrics.SkipEvent) error    { return nil }

// RunCompleted publishes the run summary, then extremes and series per category.
func (p *ReportPublisher) RunCompleted(ev coremetrics.RunEvent) error {
	summary := struct {
		RunID      string    `json:"run_id"`
		Read       int       `json:"read"`
		Enriched   int       `json:"enriched"`
		Filtered   int       `json:"filtered"`
		Skipped    int       `json:"skipped"`
		DurationMS int64     `json:"duration_ms"`
		Time       time.Time `json:"time"`
	}{ev.RunID, ev.Read, ev.Enriched, ev.Filtered, ev.Skipped, ev.Duration.Milliseconds(), ev.Time}
	if err := p.publishJSON(p.prefix+"/runs/latest", summary); err != nil {
		return err
	}

	byCat := map[model.Category][]extremal.Result{}
	for _, x := range ev.Extremes {
		byCat[x.Category] = append(byCat[x.Category], x)
	}
	for _, s := range ev.Series {
		extremes := byCat[s.Category]
		if extremes == nil {
			extremes = []extremal.Result{}
		}
		if err := p.publishJSON(fmt.Sprintf("%s/%s/extremes", p.prefix, s.Category), extremes); err != nil {
			return err
		}
		if err := p.publishJSON(fmt.Sprintf("%s/%s/series", p.prefix, s.Category), s.Points); err != nil {
			return err
		}
	}
	return nil
}

func (p *ReportPublisher) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %s", topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.retries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	monitoring.CaptureException(publishErr, map[string]string{"module": "mqtt", "topic": topic})
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Close disconnects from the broker.
func (p *ReportPublisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}

// init registers the publisher as the "mqtt" reporter.
func init() {
	_ = coremetrics.RegisterReporter("mqtt", func(conf map[string]any) (coremetrics.Reporter, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewReportPublisher(c)
	})
}
