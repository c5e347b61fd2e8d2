package metrics

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/factory"
	coremetrics "github.com/kilianp07/taxico2/core/metrics"
	"github.com/kilianp07/taxico2/core/model"
	"github.com/kilianp07/taxico2/infra/logger"
)

func TestBuiltinReporters(t *testing.T) {
	assert.Subset(t, coremetrics.ReporterTypes(), []string{"nop", "log", "prometheus", "influx"})
}

func TestNewReporter_FromYAML(t *testing.T) {
	doc := []byte(`
reporters:
  - type: nop
  - type: log
    conf:
      component: audit
`)
	var cfg struct {
		Reporters []factory.ModuleConfig `yaml:"reporters"`
	}
	require.NoError(t, yaml.Unmarshal(doc, &cfg))
	require.Len(t, cfg.Reporters, 2)

	rep, err := coremetrics.NewReporter(cfg.Reporters)
	require.NoError(t, err)
	multi, ok := rep.(*coremetrics.MultiReporter)
	require.True(t, ok)
	require.Len(t, multi.Reporters, 2)
	assert.IsType(t, &LogReporter{}, multi.Reporters[1])

	_, err = coremetrics.NewReporter([]factory.ModuleConfig{{Type: "statsd"}})
	assert.Error(t, err)

	single, err := coremetrics.NewReporter([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopReporter{}, single)
}

func TestLogReporter(t *testing.T) {
	t.Setenv("APP_ENV", "")
	var buf bytes.Buffer
	r := NewLogReporter(logger.NewZerologLogger("reporter", &buf))
	require.NoError(t, r.BucketComputed(coremetrics.BucketEvent{RunID: "r1", Bucket: aggregate.Bucket{Category: model.CategoryYellow, Granularity: aggregate.Month, Label: "Jan"}}))
	require.NoError(t, r.RecordSkipped(coremetrics.SkipEvent{RunID: "r1", Row: 4, Reason: "invalid_timestamp", Err: errors.New("bad")}))
	require.NoError(t, r.RunCompleted(coremetrics.RunEvent{RunID: "r1", Read: 4}))
	out := buf.String()
	assert.Contains(t, out, "bucket computed")
	assert.Contains(t, out, "invalid_timestamp")
	assert.Contains(t, out, "run completed")
}
