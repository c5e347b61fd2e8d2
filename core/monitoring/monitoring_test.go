package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingMonitor struct {
	errs    []error
	tags    []map[string]string
	flushed time.Duration
}

func (r *recordingMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recordingMonitor) Recover()              {}
func (r *recordingMonitor) Flush(d time.Duration) { r.flushed = d }

func TestCaptureRun(t *testing.T) {
	rec := &recordingMonitor{}
	Init(rec)
	defer Init(nil)

	CaptureRun(errors.New("boom"), "run-1", "read")
	CaptureException(nil, nil)
	Flush(time.Second)

	assert.Len(t, rec.errs, 1)
	assert.Equal(t, map[string]string{"run_id": "run-1", "stage": "read"}, rec.tags[0])
	assert.Equal(t, time.Second, rec.flushed)
}

func TestInitNilResets(t *testing.T) {
	Init(nil)
	assert.IsType(t, NopMonitor{}, get())
	CaptureException(errors.New("ignored"), nil)
}
