package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	r := NewRegistry()
	c := r.Counter("test_total", "test counter")

	c.Inc()
	c.Inc()
	c.Add(3)
	assert.Equal(t, int64(5), c.Value())

	// Same name yields the same counter.
	assert.Same(t, c, r.Counter("test_total", "test counter"))
}

func TestGauge(t *testing.T) {
	r := NewRegistry()
	g := r.Gauge("test_gauge", "test gauge")

	g.Set(10)
	g.Inc()
	g.Dec()
	g.Add(2.5)
	assert.Equal(t, 12.5, g.Get())
}

func TestHistogramBuckets(t *testing.T) {
	r := NewRegistry()
	h := r.Histogram("test_seconds", "test histogram", []float64{0.1, 1, 10})

	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)
	h.Observe(50)
	assert.Equal(t, int64(4), h.Count())
}

func TestExportFormat(t *testing.T) {
	r := NewRegistry()
	r.Counter("jobs_total", "jobs processed").Add(7)
	r.Gauge("queue_depth", "queued jobs").Set(2)

	out := r.Export()
	assert.Contains(t, out, "# HELP jobs_total jobs processed")
	assert.Contains(t, out, "# TYPE jobs_total counter")
	assert.Contains(t, out, "jobs_total 7")
	assert.Contains(t, out, "queue_depth 2")

	// Runtime gauges are always present.
	assert.Contains(t, out, "go_goroutines")
}

func TestExportHistogram(t *testing.T) {
	r := NewRegistry()
	h := r.Histogram("latency_seconds", "request latency", []float64{1, 5})
	h.Observe(0.5)
	h.Observe(3)

	out := r.Export()
	require.True(t, strings.Contains(out, "latency_seconds_count 2"))
	assert.Contains(t, out, `latency_seconds_bucket{le="1"} 1`)
	assert.Contains(t, out, `latency_seconds_bucket{le="5"} 2`)
	assert.Contains(t, out, `latency_seconds_bucket{le="+Inf"} 2`)
}
