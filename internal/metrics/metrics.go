// Package metrics provides a small Prometheus-text-format metrics
// registry for the simulator.
package metrics

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry holds all application metrics.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	histos   map[string]*Histogram

	startTime time.Time
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]*Counter),
		gauges:    make(map[string]*Gauge),
		histos:    make(map[string]*Histogram),
		startTime: time.Now(),
	}
}

// Counter returns or creates a counter metric.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{name: name, help: help}
	r.counters[name] = c
	return c
}

// Gauge returns or creates a gauge metric.
func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := &Gauge{name: name, help: help}
	r.gauges[name] = g
	return g
}

// Histogram returns or creates a histogram metric.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.histos[name]; ok {
		return h
	}
	h := NewHistogram(name, help, buckets)
	r.histos[name] = h
	return h
}

// Export returns all metrics in Prometheus text format, including a few
// runtime gauges.
func (r *Registry) Export() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	writeGauge(&b, "go_memstats_alloc_bytes", "Number of bytes allocated and still in use.", float64(memStats.Alloc))
	writeGauge(&b, "go_goroutines", "Number of goroutines.", float64(runtime.NumGoroutine()))
	writeGauge(&b, "process_uptime_seconds", "Time since process start.", time.Since(r.startTime).Seconds())

	for _, c := range r.counters {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", c.name, c.help, c.name, c.name, c.value.Load())
	}
	for _, g := range r.gauges {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n%s %f\n", g.name, g.help, g.name, g.name, g.Get())
	}
	for _, h := range r.histos {
		h.export(&b)
	}

	return b.String()
}

func writeGauge(b *strings.Builder, name, help string, v float64) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s gauge\n%s %f\n", name, help, name, name, v)
}

// ---------------------------------------------------------------------------
// Counter
// ---------------------------------------------------------------------------

// Counter is a monotonically increasing metric.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add adds the given value to the counter.
func (c *Counter) Add(v int64) {
	c.value.Add(v)
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	return c.value.Load()
}

// ---------------------------------------------------------------------------
// Gauge
// ---------------------------------------------------------------------------

// Gauge is a metric that can go up and down.
type Gauge struct {
	name string
	help string
	bits atomic.Uint64
}

// Set sets the gauge to the given value.
func (g *Gauge) Set(v float64) {
	g.bits.Store(math.Float64bits(v))
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	g.Add(1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	g.Add(-1)
}

// Add adds the given value to the gauge.
func (g *Gauge) Add(v float64) {
	for {
		old := g.bits.Load()
		newVal := math.Float64frombits(old) + v
		if g.bits.CompareAndSwap(old, math.Float64bits(newVal)) {
			return
		}
	}
}

// Get returns the current gauge value.
func (g *Gauge) Get() float64 {
	return math.Float64frombits(g.bits.Load())
}

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// Histogram tracks value distributions.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	counts  []atomic.Int64
	sum     atomic.Int64
	count   atomic.Int64
}

// NewHistogram creates a histogram with the given buckets.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	return &Histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]atomic.Int64, len(buckets)),
	}
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i].Add(1)
		}
	}
	h.sum.Add(int64(v * 1e6)) // Microsecond precision
	h.count.Add(1)
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	return h.count.Load()
}

func (h *Histogram) export(b *strings.Builder) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)
	for i, bound := range h.buckets {
		fmt.Fprintf(b, "%s_bucket{le=%q} %d\n", h.name, fmt.Sprintf("%g", bound), h.counts[i].Load())
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.count.Load())
	fmt.Fprintf(b, "%s_sum %f\n", h.name, float64(h.sum.Load())/1e6)
	fmt.Fprintf(b, "%s_count %d\n", h.name, h.count.Load())
}

// ---------------------------------------------------------------------------
// Default Registry & Application Metrics
// ---------------------------------------------------------------------------

var defaultRegistry = NewRegistry()

// Default returns the default metrics registry.
func Default() *Registry {
	return defaultRegistry
}

var (
	// Simulation metrics
	SimulationsTotal = defaultRegistry.Counter("flightsim_simulations_total", "Total number of simulation invocations")
	SimulationErrors = defaultRegistry.Counter("flightsim_simulation_errors_total", "Total number of failed simulation invocations")
	RunsTotal        = defaultRegistry.Counter("flightsim_runs_total", "Total number of simulation runs executed")
	RunFailures      = defaultRegistry.Counter("flightsim_run_failures_total", "Total number of failed simulation runs")
	LegsSimulated    = defaultRegistry.Counter("flightsim_legs_simulated_total", "Total number of legs propagated across all runs")
	RunsInFlight     = defaultRegistry.Gauge("flightsim_runs_in_flight", "Simulation runs currently executing")
	RunDuration      = defaultRegistry.Histogram("flightsim_run_duration_seconds", "Duration of a single simulation run", []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5})

	// HTTP metrics
	HTTPRequests = defaultRegistry.Counter("flightsim_http_requests_total", "Total HTTP requests")
	HTTPLatency  = defaultRegistry.Histogram("flightsim_http_latency_seconds", "HTTP request latency", []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5})
)
