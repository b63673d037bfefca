// Package metrics records per-row distribution measurements and produces
// aggregated run statistics.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records per-call distribution metrics in a thread-safe manner.
type Collector struct {
	mu          sync.Mutex
	latency     *hdrhistogram.Histogram
	probes      *hdrhistogram.Histogram
	delivered   int64
	undelivered int64
	perSink     []int64
	minLatency  time.Duration
	maxLatency  time.Duration
	sumLatency  time.Duration
	start       time.Time
}

// Stats represents aggregated metrics for one run.
type Stats struct {
	Offered     int64 `json:"offered"`
	Delivered   int64 `json:"delivered"`
	Undelivered int64 `json:"undelivered"`

	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P90Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`
	Duration    time.Duration `json:"-"`
	RowsPerSec  float64       `json:"rows_per_sec"`

	MeanProbes float64 `json:"mean_probes"`
	P50Probes  int64   `json:"p50_probes"`
	P99Probes  int64   `json:"p99_probes"`
	MaxProbes  int64   `json:"max_probes"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	// PerSink holds delivered-row counts indexed by output position.
	PerSink []int64 `json:"per_sink"`
}

// NewCollector creates a collector for a run with the given sink count.
func NewCollector(sinks int) *Collector {
	if sinks < 0 {
		sinks = 0
	}
	return &Collector{
		// Track distribute-call latencies from 1µs up to 60s with 3
		// significant figures.
		latency: hdrhistogram.New(1, 60_000_000, 3),
		// Probe counts per call, up to a million retries.
		probes:  hdrhistogram.New(1, 1_000_000, 3),
		perSink: make([]int64, sinks),
		start:   time.Now(),
	}
}

// Start marks the beginning of the measured run.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// RecordDistribute records one distribution call: its wall-clock latency,
// probe count, and the sink credited with the row (-1 when undelivered).
func (c *Collector) RecordDistribute(latency time.Duration, probes int, delivered bool, sink int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.latency.LowestTrackableValue() {
			us = c.latency.LowestTrackableValue()
		}
		if us > c.latency.HighestTrackableValue() {
			us = c.latency.HighestTrackableValue()
		}
		_ = c.latency.RecordValue(us)
	}
	c.sumLatency += latency

	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if probes > 0 {
		n := int64(probes)
		if n > c.probes.HighestTrackableValue() {
			n = c.probes.HighestTrackableValue()
		}
		_ = c.probes.RecordValue(n)
	}

	if delivered {
		c.delivered++
		if sink >= 0 && sink < len(c.perSink) {
			c.perSink[sink]++
		}
	} else {
		c.undelivered++
	}
}

// Stats aggregates everything recorded so far over the given elapsed time.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.delivered + c.undelivered
	s := Stats{
		Offered:     total,
		Delivered:   c.delivered,
		Undelivered: c.undelivered,
		MinLatency:  c.minLatency,
		MaxLatency:  c.maxLatency,
		Duration:    elapsed,
		PerSink:     append([]int64(nil), c.perSink...),
	}

	if total > 0 {
		s.MeanLatency = c.sumLatency / time.Duration(total)
	}
	if c.latency.TotalCount() > 0 {
		s.P50Latency = time.Duration(c.latency.ValueAtQuantile(50)) * time.Microsecond
		s.P90Latency = time.Duration(c.latency.ValueAtQuantile(90)) * time.Microsecond
		s.P99Latency = time.Duration(c.latency.ValueAtQuantile(99)) * time.Microsecond
	}
	if c.probes.TotalCount() > 0 {
		s.MeanProbes = c.probes.Mean()
		s.P50Probes = c.probes.ValueAtQuantile(50)
		s.P99Probes = c.probes.ValueAtQuantile(99)
		s.MaxProbes = c.probes.Max()
	}
	if elapsed > 0 {
		s.RowsPerSec = float64(s.Delivered) / elapsed.Seconds()
	}

	s.MinLatencyMs = durationToMs(s.MinLatency)
	s.MaxLatencyMs = durationToMs(s.MaxLatency)
	s.MeanLatencyMs = durationToMs(s.MeanLatency)
	s.P50LatencyMs = durationToMs(s.P50Latency)
	s.P90LatencyMs = durationToMs(s.P90Latency)
	s.P99LatencyMs = durationToMs(s.P99Latency)
	s.DurationMs = durationToMs(s.Duration)

	return s
}

// Elapsed returns the time since the measured run began.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

func durationToMs(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
