package engine

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/rowfan/rowfan/internal/distribute"
	"github.com/rowfan/rowfan/internal/feeder"
	"github.com/rowfan/rowfan/internal/metrics"
	"go.opentelemetry.io/otel/trace"
)

// SinkSpec describes one downstream consumer worker.
type SinkSpec struct {
	// ServiceTime is how long the sink works on each row after taking it.
	ServiceTime time.Duration
	// Stalled sinks never take rows, modeling a dead consumer.
	Stalled bool
}

// Options configure the Engine.
type Options struct {
	Strategy      distribute.Distributor // row distribution policy (required)
	Feeder        feeder.Feeder          // row source (required)
	Sinks         []SinkSpec             // downstream consumers (at least one)
	QueueCapacity int                    // capacity of each output rowset
	TotalRows     int                    // rows to distribute (0 means until exhaustion/duration)
	Duration      time.Duration          // overall time limit (0 means no cap)
	RatePerSecond int                    // rows per second pacing (0 means unpaced)

	Collector *metrics.Collector // optional per-call metrics sink
	Tracer    trace.Tracer       // optional; nil disables spans

	SinkPoll       time.Duration               // sink take-poll interval, for tests
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.QueueCapacity < 1 {
		o.QueueCapacity = 1
	}
	if o.TotalRows < 0 {
		o.TotalRows = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.SinkPoll <= 0 {
		o.SinkPoll = time.Millisecond
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
