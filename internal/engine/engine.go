// Package engine wires a row source, a distribution strategy, and a set of
// sink workers into one runnable session. It exists to exercise and measure
// distribution strategies, not to schedule general pipelines.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/rowfan/rowfan/internal/feeder"
	"github.com/rowfan/rowfan/internal/rowset"
	"github.com/rowfan/rowfan/internal/step"
	"github.com/rowfan/rowfan/internal/tracing"
)

// Result captures one run's totals.
type Result struct {
	Offered     int64         // rows pulled from the feeder
	Delivered   int64         // rows confirmed handed to a consumer
	Undelivered int64         // rows the strategy gave up on (stop observed)
	Consumed    []int64       // rows actually worked by each sink
	Duration    time.Duration // wall-clock run time
}

// Engine runs one distribution session: a single producer goroutine calling
// the strategy once per row, and one worker goroutine per sink draining its
// own rowset.
type Engine struct {
	opt     Options
	session *step.Session
	outputs []*rowset.RowSet
}

// New builds an engine and its session. The rowset per sink is created here
// and owned by the session.
func New(opt Options) (*Engine, error) {
	opt.normalize()
	if opt.Strategy == nil {
		return nil, errors.New("engine: strategy is required")
	}
	if opt.Feeder == nil {
		return nil, errors.New("engine: feeder is required")
	}
	if len(opt.Sinks) == 0 {
		return nil, errors.New("engine: at least one sink is required")
	}

	outputs := make([]*rowset.RowSet, len(opt.Sinks))
	for i := range outputs {
		outputs[i] = rowset.New(opt.QueueCapacity)
	}

	return &Engine{
		opt:     opt,
		session: step.NewSession(outputs),
		outputs: outputs,
	}, nil
}

// Session exposes the underlying step session for diagnostics.
func (e *Engine) Session() *step.Session {
	return e.session
}

// Run distributes rows until the feeder is exhausted, the row or time limit
// is reached, or ctx is canceled. Cancellation is translated into the
// session stop flag, which the strategy observes cooperatively.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if e.opt.Duration > 0 {
		deadlineCtx, deadlineCancel := context.WithTimeout(ctx, e.opt.Duration)
		ctx = deadlineCtx
		defer deadlineCancel()
	}

	// Translate context cancellation into the cooperative stop flag the
	// distribution loop polls.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.session.Stop()
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	consumed := make([]int64, len(e.opt.Sinks))
	var wg sync.WaitGroup
	wg.Add(len(e.opt.Sinks))
	for i, spec := range e.opt.Sinks {
		go func(i int, spec SinkSpec) {
			defer wg.Done()
			e.runSink(i, spec, consumed)
		}(i, spec)
	}

	res, runErr := e.produce(ctx)

	// Normal end of input: queued rows stay takeable so sinks can drain.
	e.session.Finish()
	wg.Wait()

	res.Consumed = consumed
	res.Duration = time.Since(start)
	return res, runErr
}

func (e *Engine) produce(ctx context.Context) (Result, error) {
	var res Result
	limiter := e.opt.LimiterFactory(e.opt.RatePerSecond)

	for e.opt.TotalRows == 0 || res.Offered < int64(e.opt.TotalRows) {
		if e.session.IsStopped() {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		r, err := e.opt.Feeder.Next(ctx)
		if errors.Is(err, feeder.ErrExhausted) {
			break
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("feeder: %w", err)
		}

		res.Offered++

		var span trace.Span
		if e.opt.Tracer != nil {
			_, span = tracing.StartDistributeSpan(ctx, e.opt.Tracer, e.opt.Strategy.Code())
		}

		callStart := time.Now()
		out, derr := e.opt.Strategy.DistributeRow(e.session, r)
		latency := time.Since(callStart)

		if e.opt.Collector != nil {
			e.opt.Collector.RecordDistribute(latency, out.Probes, out.Delivered, out.Sink)
		}
		if span != nil {
			tracing.EndDistributeSpan(span, out.Delivered, out.Probes, out.Sink, derr)
		}

		if derr != nil {
			e.session.Stop()
			res.Undelivered++
			return res, fmt.Errorf("distribute row %s: %w", r.ID, derr)
		}
		if out.Delivered {
			res.Delivered++
		} else {
			res.Undelivered++
		}
	}

	return res, nil
}

// runSink drains one rowset. A stalled sink never takes rows and exits once
// the session stops or input ends; rows it strands stay queued.
func (e *Engine) runSink(i int, spec SinkSpec, consumed []int64) {
	rs := e.outputs[i]

	if spec.Stalled {
		for !e.session.IsStopped() && !rs.Finished() {
			time.Sleep(e.opt.SinkPoll)
		}
		return
	}

	for {
		r, err := rs.TryTake(e.opt.SinkPoll)
		if err != nil {
			return
		}
		if r != nil {
			if spec.ServiceTime > 0 {
				time.Sleep(spec.ServiceTime)
			}
			consumed[i]++
			continue
		}
		if rs.Finished() && rs.Len() == 0 {
			return
		}
		if e.session.IsStopped() {
			return
		}
	}
}
