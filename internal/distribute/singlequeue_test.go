package distribute_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rowfan/rowfan/internal/distribute"
	"github.com/rowfan/rowfan/internal/row"
	"github.com/rowfan/rowfan/internal/rowset"
	"github.com/rowfan/rowfan/internal/step"
)

// fastTuning keeps the probing loop quick enough for unit tests while
// preserving the effectively-non-blocking probe semantics.
var fastTuning = distribute.Tuning{
	ProbeTimeout: time.Nanosecond,
	SettleDelay:  2 * time.Millisecond,
}

func makeRow(t *testing.T) *row.Row {
	t.Helper()
	r, err := row.New(row.NewMeta("id", "payload"), []any{1, "x"})
	if err != nil {
		t.Fatalf("make row: %v", err)
	}
	return r
}

func newSession(n, capacity int) (*step.Session, []*rowset.RowSet) {
	outs := make([]*rowset.RowSet, n)
	for i := range outs {
		outs[i] = rowset.New(capacity)
	}
	return step.NewSession(outs), outs
}

// drain runs a consumer that constantly polls rs until stop is closed.
func drain(rs *rowset.RowSet, stop <-chan struct{}) {
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := rs.TryTake(500 * time.Microsecond); err != nil {
				return
			}
		}
	}()
}

func TestSingleQueueStoppedBeforeFirstProbe(t *testing.T) {
	sess, outs := newSession(3, 4)
	sess.SetCurrentOutputIndex(1)
	sess.Stop()

	d := distribute.NewSingleQueue(fastTuning)
	out, err := d.DistributeRow(sess, makeRow(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Delivered || out.Probes != 0 || out.Sink != -1 {
		t.Fatalf("expected no-op outcome, got %+v", out)
	}
	if got := sess.CurrentOutputIndex(); got != 1 {
		t.Fatalf("cursor moved on stopped call: %d", got)
	}
	for i, rs := range outs {
		if rs.Len() != 0 {
			t.Fatalf("rowset %d mutated on stopped call", i)
		}
	}
}

func TestSingleQueueDeliversToReadyConsumer(t *testing.T) {
	sess, outs := newSession(1, 1)
	stop := make(chan struct{})
	defer close(stop)
	drain(outs[0], stop)

	d := distribute.NewSingleQueue(fastTuning)
	out, err := d.DistributeRow(sess, makeRow(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Delivered || out.Sink != 0 {
		t.Fatalf("expected delivery via sink 0, got %+v", out)
	}
	if out.Probes < 1 {
		t.Fatalf("delivery with zero probes: %+v", out)
	}
}

func TestSingleQueueCursorEqualsStartPlusProbes(t *testing.T) {
	sess, outs := newSession(3, 1)
	stop := make(chan struct{})
	defer close(stop)
	for _, rs := range outs {
		drain(rs, stop)
	}

	d := distribute.NewSingleQueue(fastTuning)
	for i := 0; i < 5; i++ {
		before := sess.CurrentOutputIndex()
		out, err := d.DistributeRow(sess, makeRow(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !out.Delivered {
			t.Fatalf("call %d not delivered: %+v", i, out)
		}
		want := (before + out.Probes) % 3
		if got := sess.CurrentOutputIndex(); got != want {
			t.Fatalf("call %d: cursor %d, want (%d+%d)%%3=%d", i, got, before, out.Probes, want)
		}
	}
}

// A successful first probe still leaves the cursor advanced by one for the
// next call.
func TestSingleQueueAdvancesCursorOnFirstProbeSuccess(t *testing.T) {
	sess, outs := newSession(4, 1)
	stop := make(chan struct{})
	defer close(stop)
	drain(outs[0], stop)

	d := distribute.NewSingleQueue(fastTuning)
	out, err := d.DistributeRow(sess, makeRow(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Delivered || out.Probes != 1 || out.Sink != 0 {
		t.Fatalf("expected first-probe delivery via sink 0, got %+v", out)
	}
	if got := sess.CurrentOutputIndex(); got != 1 {
		t.Fatalf("cursor after first-probe success = %d, want 1", got)
	}
}

func TestSingleQueueOnlyCreditsDrainingSink(t *testing.T) {
	sess, outs := newSession(3, 1)
	stop := make(chan struct{})
	defer close(stop)
	drain(outs[2], stop)

	d := distribute.NewSingleQueue(fastTuning)
	for i := 0; i < 6; i++ {
		out, err := d.DistributeRow(sess, makeRow(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !out.Delivered {
			t.Fatalf("call %d not delivered: %+v", i, out)
		}
		if out.Sink != 2 {
			t.Fatalf("call %d credited sink %d, want 2", i, out.Sink)
		}
	}
	if outs[0].Len() != 0 || outs[1].Len() != 0 {
		t.Fatalf("stalled rowsets retained rows: %d %d", outs[0].Len(), outs[1].Len())
	}
}

func TestSingleQueueStopEndsBusyLoop(t *testing.T) {
	sess, _ := newSession(1, 1)

	d := distribute.NewSingleQueue(fastTuning)
	done := make(chan distribute.Outcome, 1)
	go func() {
		out, err := d.DistributeRow(sess, makeRow(t))
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- out
	}()

	time.Sleep(20 * time.Millisecond)
	sess.Stop()

	select {
	case out := <-done:
		if out.Delivered {
			t.Fatalf("delivered with no consumer: %+v", out)
		}
		if out.Probes < 1 {
			t.Fatalf("expected at least one probe before stop, got %+v", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("distribute did not observe stop flag")
	}
}

// The two-sink scenario: sink 0 drains promptly, sink 1 never drains.
// First call delivers via sink 0 and leaves the cursor at 1; the second
// call probes sink 1, fails, wraps to sink 0, succeeds, and leaves the
// cursor at 1 again.
func TestSingleQueueTwoSinkRotation(t *testing.T) {
	tuning := distribute.Tuning{
		ProbeTimeout: time.Nanosecond,
		SettleDelay:  10 * time.Millisecond,
	}
	sess, outs := newSession(2, 1)
	stop := make(chan struct{})
	defer close(stop)
	drain(outs[0], stop)

	d := distribute.NewSingleQueue(tuning)

	first, err := d.DistributeRow(sess, makeRow(t))
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if !first.Delivered || first.Sink != 0 || first.Probes != 1 {
		t.Fatalf("first call outcome %+v, want first-probe delivery via sink 0", first)
	}
	if got := sess.CurrentOutputIndex(); got != 1 {
		t.Fatalf("cursor after first call = %d, want 1", got)
	}

	second, err := d.DistributeRow(sess, makeRow(t))
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !second.Delivered || second.Sink != 0 || second.Probes != 2 {
		t.Fatalf("second call outcome %+v, want second-probe delivery via sink 0", second)
	}
	if got := sess.CurrentOutputIndex(); got != 1 {
		t.Fatalf("cursor after second call = %d, want 1", got)
	}
}

// scriptedStep stops itself after a fixed number of stop-flag polls, which
// pins down what a single probe iteration does.
type scriptedStep struct {
	outs      []*rowset.RowSet
	cursor    int
	polls     int
	stopAfter int
}

func (s *scriptedStep) IsStopped() bool {
	s.polls++
	return s.polls > s.stopAfter
}

func (s *scriptedStep) OutputRowSets() []*rowset.RowSet { return s.outs }
func (s *scriptedStep) CurrentOutputIndex() int         { return s.cursor }
func (s *scriptedStep) SetCurrentOutputIndex(i int)     { s.cursor = i }

// A row already sitting in the rowset masks delivery: the consumption check
// finds the older row, the probe is deemed not delivered, and the older row
// (not the new one) is what the check pulled out. The new row stays queued.
// This is the accepted ambiguity of the place-then-check design.
func TestSingleQueuePrequeuedRowMasksDelivery(t *testing.T) {
	rs := rowset.New(2)
	stale := makeRow(t)
	if ok, err := rs.TryPut(stale, 0); err != nil || !ok {
		t.Fatalf("seed stale row: ok=%v err=%v", ok, err)
	}

	st := &scriptedStep{outs: []*rowset.RowSet{rs}, stopAfter: 1}
	d := distribute.NewSingleQueue(fastTuning)

	fresh := makeRow(t)
	out, err := d.DistributeRow(st, fresh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Delivered || out.Probes != 1 {
		t.Fatalf("expected one non-delivered probe, got %+v", out)
	}

	left, err := rs.TryTake(0)
	if err != nil {
		t.Fatalf("inspect rowset: %v", err)
	}
	if left == nil || left.ID != fresh.ID {
		t.Fatalf("expected the fresh row left queued, got %v", left)
	}
	if rs.Len() != 0 {
		t.Fatalf("extra rows left queued: %d", rs.Len())
	}
}

func TestSingleQueueAbortPropagates(t *testing.T) {
	sess, outs := newSession(1, 1)
	outs[0].Abort()

	d := distribute.NewSingleQueue(fastTuning)
	out, err := d.DistributeRow(sess, makeRow(t))
	if !errors.Is(err, rowset.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if out.Delivered {
		t.Fatalf("delivered through aborted rowset: %+v", out)
	}
}

func TestSingleQueueNoOutputs(t *testing.T) {
	sess := step.NewSession(nil)
	d := distribute.NewSingleQueue(fastTuning)
	if _, err := d.DistributeRow(sess, makeRow(t)); !errors.Is(err, distribute.ErrNoOutputs) {
		t.Fatalf("expected ErrNoOutputs, got %v", err)
	}
}

func TestSingleQueueMetadata(t *testing.T) {
	d := distribute.NewSingleQueue(distribute.Tuning{})
	if d.Code() != distribute.CodeSingleQueue {
		t.Fatalf("code = %q", d.Code())
	}
	if d.Description() == "" {
		t.Fatal("empty description")
	}
	if d.Image() != distribute.ImageLoadBalance {
		t.Fatalf("image = %q", d.Image())
	}
}
