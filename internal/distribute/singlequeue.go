package distribute

import (
	"time"

	"github.com/rowfan/rowfan/internal/row"
)

// CodeSingleQueue identifies the single-queue strategy.
const CodeSingleQueue = "single-queue"

func init() {
	Register(CodeSingleQueue, func(t Tuning) Distributor { return NewSingleQueue(t) })
}

// SingleQueue mimics concurrent processing from a single shared work queue
// using only the per-link bounded rowsets: a row is handed only to a
// consumer that is actively ready to take it.
//
// Each probe places the row with an effectively non-blocking put, pauses for
// the settle delay so the consumer can pick it up, then polls the same
// rowset back. Anything takeable means the attempt did not stick, and the
// next output is tried. The check cannot tell the just-placed row from an
// older one still queued, so a probe against a non-empty rowset is counted
// as not delivered even if a racing consumer took the new row during the
// settle window. That ambiguity is inherited deliberately and must not be
// strengthened.
type SingleQueue struct {
	tuning Tuning
}

// NewSingleQueue builds the strategy with the given timing constants.
func NewSingleQueue(t Tuning) *SingleQueue {
	t.normalize()
	return &SingleQueue{tuning: t}
}

func (d *SingleQueue) Code() string { return CodeSingleQueue }

func (d *SingleQueue) Description() string {
	return "Mimics concurrent processing from a single queue."
}

func (d *SingleQueue) Image() Image { return ImageLoadBalance }

// DistributeRow probes the step's outputs starting at the current cursor
// until the row is taken up or the step is stopped. The cursor advances by
// exactly one position per probe, success or not, so a delivery on the first
// probe still leaves the cursor moved for the next call.
func (d *SingleQueue) DistributeRow(step Step, r *row.Row) (Outcome, error) {
	outs := step.OutputRowSets()
	if len(outs) == 0 {
		return Outcome{Sink: -1}, ErrNoOutputs
	}

	out := Outcome{Sink: -1}
	cursor := step.CurrentOutputIndex()
	rs := outs[cursor]

	for !step.IsStopped() {
		out.Probes++

		added, err := rs.TryPut(r, d.tuning.ProbeTimeout)
		if err != nil {
			return out, err
		}

		// Give the consumer a moment to take the row off the queue.
		time.Sleep(d.tuning.SettleDelay)

		taken, err := rs.TryTake(d.tuning.ProbeTimeout)
		if err != nil {
			return out, err
		}
		if taken != nil {
			// Something was still retrievable, so the row was not
			// picked up by a worker.
			added = false
		}

		probed := cursor
		cursor = (cursor + 1) % len(outs)
		step.SetCurrentOutputIndex(cursor)

		if added {
			out.Delivered = true
			out.Sink = probed
			return out, nil
		}

		rs = outs[cursor]
	}

	return out, nil
}
