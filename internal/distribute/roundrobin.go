package distribute

import (
	"github.com/rowfan/rowfan/internal/row"
)

// CodeRoundRobin identifies the round-robin strategy.
const CodeRoundRobin = "round-robin"

func init() {
	Register(CodeRoundRobin, func(t Tuning) Distributor { return NewRoundRobin(t) })
}

// RoundRobin is the classic rotation baseline: the row goes to the output at
// the cursor, waiting out backpressure on that one rowset, and the cursor
// advances only after a successful placement. A slow consumer therefore
// stalls the producer even when its siblings sit idle, which is exactly the
// behavior SingleQueue exists to avoid.
type RoundRobin struct {
	tuning Tuning
}

// NewRoundRobin builds the strategy with the given timing constants.
func NewRoundRobin(t Tuning) *RoundRobin {
	t.normalize()
	return &RoundRobin{tuning: t}
}

func (d *RoundRobin) Code() string { return CodeRoundRobin }

func (d *RoundRobin) Description() string {
	return "Rotates outputs in fixed order, waiting on each in turn."
}

func (d *RoundRobin) Image() Image { return ImageRoundRobin }

// DistributeRow puts the row into the output at the current cursor, retrying
// with bounded waits until it fits or the step is stopped. Placement counts
// as delivery; no consumption check is made.
func (d *RoundRobin) DistributeRow(step Step, r *row.Row) (Outcome, error) {
	outs := step.OutputRowSets()
	if len(outs) == 0 {
		return Outcome{Sink: -1}, ErrNoOutputs
	}

	out := Outcome{Sink: -1}
	cursor := step.CurrentOutputIndex()
	rs := outs[cursor]

	for !step.IsStopped() {
		out.Probes++

		added, err := rs.TryPut(r, d.tuning.SettleDelay)
		if err != nil {
			return out, err
		}
		if added {
			step.SetCurrentOutputIndex((cursor + 1) % len(outs))
			out.Delivered = true
			out.Sink = cursor
			return out, nil
		}
	}

	return out, nil
}
