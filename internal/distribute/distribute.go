// Package distribute implements row distribution strategies: policies that
// decide which of a producing step's output rowsets receives the next row.
package distribute

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rowfan/rowfan/internal/row"
	"github.com/rowfan/rowfan/internal/rowset"
)

// ErrNoOutputs is returned when a step exposes an empty output rowset list.
var ErrNoOutputs = errors.New("distribute: step has no output rowsets")

// Image is a presentation-only category tag for a strategy. It has no
// behavioral effect.
type Image string

const (
	// ImageLoadBalance tags strategies that spread rows by consumer readiness.
	ImageLoadBalance Image = "load-balance"
	// ImageRoundRobin tags strategies that rotate outputs without regard
	// to readiness.
	ImageRoundRobin Image = "round-robin"
)

// Step is the view of the producing step a distributor consumes: the stop
// flag, the ordered output rowsets, and the shared output cursor. The cursor
// is mutated only by the distributor during a call; concurrent callers
// sharing one step require external synchronization.
type Step interface {
	IsStopped() bool
	OutputRowSets() []*rowset.RowSet
	CurrentOutputIndex() int
	SetCurrentOutputIndex(int)
}

// Outcome reports what a single distribution call did with its row.
type Outcome struct {
	// Delivered is true when the row was handed off to a consumer.
	Delivered bool
	// Probes is the number of placement attempts made, one per cursor
	// advance. At least 1 unless the step was stopped before the first probe.
	Probes int
	// Sink is the output index that absorbed the row, or -1.
	Sink int
}

// Distributor places one row per call into one of a step's output rowsets.
//
// DistributeRow blocks until the row is handed off or the step's stop flag
// is observed; a stopped call returns a non-delivered outcome and no error.
// Errors are reserved for fatal rowset transport failures and propagate
// immediately.
type Distributor interface {
	Code() string
	Description() string
	Image() Image
	DistributeRow(step Step, r *row.Row) (Outcome, error)
}

// Tuning holds the timing constants shared by strategies. Zero values are
// replaced with defaults by normalize.
type Tuning struct {
	// ProbeTimeout bounds each put/take probe. The default is 1ns:
	// effectively non-blocking, honored best-effort by the rowset.
	ProbeTimeout time.Duration
	// SettleDelay is the pause between placing a row and checking whether
	// a consumer picked it up.
	SettleDelay time.Duration
}

// DefaultProbeTimeout and DefaultSettleDelay are the stock probe timings.
const (
	DefaultProbeTimeout = time.Nanosecond
	DefaultSettleDelay  = 10 * time.Millisecond
)

func (t *Tuning) normalize() {
	if t.ProbeTimeout <= 0 {
		t.ProbeTimeout = DefaultProbeTimeout
	}
	if t.SettleDelay <= 0 {
		t.SettleDelay = DefaultSettleDelay
	}
}

// Factory builds a distributor from tuning constants.
type Factory func(t Tuning) Distributor

var registry = map[string]Factory{}

// Register associates a strategy code with its factory. Codes must be
// unique; duplicate registration panics during init.
func Register(code string, f Factory) {
	if _, dup := registry[code]; dup {
		panic(fmt.Sprintf("distribute: duplicate strategy code %q", code))
	}
	registry[code] = f
}

// New builds the distributor registered under code.
func New(code string, t Tuning) (Distributor, error) {
	f, ok := registry[code]
	if !ok {
		return nil, fmt.Errorf("distribute: unknown strategy %q (known: %v)", code, Codes())
	}
	return f(t), nil
}

// Codes lists registered strategy codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
