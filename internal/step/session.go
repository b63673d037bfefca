// Package step holds the producer-side session state a distribution
// strategy works against: the output rowsets, the shared output cursor,
// and the cooperative stop flag.
package step

import (
	"sync/atomic"

	"github.com/rowfan/rowfan/internal/rowset"
)

// Session is the concrete step context for one distribution session. The
// rowset list is fixed at construction. The cursor has a single writer (the
// distributor, during a call); the stop flag may be flipped at any time by a
// separate cancelling goroutine and is polled by the distribution loop.
type Session struct {
	outputs []*rowset.RowSet
	cursor  atomic.Int64
	stopped atomic.Bool
}

// NewSession creates a session over the given output rowsets with the
// cursor at zero.
func NewSession(outputs []*rowset.RowSet) *Session {
	return &Session{outputs: outputs}
}

// Stop requests cooperative cancellation. The distribution loop observes it
// at its next stop-flag poll, so cancellation latency is bounded by one
// probe-plus-settle interval.
func (s *Session) Stop() {
	s.stopped.Store(true)
}

// IsStopped reports whether cancellation was requested.
func (s *Session) IsStopped() bool {
	return s.stopped.Load()
}

// OutputRowSets returns the ordered output rowsets.
func (s *Session) OutputRowSets() []*rowset.RowSet {
	return s.outputs
}

// CurrentOutputIndex returns the output to try first on the next
// distribution call.
func (s *Session) CurrentOutputIndex() int {
	return int(s.cursor.Load())
}

// SetCurrentOutputIndex moves the cursor. Indexes outside [0, N) are
// clamped to 0 to keep a misbehaving caller from breaking the session.
func (s *Session) SetCurrentOutputIndex(i int) {
	if i < 0 || i >= len(s.outputs) {
		i = 0
	}
	s.cursor.Store(int64(i))
}

// Abort tears down every output rowset. Probes against them fail with
// rowset.ErrAborted afterwards.
func (s *Session) Abort() {
	for _, rs := range s.outputs {
		rs.Abort()
	}
}

// Finish marks normal end of input on every output rowset.
func (s *Session) Finish() {
	for _, rs := range s.outputs {
		rs.Finish()
	}
}
