// Package rowset provides the bounded single-producer/single-consumer
// queue linking a producing step to one downstream consumer.
package rowset

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rowfan/rowfan/internal/row"
)

// ErrAborted is returned by probes on a rowset that was torn down
// abnormally. It is fatal: callers must stop using the rowset.
var ErrAborted = errors.New("rowset: aborted")

// RowSet is a bounded queue between exactly one producer and one consumer.
// Put and take probes carry a caller-supplied timeout; a zero or negative
// timeout means "try once, don't wait". Timeouts below scheduler resolution
// are honored on a best-effort basis.
type RowSet struct {
	ch       chan *row.Row
	quit     chan struct{}
	abort    sync.Once
	finished atomic.Bool
}

// New creates a rowset with the given capacity. Capacity below 1 is
// raised to 1.
func New(capacity int) *RowSet {
	if capacity < 1 {
		capacity = 1
	}
	return &RowSet{
		ch:   make(chan *row.Row, capacity),
		quit: make(chan struct{}),
	}
}

// TryPut offers a row, waiting at most timeout for free space.
// Returns false on timeout; returns ErrAborted after Abort.
func (s *RowSet) TryPut(r *row.Row, timeout time.Duration) (bool, error) {
	select {
	case <-s.quit:
		return false, ErrAborted
	default:
	}
	if timeout <= 0 {
		select {
		case s.ch <- r:
			return true, nil
		default:
			return false, nil
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-s.quit:
		return false, ErrAborted
	case s.ch <- r:
		return true, nil
	case <-t.C:
		return false, nil
	}
}

// TryTake polls for a row, waiting at most timeout for one to appear.
// Returns (nil, nil) on timeout; returns ErrAborted after Abort.
func (s *RowSet) TryTake(timeout time.Duration) (*row.Row, error) {
	select {
	case <-s.quit:
		return nil, ErrAborted
	default:
	}
	if timeout <= 0 {
		select {
		case r := <-s.ch:
			return r, nil
		default:
			return nil, nil
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-s.quit:
		return nil, ErrAborted
	case r := <-s.ch:
		return r, nil
	case <-t.C:
		return nil, nil
	}
}

// Finish marks normal end of input: the producer will put no more rows.
// Rows already queued remain takeable.
func (s *RowSet) Finish() {
	s.finished.Store(true)
}

// Finished reports whether the producer declared end of input.
func (s *RowSet) Finished() bool {
	return s.finished.Load()
}

// Abort tears the rowset down abnormally. All subsequent probes on either
// side fail with ErrAborted. Safe to call more than once.
func (s *RowSet) Abort() {
	s.abort.Do(func() { close(s.quit) })
}

// Len returns the number of rows currently queued.
func (s *RowSet) Len() int {
	return len(s.ch)
}

// Cap returns the rowset capacity.
func (s *RowSet) Cap() int {
	return cap(s.ch)
}
