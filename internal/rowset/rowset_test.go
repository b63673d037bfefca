package rowset_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rowfan/rowfan/internal/row"
	"github.com/rowfan/rowfan/internal/rowset"
)

func makeRow(t *testing.T) *row.Row {
	t.Helper()
	r, err := row.New(row.NewMeta("v"), []any{42})
	if err != nil {
		t.Fatalf("make row: %v", err)
	}
	return r
}

func TestNonBlockingPutTake(t *testing.T) {
	rs := rowset.New(1)

	if got, err := rs.TryTake(0); err != nil || got != nil {
		t.Fatalf("take on empty = (%v, %v), want (nil, nil)", got, err)
	}

	r := makeRow(t)
	if ok, err := rs.TryPut(r, 0); err != nil || !ok {
		t.Fatalf("put into empty = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := rs.TryPut(makeRow(t), 0); err != nil || ok {
		t.Fatalf("put into full = (%v, %v), want (false, nil)", ok, err)
	}

	got, err := rs.TryTake(0)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if got == nil || got.ID != r.ID {
		t.Fatalf("take returned %v, want the queued row", got)
	}
}

func TestBoundedWaitTimesOut(t *testing.T) {
	rs := rowset.New(1)
	if ok, err := rs.TryPut(makeRow(t), 0); err != nil || !ok {
		t.Fatalf("seed: (%v, %v)", ok, err)
	}

	start := time.Now()
	ok, err := rs.TryPut(makeRow(t), 5*time.Millisecond)
	if err != nil || ok {
		t.Fatalf("put into full = (%v, %v), want timeout", ok, err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Fatalf("returned before the bounded wait elapsed: %s", elapsed)
	}
}

func TestBoundedWaitUnblocksOnTake(t *testing.T) {
	rs := rowset.New(1)
	if ok, err := rs.TryPut(makeRow(t), 0); err != nil || !ok {
		t.Fatalf("seed: (%v, %v)", ok, err)
	}

	go func() {
		time.Sleep(2 * time.Millisecond)
		_, _ = rs.TryTake(0)
	}()

	ok, err := rs.TryPut(makeRow(t), time.Second)
	if err != nil || !ok {
		t.Fatalf("put did not succeed once space freed: (%v, %v)", ok, err)
	}
}

func TestAbortFailsProbes(t *testing.T) {
	rs := rowset.New(1)
	rs.Abort()
	rs.Abort() // idempotent

	if _, err := rs.TryPut(makeRow(t), 0); !errors.Is(err, rowset.ErrAborted) {
		t.Fatalf("put after abort: %v", err)
	}
	if _, err := rs.TryTake(0); !errors.Is(err, rowset.ErrAborted) {
		t.Fatalf("take after abort: %v", err)
	}
	if _, err := rs.TryTake(time.Millisecond); !errors.Is(err, rowset.ErrAborted) {
		t.Fatalf("bounded take after abort: %v", err)
	}
}

func TestAbortUnblocksWaiter(t *testing.T) {
	rs := rowset.New(1)
	done := make(chan error, 1)
	go func() {
		_, err := rs.TryTake(5 * time.Second)
		done <- err
	}()

	time.Sleep(2 * time.Millisecond)
	rs.Abort()

	select {
	case err := <-done:
		if !errors.Is(err, rowset.ErrAborted) {
			t.Fatalf("waiter got %v, want ErrAborted", err)
		}
	case <-time.After(time.Second):
		t.Fatal("abort did not unblock the waiting take")
	}
}

func TestFinishLeavesRowsTakeable(t *testing.T) {
	rs := rowset.New(2)
	r := makeRow(t)
	if ok, err := rs.TryPut(r, 0); err != nil || !ok {
		t.Fatalf("seed: (%v, %v)", ok, err)
	}

	rs.Finish()
	if !rs.Finished() {
		t.Fatal("Finished() false after Finish")
	}

	got, err := rs.TryTake(0)
	if err != nil || got == nil || got.ID != r.ID {
		t.Fatalf("queued row not takeable after Finish: (%v, %v)", got, err)
	}
}

func TestLenCap(t *testing.T) {
	rs := rowset.New(0) // clamped to 1
	if rs.Cap() != 1 {
		t.Fatalf("cap = %d, want 1", rs.Cap())
	}
	if rs.Len() != 0 {
		t.Fatalf("len = %d, want 0", rs.Len())
	}
	if ok, _ := rs.TryPut(makeRow(t), 0); !ok {
		t.Fatal("put failed")
	}
	if rs.Len() != 1 {
		t.Fatalf("len = %d, want 1", rs.Len())
	}
}
