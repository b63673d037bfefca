package feeder

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/rowfan/rowfan/internal/row"
)

// Synthetic generates rows on demand: a sequence number plus a fixed-width
// payload string. With total == 0 it never exhausts.
type Synthetic struct {
	meta    *row.Meta
	payload string
	total   int64
	seq     atomic.Int64
}

// NewSynthetic creates a generator producing up to total rows with payloads
// of payloadWidth bytes. total == 0 means unbounded.
func NewSynthetic(total, payloadWidth int) *Synthetic {
	if payloadWidth < 1 {
		payloadWidth = 16
	}
	return &Synthetic{
		meta:    row.NewMeta("seq", "payload"),
		payload: strings.Repeat("x", payloadWidth),
		total:   int64(total),
	}
}

// Next returns the next generated row.
func (f *Synthetic) Next(ctx context.Context) (*row.Row, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	seq := f.seq.Add(1)
	if f.total > 0 && seq > f.total {
		return nil, ErrExhausted
	}
	return row.New(f.meta, []any{seq, f.payload})
}

// Close is a no-op for the generator.
func (f *Synthetic) Close() error { return nil }

// Len returns the configured total, 0 when unbounded.
func (f *Synthetic) Len() int { return int(f.total) }
