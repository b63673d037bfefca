// Package feeder provides row sources for the distribution harness.
package feeder

import (
	"context"
	"fmt"

	"github.com/rowfan/rowfan/internal/row"
)

// Feeder produces the rows a run distributes. Implementations must be safe
// for concurrent use.
type Feeder interface {
	// Next returns the next row, or ErrExhausted once the source has no
	// more rows and rewind is disabled.
	Next(ctx context.Context) (*row.Row, error)

	// Close releases any resources held by the feeder.
	Close() error

	// Len returns the number of rows in the dataset, or 0 when unbounded.
	Len() int
}

// ErrExhausted is returned when a feeder has no more rows to produce.
var ErrExhausted = fmt.Errorf("feeder exhausted: no more rows available")
