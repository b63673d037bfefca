// Package row defines the unit of work moving through a pipeline: an
// ordered tuple of values paired with its schema descriptor.
package row

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// Meta describes the shape of a row: the ordered field names of the tuple.
// Distribution code treats rows as opaque; Meta exists for the producing
// and consuming steps, and for diagnostics.
type Meta struct {
	Fields []string
}

// NewMeta creates a schema descriptor from ordered field names.
func NewMeta(fields ...string) *Meta {
	return &Meta{Fields: fields}
}

// Size returns the number of fields in the schema.
func (m *Meta) Size() int {
	if m == nil {
		return 0
	}
	return len(m.Fields)
}

// Row is one unit of work. ID is assigned at creation and is only used
// for diagnostics; Values are never inspected by distribution code.
type Row struct {
	ID     ulid.ULID
	Meta   *Meta
	Values []any
}

// New builds a row from a schema and matching values.
// The value count must match the schema width.
func New(meta *Meta, values []any) (*Row, error) {
	if meta.Size() != len(values) {
		return nil, fmt.Errorf("row has %d values, schema expects %d", len(values), meta.Size())
	}
	return &Row{
		ID:     ulid.Make(),
		Meta:   meta,
		Values: values,
	}, nil
}
