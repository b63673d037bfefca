package feeder

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/rowfan/rowfan/internal/row"
)

// CSVFeeder reads rows from a CSV file. The header row becomes the schema;
// every data row becomes one pipeline row with string values.
type CSVFeeder struct {
	meta   *row.Meta
	values [][]any
	index  int
	rewind bool
	mu     sync.Mutex
}

// NewCSVFeeder loads a CSV file. With rewind enabled the dataset is served
// round-robin instead of exhausting.
func NewCSVFeeder(path string, rewind bool) (*CSVFeeder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file needs a header row and at least one data row")
	}

	header := rows[0]
	dataRows := rows[1:]

	values := make([][]any, 0, len(dataRows))
	for i, r := range dataRows {
		if len(r) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+2, len(r), len(header))
		}
		vals := make([]any, len(r))
		for j, field := range r {
			vals[j] = field
		}
		values = append(values, vals)
	}

	return &CSVFeeder{
		meta:   row.NewMeta(header...),
		values: values,
		rewind: rewind,
	}, nil
}

// Next returns the next row in file order.
func (f *CSVFeeder) Next(ctx context.Context) (*row.Row, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index >= len(f.values) {
		if !f.rewind {
			return nil, ErrExhausted
		}
		f.index = 0
	}

	vals := f.values[f.index]
	f.index++
	return row.New(f.meta, vals)
}

// Close is a no-op: the file is fully read at construction.
func (f *CSVFeeder) Close() error { return nil }

// Len returns the number of data rows in the file.
func (f *CSVFeeder) Len() int { return len(f.values) }
