package feeder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/rowfan/rowfan/internal/row"
)

// JSONLFeeder reads rows from a JSON-lines file: one object per line. The
// schema is the top-level keys of the first object, in encounter order;
// later lines are projected onto it, with missing fields left nil.
type JSONLFeeder struct {
	meta   *row.Meta
	values [][]any
	index  int
	rewind bool
	mu     sync.Mutex
}

// NewJSONLFeeder loads a JSON-lines file. With rewind enabled the dataset
// is served round-robin instead of exhausting.
func NewJSONLFeeder(path string, rewind bool) (*JSONLFeeder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open JSONL file: %w", err)
	}
	defer file.Close()

	var meta *row.Meta
	var values [][]any

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parsed := gjson.Parse(line)
		if !parsed.IsObject() {
			return nil, fmt.Errorf("line %d is not a JSON object", lineNo)
		}

		if meta == nil {
			var fields []string
			parsed.ForEach(func(key, _ gjson.Result) bool {
				fields = append(fields, key.String())
				return true
			})
			if len(fields) == 0 {
				return nil, fmt.Errorf("line %d has no fields", lineNo)
			}
			meta = row.NewMeta(fields...)
		}

		vals := make([]any, meta.Size())
		for i, field := range meta.Fields {
			if res := parsed.Get(field); res.Exists() {
				vals[i] = res.Value()
			}
		}
		values = append(values, vals)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read JSONL: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("JSONL file contains no rows")
	}

	return &JSONLFeeder{
		meta:   meta,
		values: values,
		rewind: rewind,
	}, nil
}

// Next returns the next row in file order.
func (f *JSONLFeeder) Next(ctx context.Context) (*row.Row, error) {
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
func (f *JSONLFeeder) Close() error { return nil }

// Len returns the number of rows in the file.
func (f *JSONLFeeder) Len() int { return len(f.values) }
