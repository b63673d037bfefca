// Package output renders run statistics as text or JSON reports.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/rowfan/rowfan/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Distribution Results ---")
	fmt.Fprintf(w, "Rows Offered:      %d\n", stats.Offered)
	fmt.Fprintf(w, "Delivered:         %d\n", stats.Delivered)
	fmt.Fprintf(w, "Undelivered:       %d\n", stats.Undelivered)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Rows/sec:          %.2f\n", stats.RowsPerSec)

	fmt.Fprintln(w, "\nDistribute Latency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	fmt.Fprintln(w, "\nProbes per Row:")
	fmt.Fprintf(w, "  Mean:            %.2f\n", stats.MeanProbes)
	fmt.Fprintf(w, "  P50:             %d\n", stats.P50Probes)
	fmt.Fprintf(w, "  P99:             %d\n", stats.P99Probes)
	fmt.Fprintf(w, "  Max:             %d\n", stats.MaxProbes)

	if len(stats.PerSink) > 0 {
		fmt.Fprintln(w, "\nSink Breakdown:")
		for i, n := range stats.PerSink {
			share := 0.0
			if stats.Delivered > 0 {
				share = (float64(n) / float64(stats.Delivered)) * 100
			}
			fmt.Fprintf(w, "  - sink %d: rows=%d (%.1f%%)\n", i, n, share)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// WriteReportFile writes the JSON report to path, holding a file lock so
// concurrent harness invocations don't interleave writes.
func WriteReportFile(path string, stats metrics.Stats) error {
	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock report file: %w", err)
	}
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := PrintJSONReport(f, stats); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func lockPath(path string) string {
	dir, file := filepath.Split(path)
	return filepath.Join(dir, "."+file+".lock")
}
