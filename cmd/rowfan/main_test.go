package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunHelp(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Fatalf("help should not error: %v", err)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	err := run([]string{"--queue-cap", "0", "--rows", "1"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "queue_capacity") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunRejectsUnknownStrategy(t *testing.T) {
	err := run([]string{"--rows", "1", "--strategy", "overflow"})
	if err == nil || !strings.Contains(err.Error(), "unknown strategy") {
		t.Fatalf("expected unknown strategy error, got %v", err)
	}
}

func TestRunSmallSession(t *testing.T) {
	report := filepath.Join(t.TempDir(), "report.json")
	err := run([]string{
		"--rows", "5",
		"--sinks", "2",
		"--sink-service", "0s",
		"--settle-delay", "2ms",
		"--json",
		"--report-file", report,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	data, readErr := os.ReadFile(report)
	if readErr != nil {
		t.Fatalf("report file: %v", readErr)
	}
	if !strings.Contains(string(data), `"delivered": 5`) {
		t.Fatalf("report missing deliveries:\n%s", data)
	}
}
