// Package config provides configuration loading and parsing for rowfan.
package config

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// FeederKind selects the row source for a run.
type FeederKind string

const (
	FeederSynthetic FeederKind = "synthetic"
	FeederCSV       FeederKind = "csv"
	FeederJSONL     FeederKind = "jsonl"
)

// Config describes one distribution run.
type Config struct {
	Feeder        FeederConfig  `yaml:"feeder"`
	Rows          int           `yaml:"rows"`
	Duration      time.Duration `yaml:"duration"`
	Rate          int           `yaml:"rate"`
	QueueCapacity int           `yaml:"queue_capacity"`
	Sinks         []SinkConfig  `yaml:"sinks"`
	Strategy      string        `yaml:"strategy"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	SettleDelay   time.Duration `yaml:"settle_delay"`
	JSONOutput    bool          `yaml:"json_output"`
	ReportFile    string        `yaml:"report_file"`
	Tracing       TracingConfig `yaml:"tracing"`
	ConfigFile    string        `yaml:"-"`
	PrintConfig   bool          `yaml:"-"`
}

// FeederConfig selects and parameterizes the row source.
type FeederConfig struct {
	Kind         FeederKind `yaml:"kind"`
	Path         string     `yaml:"path"`
	Rewind       bool       `yaml:"rewind"`
	PayloadWidth int        `yaml:"payload_width"`
}

// SinkConfig describes one downstream consumer.
type SinkConfig struct {
	// ServiceTime is how long the sink works on each row.
	ServiceTime time.Duration `yaml:"service_time"`
	// Stalled sinks never take rows; they model a dead consumer.
	Stalled bool `yaml:"stalled"`
}

// TracingConfig configures the optional OTLP trace exporter.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Protocol    string  `yaml:"protocol"` // "grpc" (default) or "http"
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
	Insecure    bool    `yaml:"insecure"`
}

// Enabled reports whether an exporter endpoint was configured.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != ""
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Strategy == "" {
		return fmt.Errorf("strategy must not be empty")
	}
	if len(c.Sinks) == 0 {
		return fmt.Errorf("at least one sink is required")
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1, got %d", c.QueueCapacity)
	}
	if c.Rows < 0 {
		return fmt.Errorf("rows must not be negative, got %d", c.Rows)
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate must not be negative, got %d", c.Rate)
	}
	if c.Rows == 0 && c.Duration == 0 && (c.Feeder.Kind == FeederSynthetic || c.Feeder.Rewind) {
		return fmt.Errorf("an unbounded run needs rows or duration set")
	}
	switch c.Feeder.Kind {
	case FeederSynthetic:
	case FeederCSV, FeederJSONL:
		if c.Feeder.Path == "" {
			return fmt.Errorf("feeder kind %q requires a path", c.Feeder.Kind)
		}
	default:
		return fmt.Errorf("unknown feeder kind %q", c.Feeder.Kind)
	}
	for i, sink := range c.Sinks {
		if sink.ServiceTime < 0 {
			return fmt.Errorf("sink %d: service_time must not be negative", i)
		}
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate)
	}
	return nil
}

// Dump writes the effective configuration as YAML.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(c)
}
