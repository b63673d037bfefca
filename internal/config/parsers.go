package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// applyConfigSettings applies settings from a config file to the Config.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if v, ok := settings["rows"]; ok {
		n, err := asInt(v)
		if err != nil {
			return fmt.Errorf("rows: %w", err)
		}
		cfg.Rows = n
	}
	if v, ok := settings["duration"]; ok {
		d, err := asDuration(v)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = d
	}
	if v, ok := settings["rate"]; ok {
		n, err := asInt(v)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = n
	}
	if v, ok := settings["queue_capacity"]; ok {
		n, err := asInt(v)
		if err != nil {
			return fmt.Errorf("queue_capacity: %w", err)
		}
		cfg.QueueCapacity = n
	}
	if v, ok := settings["strategy"]; ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("strategy: %w", err)
		}
		cfg.Strategy = s
	}
	if v, ok := settings["probe_timeout"]; ok {
		d, err := asDuration(v)
		if err != nil {
			return fmt.Errorf("probe_timeout: %w", err)
		}
		cfg.ProbeTimeout = d
	}
	if v, ok := settings["settle_delay"]; ok {
		d, err := asDuration(v)
		if err != nil {
			return fmt.Errorf("settle_delay: %w", err)
		}
		cfg.SettleDelay = d
	}
	if v, ok := settings["json_output"]; ok {
		b, err := asBool(v)
		if err != nil {
			return fmt.Errorf("json_output: %w", err)
		}
		cfg.JSONOutput = b
	}
	if v, ok := settings["report_file"]; ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("report_file: %w", err)
		}
		cfg.ReportFile = s
	}

	if v, ok := settings["feeder"]; ok {
		m, err := toStringKeyMap(v)
		if err != nil {
			return fmt.Errorf("feeder: %w", err)
		}
		if err := applyFeederSettings(&cfg.Feeder, m); err != nil {
			return err
		}
	}
	if v, ok := settings["sinks"]; ok {
		sinks, err := parseSinks(v)
		if err != nil {
			return err
		}
		cfg.Sinks = sinks
	}
	if v, ok := settings["tracing"]; ok {
		m, err := toStringKeyMap(v)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		if err := applyTracingSettings(&cfg.Tracing, m); err != nil {
			return err
		}
	}

	return nil
}

func applyFeederSettings(f *FeederConfig, m map[string]interface{}) error {
	if v, ok := m["kind"]; ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("feeder.kind: %w", err)
		}
		f.Kind = FeederKind(s)
	}
	if v, ok := m["path"]; ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("feeder.path: %w", err)
		}
		f.Path = s
	}
	if v, ok := m["rewind"]; ok {
		b, err := asBool(v)
		if err != nil {
			return fmt.Errorf("feeder.rewind: %w", err)
		}
		f.Rewind = b
	}
	if v, ok := m["payload_width"]; ok {
		n, err := asInt(v)
		if err != nil {
			return fmt.Errorf("feeder.payload_width: %w", err)
		}
		f.PayloadWidth = n
	}
	return nil
}

func parseSinks(value interface{}) ([]SinkConfig, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, fmt.Errorf("sinks: %w", err)
	}
	sinks := make([]SinkConfig, 0, len(items))
	for i, item := range items {
		m, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("sinks[%d]: %w", i, err)
		}
		var sink SinkConfig
		if v, ok := m["service_time"]; ok {
			d, err := asDuration(v)
			if err != nil {
				return nil, fmt.Errorf("sinks[%d].service_time: %w", i, err)
			}
			sink.ServiceTime = d
		}
		if v, ok := m["stalled"]; ok {
			b, err := asBool(v)
			if err != nil {
				return nil, fmt.Errorf("sinks[%d].stalled: %w", i, err)
			}
			sink.Stalled = b
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

func applyTracingSettings(t *TracingConfig, m map[string]interface{}) error {
	if v, ok := m["endpoint"]; ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("tracing.endpoint: %w", err)
		}
		t.Endpoint = s
	}
	if v, ok := m["protocol"]; ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("tracing.protocol: %w", err)
		}
		t.Protocol = s
	}
	if v, ok := m["service_name"]; ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("tracing.service_name: %w", err)
		}
		t.ServiceName = s
	}
	if v, ok := m["sample_rate"]; ok {
		f, err := asFloat64(v)
		if err != nil {
			return fmt.Errorf("tracing.sample_rate: %w", err)
		}
		t.SampleRate = f
	}
	if v, ok := m["insecure"]; ok {
		b, err := asBool(v)
		if err != nil {
			return fmt.Errorf("tracing.insecure: %w", err)
		}
		t.Insecure = b
	}
	return nil
}

// asString converts an interface value to a string.
func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// asInt converts an interface value to an int, accepting any numeric type
// or a numeric string.
func asInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float32:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
}

// asFloat64 converts an interface value to a float64.
func asFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported float type %T", value)
	}
}

// asBool converts an interface value to a bool.
func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return false, nil
		}
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		return false, fmt.Errorf("unsupported bool type %T", value)
	}
}

// asDuration converts an interface value to a time.Duration. Bare numbers
// are read as nanoseconds; strings go through time.ParseDuration.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v), nil
	case int64:
		return time.Duration(v), nil
	case float64:
		return time.Duration(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return time.ParseDuration(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("unsupported duration type %T", value)
	}
}

// toInterfaceSlice normalizes a config list value.
func toInterfaceSlice(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
}

// toStringKeyMap normalizes a config map value.
func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		return v, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			s, err := asString(key)
			if err != nil {
				return nil, err
			}
			out[strings.ToLower(s)] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a map, got %T", value)
	}
}
