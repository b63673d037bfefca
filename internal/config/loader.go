package config

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a
// Config. Flags override config-file settings.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Feeder:        FeederConfig{Kind: FeederSynthetic},
		QueueCapacity: 1,
		Strategy:      "single-queue",
		ProbeTimeout:  time.Nanosecond,
		SettleDelay:   10 * time.Millisecond,
		ConfigFile:    configPath,
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	// The sink-count shorthand expands to a uniform sinks list unless the
	// config file spelled one out.
	if len(cfg.Sinks) == 0 {
		count, _ := flagSet.GetInt("sinks")
		if count < 1 {
			count = 2
		}
		service, _ := flagSet.GetDuration("sink-service")
		if service == 0 {
			service = time.Millisecond
		}
		cfg.Sinks = make([]SinkConfig, count)
		for i := range cfg.Sinks {
			cfg.Sinks[i] = SinkConfig{ServiceTime: service}
		}
	}

	return cfg, nil
}

// applyFlagOverrides applies explicitly set flags on top of file settings.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "feeder":
			v, _ := flags.GetString("feeder")
			cfg.Feeder.Kind = FeederKind(v)
		case "feeder-file":
			cfg.Feeder.Path, _ = flags.GetString("feeder-file")
		case "feeder-rewind":
			cfg.Feeder.Rewind, _ = flags.GetBool("feeder-rewind")
		case "payload-width":
			cfg.Feeder.PayloadWidth, _ = flags.GetInt("payload-width")
		case "rows":
			cfg.Rows, _ = flags.GetInt("rows")
		case "duration":
			cfg.Duration, _ = flags.GetDuration("duration")
		case "rate":
			cfg.Rate, _ = flags.GetInt("rate")
		case "queue-cap":
			cfg.QueueCapacity, _ = flags.GetInt("queue-cap")
		case "strategy":
			cfg.Strategy, _ = flags.GetString("strategy")
		case "probe-timeout":
			cfg.ProbeTimeout, _ = flags.GetDuration("probe-timeout")
		case "settle-delay":
			cfg.SettleDelay, _ = flags.GetDuration("settle-delay")
		case "json":
			cfg.JSONOutput, _ = flags.GetBool("json")
		case "report-file":
			cfg.ReportFile, _ = flags.GetString("report-file")
		case "print-config":
			cfg.PrintConfig, _ = flags.GetBool("print-config")
		case "sinks", "sink-service":
			// Shorthand flags rebuild the sinks list below.
			count, _ := flags.GetInt("sinks")
			if count > 0 {
				service, _ := flags.GetDuration("sink-service")
				if service == 0 && len(cfg.Sinks) > 0 {
					service = cfg.Sinks[0].ServiceTime
				}
				if service == 0 {
					service = time.Millisecond
				}
				cfg.Sinks = make([]SinkConfig, count)
				for i := range cfg.Sinks {
					cfg.Sinks[i] = SinkConfig{ServiceTime: service}
				}
			}
		}
	})
	return err
}
