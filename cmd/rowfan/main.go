// Command rowfan runs a row distribution session against configurable
// sinks and reports how the strategy spread the work.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rowfan/rowfan/internal/config"
	"github.com/rowfan/rowfan/internal/distribute"
	"github.com/rowfan/rowfan/internal/engine"
	"github.com/rowfan/rowfan/internal/feeder"
	"github.com/rowfan/rowfan/internal/metrics"
	"github.com/rowfan/rowfan/internal/output"
	"github.com/rowfan/rowfan/internal/tracing"
)

const progressInterval = time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.PrintConfig {
		return cfg.Dump(os.Stdout)
	}

	strategy, err := distribute.New(cfg.Strategy, distribute.Tuning{
		ProbeTimeout: cfg.ProbeTimeout,
		SettleDelay:  cfg.SettleDelay,
	})
	if err != nil {
		return err
	}

	source, err := newFeeder(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	collector := metrics.NewCollector(len(cfg.Sinks))

	sinks := make([]engine.SinkSpec, len(cfg.Sinks))
	for i, s := range cfg.Sinks {
		sinks[i] = engine.SinkSpec{ServiceTime: s.ServiceTime, Stalled: s.Stalled}
	}

	opts := engine.Options{
		Strategy:      strategy,
		Feeder:        source,
		Sinks:         sinks,
		QueueCapacity: cfg.QueueCapacity,
		TotalRows:     cfg.Rows,
		Duration:      cfg.Duration,
		RatePerSecond: cfg.Rate,
		Collector:     collector,
	}
	if cfg.Tracing.Enabled() {
		opts.Tracer = provider.Tracer()
	}

	e, err := engine.New(opts)
	if err != nil {
		return err
	}

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(collector, progressInterval, os.Stdout)
		progress.Start()
	}

	collector.Start()
	result, runErr := e.Run(ctx)

	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stdout)
	}

	stats := collector.Stats(result.Duration)

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, stats)
	}

	if cfg.ReportFile != "" {
		if err := output.WriteReportFile(cfg.ReportFile, stats); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	if result.Undelivered > 0 {
		return fmt.Errorf("%d rows were not delivered", result.Undelivered)
	}
	return nil
}

func newFeeder(cfg *config.Config) (feeder.Feeder, error) {
	switch cfg.Feeder.Kind {
	case config.FeederSynthetic:
		return feeder.NewSynthetic(cfg.Rows, cfg.Feeder.PayloadWidth), nil
	case config.FeederCSV:
		return feeder.NewCSVFeeder(cfg.Feeder.Path, cfg.Feeder.Rewind)
	case config.FeederJSONL:
		return feeder.NewJSONLFeeder(cfg.Feeder.Path, cfg.Feeder.Rewind)
	default:
		return nil, fmt.Errorf("unknown feeder kind %q", cfg.Feeder.Kind)
	}
}
