package config

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rowfan",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Workload flags
	flags.String("feeder", "", "Row source kind: synthetic, csv, jsonl")
	flags.String("feeder-file", "", "Path to the csv/jsonl dataset")
	flags.Bool("feeder-rewind", false, "Serve file datasets round-robin instead of exhausting")
	flags.Int("payload-width", 0, "Synthetic payload width in bytes")
	flags.Int("rows", 0, "Total rows to distribute (0 means until exhaustion/duration)")
	flags.Duration("duration", 0, "Overall run time limit")
	flags.Int("rate", 0, "Rows per second pacing (0 means unpaced)")

	// Topology flags
	flags.Int("queue-cap", 0, "Capacity of each output rowset")
	flags.Int("sinks", 0, "Number of uniform sinks (shorthand for a sinks list)")
	flags.Duration("sink-service", 0, "Per-row service time of uniform sinks")

	// Strategy flags
	flags.String("strategy", "", "Distribution strategy code")
	flags.Duration("probe-timeout", 0, "Bound on each put/take probe")
	flags.Duration("settle-delay", 0, "Pause between placing a row and checking consumption")

	// Output flags
	flags.Bool("json", false, "Emit the report as JSON")
	flags.String("report-file", "", "Also write the JSON report to this file")
	flags.Bool("print-config", false, "Print the effective configuration and exit")

	// Config file
	flags.String("config", "", "Path to YAML configuration file")
	flags.BoolP("help", "h", false, "Show help")
}

func displayHelp(cmd *cobra.Command) {
	cmd.Println("rowfan - row distribution strategy harness")
	cmd.Println()
	cmd.Println("Usage:")
	cmd.Println("  rowfan [flags]")
	cmd.Println()
	cmd.Println("Flags:")
	cmd.Print(cmd.Flags().FlagUsages())
}
