// Package cmd wires the heddle CLI: the headless worker, the interactive
// chat, and the housekeeping commands around sessions, credentials, and
// configuration.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/internal/tracing"
)

var logCleanup = func() {}

var rootCmd = &cobra.Command{
	Use:   "heddle",
	Short: "Coding agent harness for terminals and controller processes",
	Long: `heddle runs an LLM coding agent against OpenRouter-compatible APIs.

  heddle init        first-time setup (model, credentials, tools)
  heddle chat        interactive chat in the current project
  heddle headless    line-delimited JSON worker for IDE/controller use`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cleanup, err := config.SetupLogging()
		if err != nil {
			return err
		}
		logCleanup = cleanup
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logCleanup()
	},
}

// Execute runs the CLI. The headless command exits the process itself to
// control the worker's exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logCleanup()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(
		headlessCmd(),
		chatCmd(),
		sessionsCmd(),
		authCmd(),
		initCmd(),
		doctorCmd(),
		versionCmd(),
	)
}

// newCollector builds the span collector for a run, wiring the OTLP exporter
// when the binary carries it (-tags otel) and [trace] enables it.
func newCollector(ctx context.Context) *tracing.Collector {
	collector := tracing.NewCollector(nil)
	if cwd, err := os.Getwd(); err == nil {
		if cfg, err := config.LoadLayered(cwd); err == nil {
			initTraceExporter(ctx, cfg, collector)
		}
	}
	collector.Start()
	return collector
}
