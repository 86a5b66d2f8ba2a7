package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/heddlehq/heddle/internal/headless"
)

func headlessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "headless",
		Short: "Run as a line-delimited JSON worker on stdin/stdout",
		Long: `Reads one JSON request per line from stdin and writes response and event
frames to stdout, one per line. Meant to be spawned by an editor or
controller process, not driven by hand.

Request types: init, send, cancel, status, shutdown. Logs go to stderr
(or HEDDLE_DEBUG_FILE); stdout carries only protocol frames.`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			collector := newCollector(ctx)

			w := headless.NewWorker(headless.Config{Collector: collector})
			code := w.Run(ctx)

			collector.Stop()
			logCleanup()
			os.Exit(code)
		},
	}
}
