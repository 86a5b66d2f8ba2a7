package cmd

import (
	"github.com/spf13/cobra"

	"github.com/heddlehq/heddle/internal/repl"
	"github.com/heddlehq/heddle/internal/session"
)

func chatCmd() *cobra.Command {
	var (
		model    string
		system   string
		toolList []string
		maxIter  int
		cwd      string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the agent interactively or send a one-shot message",
		Long: `Start an interactive chat in the current project, or send a single
message and print the answer.

Examples:
  heddle chat                          # interactive REPL
  heddle chat "fix the failing test"   # one-shot
  heddle chat -m anthropic/claude-sonnet-4
  heddle chat --tools read,grep,bash`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			collector := newCollector(ctx)
			defer collector.Stop()

			r := repl.New(session.CreateOptions{
				Model:         model,
				SystemPrompt:  system,
				Tools:         toolList,
				Cwd:           cwd,
				MaxIterations: maxIter,
			})
			r.Collector = collector

			if len(args) == 1 {
				return r.Once(ctx, args[0])
			}
			return r.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "model override (OpenRouter id)")
	cmd.Flags().StringVar(&system, "system", "", "system prompt override")
	cmd.Flags().StringSliceVar(&toolList, "tools", nil, "restrict the agent to these tools")
	cmd.Flags().IntVar(&maxIter, "max-iterations", 0, "cap on provider round-trips per send")
	cmd.Flags().StringVarP(&cwd, "cwd", "C", "", "working directory (default: current)")
	return cmd
}
