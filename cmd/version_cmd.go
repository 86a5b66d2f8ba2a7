package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/pkg/protocol"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("heddle %s (protocol %s)\n", config.Version, protocol.OwnVersion())
		},
	}
}
