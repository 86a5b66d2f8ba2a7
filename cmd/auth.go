package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heddlehq/heddle/internal/config"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the OpenRouter API key",
	}
	cmd.AddCommand(authSetCmd())
	cmd.AddCommand(authShowCmd())
	cmd.AddCommand(authClearCmd())
	return cmd
}

func authSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key]",
		Short: "Store an API key in the system keyring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				var err error
				key, err = promptPassword("OpenRouter API key", "Stored in the system keyring.")
				if err != nil {
					return err
				}
			}
			if key == "" {
				return fmt.Errorf("no key given")
			}
			if err := config.StoreAPIKey(key); err != nil {
				return err
			}
			fmt.Printf("Stored API key (%s) in the system keyring.\n", config.MaskKey(key))
			return nil
		},
	}
}

func authShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the configured API key, masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := config.APIKey()
			if err != nil {
				return err
			}
			fmt.Printf("%s (from %s)\n", config.MaskKey(key), config.KeySource())
			return nil
		},
	}
}

func authClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key from the keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DeleteAPIKey(); err != nil {
				return err
			}
			fmt.Println("Removed stored API key.")
			return nil
		},
	}
}
