package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/internal/provider"
	"github.com/heddlehq/heddle/internal/tools/builtin"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive setup: model, base URL, tools, API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

// starterConfig is the subset the wizard writes. Everything else in the
// config file is left for hand-editing.
type starterConfig struct {
	Model   string   `toml:"model"`
	BaseURL string   `toml:"base_url,omitempty"`
	Tools   []string `toml:"tools,omitempty"`
}

func runInit() error {
	cfgPath := config.GlobalPath()
	if _, err := os.Stat(cfgPath); err == nil {
		overwrite, err := promptConfirm(fmt.Sprintf("%s exists. Overwrite?", cfgPath), false)
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Keeping existing config.")
			return nil
		}
	}

	model, err := promptString("Model", "provider/model as OpenRouter names it", config.Defaults().Model)
	if err != nil {
		return err
	}

	baseURL, err := promptString("Base URL", "OpenAI-compatible endpoint", provider.DefaultBaseURL)
	if err != nil {
		return err
	}

	cwd, _ := os.Getwd()
	var toolOpts []SelectOption[string]
	var allNames []string
	for _, tool := range builtin.All(cwd) {
		toolOpts = append(toolOpts, SelectOption[string]{Label: tool.Name(), Value: tool.Name()})
		allNames = append(allNames, tool.Name())
	}
	selected, err := promptMultiSelect("Tools", "built-in tools the agent may call", toolOpts, allNames)
	if err != nil {
		return err
	}

	key, err := promptPassword("OpenRouter API key", "leave empty to use "+config.CredentialEnv)
	if err != nil {
		return err
	}
	if key != "" {
		if err := config.StoreAPIKey(key); err != nil {
			return fmt.Errorf("store API key: %w", err)
		}
		fmt.Println("Stored API key in the system keyring.")
	}

	sc := starterConfig{Model: model}
	if baseURL != provider.DefaultBaseURL {
		sc.BaseURL = baseURL
	}
	if len(selected) != len(allNames) {
		sc.Tools = selected
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(cfgPath)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(sc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("\nWrote %s\n", cfgPath)
	fmt.Printf("  model: %s\n", model)
	if sc.BaseURL != "" {
		fmt.Printf("  base_url: %s\n", sc.BaseURL)
	}
	if sc.Tools != nil {
		fmt.Printf("  tools: %v\n", sc.Tools)
	}
	fmt.Println("\nRun 'heddle chat' to start a session.")
	return nil
}
