package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"

	"github.com/spf13/cobra"

	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/pkg/protocol"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("heddle doctor")
	fmt.Printf("  Version:  %s (protocol %s)\n", config.Version, protocol.OwnVersion())
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	home := config.Home()
	fmt.Printf("  Home:     %s", home)
	if _, err := os.Stat(home); err != nil {
		fmt.Println(" (NOT FOUND)")
	} else {
		fmt.Println(" (OK)")
	}

	cfgPath := config.GlobalPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND)")
	} else {
		fmt.Println(" (OK)")
	}

	cwd, _ := os.Getwd()
	if projPath := config.FindProjectFile(cwd); projPath != "" {
		fmt.Printf("  Project:  %s (OK)\n", projPath)
	} else {
		fmt.Println("  Project:  no " + config.ProjectFileName + " found")
	}

	cfg, err := config.LoadLayered(cwd)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	fmt.Printf("  Model:    %s\n", cfg.Model)

	fmt.Println()
	fmt.Println("  Credentials:")
	checkCredential()

	fmt.Println()
	fmt.Println("  External Tools:")
	checkBinary("bash")
	checkBinary("rg")

	if len(cfg.MCP) > 0 {
		fmt.Println()
		fmt.Println("  MCP Servers:")
		names := make([]string, 0, len(cfg.MCP))
		for name := range cfg.MCP {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("    %-12s %s\n", name+":", cfg.MCP[name].Command)
		}
	}

	fmt.Println()
	checkSessionIndex()

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkCredential() {
	key, err := config.APIKey()
	if err != nil {
		fmt.Printf("    %-12s (not configured)\n", "OpenRouter:")
		return
	}
	fmt.Printf("    %-12s %s (from %s)\n", "OpenRouter:", config.MaskKey(key), config.KeySource())
}

func checkBinary(name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Printf("    %-12s NOT FOUND\n", name+":")
	} else {
		fmt.Printf("    %-12s %s\n", name+":", path)
	}
}

func checkSessionIndex() {
	ix, err := openIndex()
	if err != nil {
		fmt.Printf("  Sessions: index unavailable (%s)\n", err)
		return
	}
	defer ix.Close()
	n, err := ix.Count()
	if err != nil {
		fmt.Printf("  Sessions: count failed (%s)\n", err)
		return
	}
	fmt.Printf("  Sessions: %d indexed\n", n)
}
