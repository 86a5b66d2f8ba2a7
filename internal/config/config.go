// Package config loads heddle's layered configuration: compiled defaults,
// the global config.toml under the heddle home, the nearest project
// .heddle.toml walking up from the working directory, then environment
// overrides. Credential resolution and debug logging setup live here too.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// Version is the heddle release version, recorded in session_meta
	// headers and printed by the version and doctor commands.
	Version = "0.1.0"

	// DefaultModel is used when no layer sets one. OpenRouter model ids
	// are "<vendor>/<model>".
	DefaultModel = "openai/gpt-4o-mini"

	// GlobalFileName is the config file under the heddle home.
	GlobalFileName = "config.toml"

	// ProjectFileName is looked up from cwd upward.
	ProjectFileName = ".heddle.toml"
)

// MCPServer configures one stdio MCP server, keyed by name under [mcp.<name>].
type MCPServer struct {
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
}

// Trace configures the OTLP span exporter.
type Trace struct {
	Enabled     bool              `toml:"enabled"`
	Endpoint    string            `toml:"endpoint"`
	Protocol    string            `toml:"protocol"` // "grpc" or "http"
	Insecure    bool              `toml:"insecure"`
	ServiceName string            `toml:"service_name"`
	Headers     map[string]string `toml:"headers"`
}

// Config is the effective configuration after merging all layers.
type Config struct {
	Model             string               `toml:"model"`
	BaseURL           string               `toml:"base_url"`
	SystemPrompt      string               `toml:"system_prompt"`
	Tools             []string             `toml:"tools"`
	MaxIterations     int                  `toml:"max_iterations"`
	RequestsPerMinute int                  `toml:"requests_per_minute"`
	RequestParams     map[string]any       `toml:"request_params"`
	MCP               map[string]MCPServer `toml:"mcp"`
	Trace             Trace                `toml:"trace"`
}

// Defaults returns the compiled-in base layer.
func Defaults() *Config {
	return &Config{Model: DefaultModel}
}

// Home returns the heddle state directory: HEDDLE_HOME when set (relative
// paths resolve from cwd), else ~/.heddle.
func Home() string {
	if home := os.Getenv("HEDDLE_HOME"); home != "" {
		if abs, err := filepath.Abs(home); err == nil {
			return abs
		}
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".heddle"
	}
	return filepath.Join(userHome, ".heddle")
}

// GlobalPath returns the global config file path under Home.
func GlobalPath() string {
	return filepath.Join(Home(), GlobalFileName)
}

// Load reads one TOML file over the defaults. Used by tests and by tools
// that inspect a single file; most callers want LoadLayered.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if err := mergeFile(cfg, path); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadLayered merges defaults, the global file, the nearest project file
// above cwd, and environment overrides, in that precedence order.
func LoadLayered(cwd string) (*Config, error) {
	cfg := Defaults()
	global := GlobalPath()
	if _, err := os.Stat(global); err == nil {
		if err := mergeFile(cfg, global); err != nil {
			return nil, fmt.Errorf("global config: %w", err)
		}
	}
	if project := FindProjectFile(cwd); project != "" {
		if err := mergeFile(cfg, project); err != nil {
			return nil, fmt.Errorf("project config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// FindProjectFile walks from cwd to the filesystem root looking for
// ProjectFileName. Empty when none exists.
func FindProjectFile(cwd string) string {
	dir := cwd
	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func mergeFile(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if base := os.Getenv("HEDDLE_BASE_URL"); base != "" {
		c.BaseURL = base
	}
}
