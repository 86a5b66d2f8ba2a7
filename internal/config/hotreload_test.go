package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDeliversReload(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HEDDLE_HOME", home)
	cfgPath := filepath.Join(home, GlobalFileName)
	writeFile(t, cfgPath, "model = \"openai/gpt-4o\"\n")

	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	got := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case got <- cfg:
		default:
		}
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(cfgPath, []byte("model = \"other/model\"\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-got:
		if cfg.Model != "other/model" {
			t.Errorf("reloaded model = %q, want %q", cfg.Model, "other/model")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload within 3s of config write")
	}
}

func TestWatcherStartsWithoutConfigFiles(t *testing.T) {
	t.Setenv("HEDDLE_HOME", filepath.Join(t.TempDir(), "absent"))

	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
}
