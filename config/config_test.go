package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oac-tree/sequencer/config"
)

func TestDefaultRunnerConfigYieldsByDefault(t *testing.T) {
	cfg := config.DefaultRunnerConfig()
	if !cfg.YieldWhenIdle() {
		t.Error("expected YieldWhenIdle() to default to true")
	}
	if cfg.Observer != "noop" {
		t.Errorf("got Observer %q, want %q", cfg.Observer, "noop")
	}
}

func TestRunnerConfigMergeExplicitFalseOverridesDefault(t *testing.T) {
	cfg := config.DefaultRunnerConfig()
	no := false
	cfg.Merge(&config.RunnerConfig{YieldWhenIdleNil: &no})
	if cfg.YieldWhenIdle() {
		t.Error("expected explicit false to override the true default")
	}
}

func TestRunnerConfigMergeZeroValuesPreserveDefaults(t *testing.T) {
	cfg := config.DefaultRunnerConfig()
	original := cfg.Observer
	cfg.Merge(&config.RunnerConfig{})
	if cfg.Observer != original {
		t.Errorf("got Observer %q, want preserved default %q", cfg.Observer, original)
	}
}

func TestJobConfigMerge(t *testing.T) {
	cfg := config.DefaultJobConfig()
	cfg.Merge(&config.JobConfig{
		Name: "my-job",
		Runner: config.RunnerConfig{
			TickTimeout: 2 * time.Second,
			Observer:    "slog",
		},
	})

	if cfg.Name != "my-job" {
		t.Errorf("got Name %q, want %q", cfg.Name, "my-job")
	}
	if cfg.Runner.TickTimeout != 2*time.Second {
		t.Errorf("got TickTimeout %v, want 2s", cfg.Runner.TickTimeout)
	}
	if cfg.Runner.Observer != "slog" {
		t.Errorf("got Observer %q, want %q", cfg.Runner.Observer, "slog")
	}
}

func TestLoadFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.json")
	content := `{
		"name": "from-json",
		"runner": {
			"tick_timeout": 1000000000,
			"observer": "slog",
			"breakpoint_seeds": ["checkpoint"]
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Name != "from-json" {
		t.Errorf("got Name %q, want %q", cfg.Name, "from-json")
	}
	if cfg.Runner.TickTimeout != time.Second {
		t.Errorf("got TickTimeout %v, want 1s", cfg.Runner.TickTimeout)
	}
	if len(cfg.Runner.BreakpointSeeds) != 1 || cfg.Runner.BreakpointSeeds[0] != "checkpoint" {
		t.Errorf("got BreakpointSeeds %v, want [checkpoint]", cfg.Runner.BreakpointSeeds)
	}
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	content := "name: from-yaml\nrunner:\n  observer: slog\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Name != "from-yaml" {
		t.Errorf("got Name %q, want %q", cfg.Name, "from-yaml")
	}
	if cfg.Runner.Observer != "slog" {
		t.Errorf("got Observer %q, want %q", cfg.Runner.Observer, "slog")
	}
}

func TestLoadFileUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.toml")
	if err := os.WriteFile(path, []byte("name = \"x\""), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := config.LoadFile(path); err == nil {
		t.Fatal("expected an error for an unsupported extension")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := config.LoadFile("/nonexistent/job.json"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
