package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if !slices.Equal(cfg.Layers, []int{1, 10, 10, 1}) || cfg.Population != 4 || cfg.TrainTime != 25*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "run.yaml", `
layers: [2, 6, 1]
population: 7
train_time: 10s
generations: 3
tick: 50ms
seed: 42
arena:
  width: 30
  food_interval: 2s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !slices.Equal(cfg.Layers, []int{2, 6, 1}) {
		t.Fatalf("layers: %v", cfg.Layers)
	}
	if cfg.Population != 8 {
		t.Fatalf("population should round up to 8, got %d", cfg.Population)
	}
	if cfg.TrainTime != 10*time.Second || cfg.Tick != 50*time.Millisecond || cfg.Generations != 3 || cfg.Seed != 42 {
		t.Fatalf("unexpected run settings: %+v", cfg)
	}
	if cfg.Arena.Width != 30 || cfg.Arena.Height != 12 || cfg.Arena.FoodInterval != 2*time.Second {
		t.Fatalf("unexpected arena: %+v", cfg.Arena)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadINI(t *testing.T) {
	path := writeFile(t, "run.ini", `layers = 3,5,2
population = 6
train_time = 15s
generations = 4
workers = 2

[arena]
height = 40
speed = 1.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !slices.Equal(cfg.Layers, []int{3, 5, 2}) {
		t.Fatalf("layers: %v", cfg.Layers)
	}
	if cfg.Population != 6 || cfg.TrainTime != 15*time.Second || cfg.Generations != 4 || cfg.Workers != 2 {
		t.Fatalf("unexpected run settings: %+v", cfg)
	}
	if cfg.Arena.Height != 40 || cfg.Arena.Speed != 1.5 || cfg.Arena.Width != 20 {
		t.Fatalf("unexpected arena: %+v", cfg.Arena)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(writeFile(t, "run.json", `{}`)); err == nil || !strings.Contains(err.Error(), "unsupported config format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file error")
	}
	if _, err := Load(writeFile(t, "bad.yaml", "layers: [1, 2\n")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MICROEVO_LOG_LEVEL", "DEBUG")
	t.Setenv("MICROEVO_STORE", "sqlite")
	t.Setenv("MICROEVO_DB_PATH", "/tmp/runs.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Store != "sqlite" || cfg.DBPath != "/tmp/runs.db" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"single layer", func(c *RunConfig) { c.Layers = []int{3} }},
		{"zero width", func(c *RunConfig) { c.Layers = []int{1, 0, 1} }},
		{"population", func(c *RunConfig) { c.Population = 0 }},
		{"train time", func(c *RunConfig) { c.TrainTime = 0 }},
		{"generations", func(c *RunConfig) { c.Generations = 0 }},
		{"tick", func(c *RunConfig) { c.Tick = 0 }},
		{"tick longer than window", func(c *RunConfig) { c.Tick = time.Minute }},
		{"store", func(c *RunConfig) { c.Store = "postgres" }},
		{"sqlite path", func(c *RunConfig) { c.Store = "sqlite"; c.DBPath = "" }},
		{"log level", func(c *RunConfig) { c.LogLevel = "loud" }},
		{"arena size", func(c *RunConfig) { c.Arena.Width = 0 }},
		{"arena speed", func(c *RunConfig) { c.Arena.Speed = -1 }},
		{"food interval", func(c *RunConfig) { c.Arena.FoodInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cfg := &RunConfig{Population: 5, LogLevel: " Info "}
	cfg.Normalize()
	if cfg.Population != 6 {
		t.Fatalf("population: %d", cfg.Population)
	}
	if !slices.Equal(cfg.Layers, DefaultLayers()) || cfg.Workers != 1 || cfg.Store != "memory" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected normalized config: %+v", cfg)
	}
}

func TestValidateBackend(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateBackend(); err != nil {
		t.Fatalf("default backend invalid: %v", err)
	}

	cfg.Generations = 0
	if err := cfg.ValidateBackend(); err != nil {
		t.Fatalf("backend validation should ignore run settings: %v", err)
	}

	cfg.LogLevel = "verbose"
	if err := cfg.ValidateBackend(); err == nil {
		t.Fatal("expected invalid log level error")
	}
	cfg.LogLevel = "debug"
	cfg.Store = "sqlite"
	cfg.DBPath = ""
	if err := cfg.ValidateBackend(); err == nil {
		t.Fatal("expected missing db_path error")
	}
}

func TestClone(t *testing.T) {
	cfg := Default()
	dup := cfg.Clone()
	dup.Layers[0] = 7
	dup.Seed = 99
	if cfg.Layers[0] != 1 || cfg.Seed != 1 {
		t.Fatalf("clone shares state with source: %+v", cfg)
	}
}
