// Package config loads run configuration for the trainer, the headless arena
// and the history store. Sources are applied in order: defaults, then a YAML or
// INI file, then MICROEVO_* environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"microevo/internal/logging"
	"microevo/internal/storage"
)

// RunConfig contains every setting of a training run.
type RunConfig struct {
	// Layers is the network topology: input, hidden..., output.
	Layers []int `yaml:"layers" ini:"layers" delim:","`

	// Population is rounded up to the next even number.
	Population int `yaml:"population" ini:"population"`

	// TrainTime is the length of one training window.
	TrainTime time.Duration `yaml:"train_time" ini:"train_time"`

	// EarlyMutationGenerations keeps mutating the elite half while the
	// generation counter is below it. Negative disables it.
	EarlyMutationGenerations int `yaml:"early_mutation_generations" ini:"early_mutation_generations"`

	// Generations is the number of finished windows a headless run trains for.
	Generations int `yaml:"generations" ini:"generations"`

	// Tick is the fixed simulation step of a headless run.
	Tick time.Duration `yaml:"tick" ini:"tick"`

	Seed    int64 `yaml:"seed" ini:"seed"`
	Workers int   `yaml:"workers" ini:"workers"`

	// Store selects the history backend: "memory" or "sqlite".
	Store  string `yaml:"store" ini:"store"`
	DBPath string `yaml:"db_path" ini:"db_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" ini:"log_level"`

	Arena ArenaConfig `yaml:"arena" ini:"arena"`
}

// ArenaConfig shapes the headless seek environment.
type ArenaConfig struct {
	Width  float64 `yaml:"width" ini:"width"`
	Height float64 `yaml:"height" ini:"height"`
	Speed  float64 `yaml:"speed" ini:"speed"`
	// TurnRate is the maximum heading change in radians per second.
	TurnRate     float64       `yaml:"turn_rate" ini:"turn_rate"`
	FoodInterval time.Duration `yaml:"food_interval" ini:"food_interval"`
}

func DefaultLayers() []int {
	return []int{1, 10, 10, 1}
}

// Default returns a RunConfig with the reference scene's settings.
func Default() *RunConfig {
	return &RunConfig{
		Layers:                   DefaultLayers(),
		Population:               4,
		TrainTime:                25 * time.Second,
		EarlyMutationGenerations: 5,
		Generations:              10,
		Tick:                     20 * time.Millisecond,
		Seed:                     1,
		Workers:                  1,
		Store:                    storage.DefaultStoreKind(),
		DBPath:                   "microevo.db",
		LogLevel:                 "info",
		Arena: ArenaConfig{
			Width:        20,
			Height:       12,
			Speed:        3,
			TurnRate:     math.Pi,
			FoodInterval: 5 * time.Second,
		},
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// The format follows the extension: .yaml, .yml or .ini. An empty path
// returns the defaults with environment overrides.
func Load(path string) (*RunConfig, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)
	cfg.Normalize()
	return cfg, nil
}

func (c *RunConfig) loadFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	case ".ini":
		file, err := ini.Load(path)
		if err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
		if err := file.MapTo(c); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format: %q", filepath.Ext(path))
	}
	return nil
}

func applyEnvOverrides(c *RunConfig) {
	if v := os.Getenv("MICROEVO_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MICROEVO_STORE"); v != "" {
		c.Store = v
	}
	if v := os.Getenv("MICROEVO_DB_PATH"); v != "" {
		c.DBPath = v
	}
}

// Normalize fills unset values and rounds the population up to an even size.
func (c *RunConfig) Normalize() {
	if len(c.Layers) == 0 {
		c.Layers = DefaultLayers()
	}
	c.Layers = slices.Clone(c.Layers)
	if c.Population > 0 && c.Population%2 != 0 {
		c.Population++
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Store == "" {
		c.Store = storage.DefaultStoreKind()
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that the configuration can drive a run.
func (c *RunConfig) Validate() error {
	for _, width := range c.Layers {
		if width <= 0 {
			return fmt.Errorf("layer widths must be > 0, got %v", c.Layers)
		}
	}
	if len(c.Layers) < 2 {
		return fmt.Errorf("at least an input and an output layer are required, got %v", c.Layers)
	}
	if c.Population <= 0 {
		return fmt.Errorf("population must be > 0, got %d", c.Population)
	}
	if c.TrainTime <= 0 {
		return fmt.Errorf("train_time must be > 0, got %v", c.TrainTime)
	}
	if c.Generations <= 0 {
		return fmt.Errorf("generations must be > 0, got %d", c.Generations)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be > 0, got %v", c.Tick)
	}
	if c.Tick > c.TrainTime {
		return fmt.Errorf("tick %v must not exceed train_time %v", c.Tick, c.TrainTime)
	}
	if err := c.ValidateBackend(); err != nil {
		return err
	}
	if c.Arena.Width <= 0 || c.Arena.Height <= 0 {
		return fmt.Errorf("arena size must be > 0, got %vx%v", c.Arena.Width, c.Arena.Height)
	}
	if c.Arena.Speed < 0 || c.Arena.TurnRate < 0 {
		return fmt.Errorf("arena speed and turn_rate must be >= 0")
	}
	if c.Arena.FoodInterval <= 0 {
		return fmt.Errorf("food_interval must be > 0, got %v", c.Arena.FoodInterval)
	}
	return nil
}

// ValidateBackend checks the settings a client is built from: store, db_path
// and log_level.
func (c *RunConfig) ValidateBackend() error {
	if c.Store != storage.KindMemory && c.Store != storage.KindSQLite {
		return fmt.Errorf("invalid store: %s (valid: memory, sqlite)", c.Store)
	}
	if c.Store == storage.KindSQLite && c.DBPath == "" {
		return fmt.Errorf("db_path is required for the sqlite store")
	}
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// Clone returns a deep copy.
func (c *RunConfig) Clone() *RunConfig {
	out := *c
	out.Layers = slices.Clone(c.Layers)
	return &out
}
