// Package config provides configuration loading and access for the
// simulation engine.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Reaction  ReactionConfig  `yaml:"reaction"`
	Spatial   SpatialConfig   `yaml:"spatial"`
	Movement  MovementConfig  `yaml:"movement"`
	Parallel  ParallelConfig  `yaml:"parallel"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// WorldConfig holds coordinate-map sizing and RNG seeding.
type WorldConfig struct {
	ChunkSide      int32 `yaml:"chunk_side"`
	TickIntervalMS int   `yaml:"tick_interval_ms"`
	Seed           int64 `yaml:"seed"`
}

// ReactionConfig holds reaction-engine timing parameters. RebuildCadenceMS
// is applied by sim.New; FrameCapMS is not read by the reaction engine,
// which always caps its per-step delta at the constant reaction.FrameCap
// (100 ms).
type ReactionConfig struct {
	FrameCapMS       int `yaml:"frame_cap_ms"`
	RebuildCadenceMS int `yaml:"rebuild_cadence_ms"`
}

// SpatialConfig holds secondary spatial index sizing.
type SpatialConfig struct {
	CellSize int32 `yaml:"cell_size"`
}

// MovementConfig holds movement-engine limits. MaxVelocity is checked only
// by Load's parallel-mode validation; the movement engine does not read it
// and uses each particle's own Velocity.Max as its budget ceiling.
type MovementConfig struct {
	MaxVelocity int `yaml:"max_velocity"`
}

// ParallelConfig controls the optional chunked color-class parallelism of
// spec.md §5.
type ParallelConfig struct {
	Enabled bool `yaml:"enabled"`
	Workers int  `yaml:"workers"`
}

// TelemetryConfig holds telemetry reporting parameters.
type TelemetryConfig struct {
	CSVPath string `yaml:"csv_path"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. A malformed file fails
// the whole load (spec.md §7's MalformedDefinitionsFile class): nothing is
// mutated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %q: %w", path, err)
		}
	}

	if cfg.Parallel.Enabled && cfg.Movement.MaxVelocity > int(cfg.World.ChunkSide/2) {
		return nil, fmt.Errorf("config: movement.max_velocity %d exceeds chunk_side/2 %d required for parallel color classes", cfg.Movement.MaxVelocity, cfg.World.ChunkSide/2)
	}

	return cfg, nil
}
