// Package config loads the plantsim YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/tokamak-sim/internal/physics"
	"github.com/talgya/tokamak-sim/internal/plant"
)

// Config is the full plantsim configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Engine   EngineConfig   `yaml:"engine"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int           `yaml:"port"`
	CORSOrigins []string      `yaml:"cors_origins"`
	CalcRate    int           `yaml:"calc_rate"`   // calculations per window per client
	CalcWindow  time.Duration `yaml:"calc_window"` // e.g. "1m"
}

// StorageConfig configures run persistence.
type StorageConfig struct {
	Path     string `yaml:"path"`
	SaveRuns bool   `yaml:"save_runs"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// EngineConfig configures the integrator.
type EngineConfig struct {
	MaxIteration int `yaml:"max_iteration"`
}

// DefaultsConfig holds the starting point of new sessions and CLI runs.
type DefaultsConfig struct {
	PlantType string        `yaml:"plant_type"`
	Field     float64       `yaml:"field"` // T
	Power     float64       `yaml:"power"` // MW
	Fuel      float64       `yaml:"fuel"`  // fuel slider fraction, 0..1
	Sliders   plant.Sliders `yaml:"sliders"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       8080,
			CalcRate:   120,
			CalcWindow: time.Minute,
		},
		Storage: StorageConfig{
			Path:     "data/plant.db",
			SaveRuns: true,
		},
		Logging: LoggingConfig{Level: "info"},
		Engine:  EngineConfig{MaxIteration: 300},
		Defaults: DefaultsConfig{
			PlantType: string(plant.TypeLarge),
			Field:     5.3,
			Power:     50,
			Fuel:      0.1,
			Sliders:   plant.Sliders{Outer: 38, Inner: 36, TopInner: 35, TopOuter: 23},
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PLANTSIM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PLANTSIM_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("PLANTSIM_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.CORSOrigins = origins
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.CalcRate <= 0 {
		return fmt.Errorf("server.calc_rate must be positive, got %d", c.Server.CalcRate)
	}
	if c.Server.CalcWindow <= 0 {
		return fmt.Errorf("server.calc_window must be positive, got %s", c.Server.CalcWindow)
	}
	if c.Storage.SaveRuns && c.Storage.Path == "" {
		return errors.New("storage.path is required when save_runs is enabled")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Engine.MaxIteration < 0 {
		return fmt.Errorf("engine.max_iteration must not be negative, got %d", c.Engine.MaxIteration)
	}

	d := c.Defaults
	if _, ok := plant.Lookup(plant.Type(d.PlantType)); !ok {
		return fmt.Errorf("defaults.plant_type %q unknown (valid: %v)", d.PlantType, plant.Types())
	}
	if d.Field < physics.FieldMin || d.Field > physics.FieldMax {
		return fmt.Errorf("defaults.field %g outside [%g,%g] T", d.Field, physics.FieldMin, physics.FieldMax)
	}
	if d.Power < physics.PowerMin || d.Power > physics.PowerMax {
		return fmt.Errorf("defaults.power %g outside [%g,%g] MW", d.Power, physics.PowerMin, physics.PowerMax)
	}
	if d.Fuel < 0 || d.Fuel > 1 {
		return fmt.Errorf("defaults.fuel %g outside [0,1]", d.Fuel)
	}
	for name, v := range map[string]int{
		"outer": d.Sliders.Outer, "inner": d.Sliders.Inner,
		"top_inner": d.Sliders.TopInner, "top_outer": d.Sliders.TopOuter,
	} {
		if v < 0 || v > physics.SliderMax {
			return fmt.Errorf("defaults.sliders.%s %d outside [0,%d]", name, v, physics.SliderMax)
		}
	}
	return nil
}

// LogLevel parses the configured slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return lvl, nil
}
