package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("defaults differ (-want +got):\n%s", diff)
	}
	require.NoError(t, cfg.Validate())
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plantsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  calc_window: 30s
logging:
  level: debug
defaults:
  plant_type: ITER_R=6m
  fuel: 0.4
  sliders: {outer: 20, inner: 20, top_inner: 31, top_outer: 17}
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.CalcWindow)
	assert.Equal(t, 120, cfg.Server.CalcRate, "unset keys keep defaults")
	assert.Equal(t, "ITER_R=6m", cfg.Defaults.PlantType)
	assert.Equal(t, 0.4, cfg.Defaults.Fuel)
	assert.Equal(t, 5.3, cfg.Defaults.Field)
	assert.Equal(t, 31, cfg.Defaults.Sliders.TopInner)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PLANTSIM_PORT", "7000")
	t.Setenv("PLANTSIM_DB", "/tmp/x.db")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example,")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.Path)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)

	t.Setenv("PLANTSIM_PORT", "eighty")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"rate", func(c *Config) { c.Server.CalcRate = 0 }},
		{"window", func(c *Config) { c.Server.CalcWindow = 0 }},
		{"storage", func(c *Config) { c.Storage.Path = "" }},
		{"level", func(c *Config) { c.Logging.Level = "loud" }},
		{"iterations", func(c *Config) { c.Engine.MaxIteration = -1 }},
		{"plant", func(c *Config) { c.Defaults.PlantType = "ITER_R=4m" }},
		{"field", func(c *Config) { c.Defaults.Field = 9 }},
		{"power", func(c *Config) { c.Defaults.Power = 0 }},
		{"fuel", func(c *Config) { c.Defaults.Fuel = 1.5 }},
		{"slider", func(c *Config) { c.Defaults.Sliders.TopOuter = 41 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "plantsim.yaml")
	want := DefaultConfig()
	want.Server.CORSOrigins = []string{"http://localhost:3000"}
	require.NoError(t, want.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got))
}
