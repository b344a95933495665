package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8501, cfg.Server.Port)
	assert.InDelta(t, 5.0, cfg.Server.RateLimit, 0.001)
	assert.Equal(t, 10, cfg.Server.RateBurst)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "model_fire_rf.json", cfg.Model.Path)
	assert.Empty(t, cfg.Ingest.AssumeCRS)
	assert.Equal(t, DispatchFirst, cfg.Dispatch.Mode)
	assert.False(t, cfg.Summary.ZeroFill)
	assert.Equal(t, 5, cfg.Preview.Rows)
	assert.Equal(t, 900, cfg.Map.Width)
	assert.Equal(t, 500, cfg.Map.Height)
	assert.Equal(t, 8, cfg.Map.ZoomStart)
	assert.Equal(t, 15, cfg.Map.Heatmap.Radius)
	assert.Equal(t, 10, cfg.Map.Heatmap.Blur)
	assert.Equal(t, 1, cfg.Map.Heatmap.MaxZoom)
	assert.InDelta(t, 0.7, cfg.Map.Choropleth.FillOpacity, 0.001)
	assert.InDelta(t, 0.2, cfg.Map.Choropleth.LineOpacity, 0.001)
	assert.Equal(t, "Risk Level", cfg.Map.Choropleth.Legend)
}

func TestDefaultMatchesLoad(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, Default())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
model:
  path: /opt/models/rf.yaml
dispatch:
  mode: majority
summary:
  zero_fill: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/opt/models/rf.yaml", cfg.Model.Path)
	assert.Equal(t, DispatchMajority, cfg.Dispatch.Mode)
	assert.True(t, cfg.Summary.ZeroFill)
	// Defaults still apply for unset values
	assert.Equal(t, 15, cfg.Map.Heatmap.Radius)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
ingest:
  assume_crs: EPSG:3857
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SUSTAINFIRE_LOG_LEVEL", "warn")
	t.Setenv("SUSTAINFIRE_INGEST_ASSUME_CRS", "EPSG:4326")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "EPSG:4326", cfg.Ingest.AssumeCRS)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("SUSTAINFIRE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("dispatch:\n  mode: random\n"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatch.mode")
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [port"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "majority", mutate: func(c *Config) { c.Dispatch.Mode = DispatchMajority }},
		{name: "unknown mode", mutate: func(c *Config) { c.Dispatch.Mode = "last" }, wantErr: "dispatch.mode"},
		{name: "zero preview", mutate: func(c *Config) { c.Preview.Rows = 0 }, wantErr: "preview.rows"},
		{name: "zero width", mutate: func(c *Config) { c.Map.Width = 0 }, wantErr: "map.width"},
		{name: "fill opacity", mutate: func(c *Config) { c.Map.Choropleth.FillOpacity = 1.5 }, wantErr: "fill_opacity"},
		{name: "line opacity", mutate: func(c *Config) { c.Map.Choropleth.LineOpacity = -0.1 }, wantErr: "line_opacity"},
		{name: "radius", mutate: func(c *Config) { c.Map.Heatmap.Radius = 0 }, wantErr: "radius"},
		{name: "rate limit", mutate: func(c *Config) { c.Server.RateLimit = -1 }, wantErr: "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
