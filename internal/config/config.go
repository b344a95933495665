package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Dispatch modes select how the representative geometry type of a table is chosen.
const (
	DispatchFirst    = "first"
	DispatchMajority = "majority"
)

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Dispatch DispatchConfig `yaml:"dispatch" mapstructure:"dispatch"`
	Summary  SummaryConfig  `yaml:"summary" mapstructure:"summary"`
	Preview  PreviewConfig  `yaml:"preview" mapstructure:"preview"`
	Map      MapConfig      `yaml:"map" mapstructure:"map"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second; 0 disables limiting
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ModelConfig locates the pre-trained model artifact. The path is read once at startup.
type ModelConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// IngestConfig configures vector file loading.
type IngestConfig struct {
	// AssumeCRS is applied to datasets that carry no coordinate reference
	// system (e.g. a shapefile without .prj). Empty means such datasets fail.
	AssumeCRS string `yaml:"assume_crs" mapstructure:"assume_crs"`
}

// DispatchConfig configures geometry-type dispatch.
type DispatchConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// SummaryConfig configures the risk level histogram.
type SummaryConfig struct {
	ZeroFill bool `yaml:"zero_fill" mapstructure:"zero_fill"`
}

// PreviewConfig configures the data preview tables.
type PreviewConfig struct {
	Rows int `yaml:"rows" mapstructure:"rows"`
}

// MapConfig configures the rendered map.
type MapConfig struct {
	Width      int              `yaml:"width" mapstructure:"width"`
	Height     int              `yaml:"height" mapstructure:"height"`
	ZoomStart  int              `yaml:"zoom_start" mapstructure:"zoom_start"`
	Heatmap    HeatmapConfig    `yaml:"heatmap" mapstructure:"heatmap"`
	Choropleth ChoroplethConfig `yaml:"choropleth" mapstructure:"choropleth"`
}

// HeatmapConfig holds heat layer options for point datasets.
type HeatmapConfig struct {
	Radius  int `yaml:"radius" mapstructure:"radius"`
	Blur    int `yaml:"blur" mapstructure:"blur"`
	MaxZoom int `yaml:"max_zoom" mapstructure:"max_zoom"`
}

// ChoroplethConfig holds choropleth layer options for line and polygon datasets.
type ChoroplethConfig struct {
	FillOpacity float64 `yaml:"fill_opacity" mapstructure:"fill_opacity"`
	LineOpacity float64 `yaml:"line_opacity" mapstructure:"line_opacity"`
	Legend      string  `yaml:"legend" mapstructure:"legend"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SUSTAINFIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration produced by Load with no file or environment overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Unmarshalling plain defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("model.path", "model_fire_rf.json")
	v.SetDefault("ingest.assume_crs", "")
	v.SetDefault("dispatch.mode", DispatchFirst)
	v.SetDefault("summary.zero_fill", false)
	v.SetDefault("preview.rows", 5)
	v.SetDefault("map.width", 900)
	v.SetDefault("map.height", 500)
	v.SetDefault("map.zoom_start", 8)
	v.SetDefault("map.heatmap.radius", 15)
	v.SetDefault("map.heatmap.blur", 10)
	v.SetDefault("map.heatmap.max_zoom", 1)
	v.SetDefault("map.choropleth.fill_opacity", 0.7)
	v.SetDefault("map.choropleth.line_opacity", 0.2)
	v.SetDefault("map.choropleth.legend", "Risk Level")
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []string

	switch c.Dispatch.Mode {
	case DispatchFirst, DispatchMajority:
	default:
		errs = append(errs, fmt.Sprintf("dispatch.mode must be %q or %q, got %q", DispatchFirst, DispatchMajority, c.Dispatch.Mode))
	}
	if c.Preview.Rows <= 0 {
		errs = append(errs, "preview.rows must be > 0")
	}
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		errs = append(errs, "map.width and map.height must be > 0")
	}
	if op := c.Map.Choropleth.FillOpacity; op < 0 || op > 1 {
		errs = append(errs, "map.choropleth.fill_opacity must be between 0 and 1")
	}
	if op := c.Map.Choropleth.LineOpacity; op < 0 || op > 1 {
		errs = append(errs, "map.choropleth.line_opacity must be between 0 and 1")
	}
	if c.Map.Heatmap.Radius <= 0 {
		errs = append(errs, "map.heatmap.radius must be > 0")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
