// Package config loads the application configuration from file and
// environment and owns the global logger setup.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Amap       AmapConfig       `yaml:"amap" mapstructure:"amap"`
	Datum      DatumConfig      `yaml:"datum" mapstructure:"datum"`
	Boundaries BoundariesConfig `yaml:"boundaries" mapstructure:"boundaries"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AmapConfig holds the Amap Web Service credentials and pacing limits.
type AmapConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	City       string `yaml:"city" mapstructure:"city"`
	DelayMs    int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
	DailyQuota int    `yaml:"daily_quota" mapstructure:"daily_quota"`
}

// Delay returns the minimum spacing between API calls.
func (c AmapConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// DatumConfig holds the residual offset subtracted after the GCJ-02
// inverse transform. The values are empirical for the target area.
type DatumConfig struct {
	OffsetLng float64 `yaml:"offset_lng" mapstructure:"offset_lng"`
	OffsetLat float64 `yaml:"offset_lat" mapstructure:"offset_lat"`
}

// BoundariesConfig points at the district boundary file.
type BoundariesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ScrapeConfig configures the portal scrape.
type ScrapeConfig struct {
	ResaleURLTemplate string `yaml:"resale_url_template" mapstructure:"resale_url_template"`
	ResalePages       int    `yaml:"resale_pages" mapstructure:"resale_pages"`
	NewDevURLTemplate string `yaml:"newdev_url_template" mapstructure:"newdev_url_template"`
	NewDevPages       int    `yaml:"newdev_pages" mapstructure:"newdev_pages"`
	Referer           string `yaml:"referer" mapstructure:"referer"`
	DelayMs           int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	RetryPauseMs      int    `yaml:"retry_pause_ms" mapstructure:"retry_pause_ms"`
}

// Delay returns the minimum spacing between page fetches.
func (c ScrapeConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// RetryPause returns the extra wait before retrying a failed page.
func (c ScrapeConfig) RetryPause() time.Duration {
	return time.Duration(c.RetryPauseMs) * time.Millisecond
}

// CacheConfig configures the geocode cache database.
type CacheConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// DataConfig names the working files of a run.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the artifact preview server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ESTATEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("amap.base_url", "https://restapi.amap.com")
	v.SetDefault("amap.city", "西安")
	v.SetDefault("amap.delay_ms", 1000)
	v.SetDefault("amap.max_retries", 2)
	v.SetDefault("amap.daily_quota", 0)
	v.SetDefault("datum.offset_lng", 0.0065)
	v.SetDefault("datum.offset_lat", 0.0060)
	v.SetDefault("boundaries.path", "boundaries.yaml")
	v.SetDefault("scrape.resale_url_template", "https://xian.esf.fang.com/housing/482__0_3_0_0_%d_0_0_0/")
	v.SetDefault("scrape.resale_pages", 56)
	v.SetDefault("scrape.newdev_url_template", "https://xian.newhouse.fang.com/house/s/gaoxin/b9%d/")
	v.SetDefault("scrape.newdev_pages", 10)
	v.SetDefault("scrape.referer", "https://xian.esf.fang.com/")
	v.SetDefault("scrape.delay_ms", 2000)
	v.SetDefault("scrape.retry_pause_ms", 5000)
	v.SetDefault("cache.path", "geocache.db")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("data.dir", "data")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	return &cfg, nil
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
