// Package config loads application configuration from config.yaml and
// SAFEWALK_* environment variables, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Graph   GraphConfig   `yaml:"graph" mapstructure:"graph"`
	Risk    RiskConfig    `yaml:"risk" mapstructure:"risk"`
	Route   RouteConfig   `yaml:"route" mapstructure:"route"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the crime-event database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`             // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"` // postgres conn string
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// GraphConfig configures street-graph building and caching.
type GraphConfig struct {
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
}

// RiskConfig configures the risk surface and edge assignment.
type RiskConfig struct {
	Bandwidth   float64      `yaml:"bandwidth" mapstructure:"bandwidth"` // meters; 0 = Scott's rule
	BucketHours int          `yaml:"buckets" mapstructure:"buckets"`     // time-bucket width
	Sample      SampleConfig `yaml:"sample" mapstructure:"sample"`
}

// SampleConfig configures per-edge density sampling.
type SampleConfig struct {
	StepMeters float64 `yaml:"step_meters" mapstructure:"step_meters"`
	Reduce     string  `yaml:"reduce" mapstructure:"reduce"` // "mean" or "max"
}

// RouteConfig configures the route search.
type RouteConfig struct {
	Alpha         float64 `yaml:"alpha" mapstructure:"alpha"`
	Beta          float64 `yaml:"beta" mapstructure:"beta"`
	SnapMaxMeters float64 `yaml:"snap_max_meters" mapstructure:"snap_max_meters"`
	MaxExpansions int     `yaml:"max_expansions" mapstructure:"max_expansions"`
	AStar         bool    `yaml:"astar" mapstructure:"astar"`
}

// GeocodeConfig configures the geocoding cascade.
type GeocodeConfig struct {
	Providers    []string `yaml:"providers" mapstructure:"providers"` // cascade order
	CacheEnabled bool     `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CacheTTLDays int      `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
}

// FetchConfig configures dataset downloads.
type FetchConfig struct {
	TempDir    string `yaml:"temp_dir" mapstructure:"temp_dir"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration for the given command mode. Modes:
// "route", "evaluate", "serve", "crimes", "graph".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "route", "evaluate", "serve":
		if c.Route.Alpha < 0 || c.Route.Beta < 0 {
			problems = append(problems, "route.alpha and route.beta must be >= 0")
		}
		if c.Route.Alpha == 0 && c.Route.Beta == 0 {
			problems = append(problems, "route.alpha and route.beta must not both be zero")
		}
		if c.Route.SnapMaxMeters <= 0 {
			problems = append(problems, "route.snap_max_meters must be > 0")
		}
		if c.Risk.Sample.StepMeters <= 0 {
			problems = append(problems, "risk.sample.step_meters must be > 0")
		}
		if r := c.Risk.Sample.Reduce; r != "mean" && r != "max" {
			problems = append(problems, "risk.sample.reduce must be mean or max")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "crimes", "graph":
		// store checks above suffice
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Risk.BucketHours <= 0 || 24%c.Risk.BucketHours != 0 {
		problems = append(problems, "risk.buckets must divide 24")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SAFEWALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "safewalk.db")
	v.SetDefault("graph.cache_dir", ".safewalk-cache")
	v.SetDefault("risk.bandwidth", 0.0) // 0 = Scott's rule
	v.SetDefault("risk.buckets", 4)
	v.SetDefault("risk.sample.step_meters", 25.0)
	v.SetDefault("risk.sample.reduce", "mean")
	v.SetDefault("route.alpha", 1.0)
	v.SetDefault("route.beta", 1.0)
	v.SetDefault("route.snap_max_meters", 500.0)
	v.SetDefault("route.max_expansions", 5_000_000)
	v.SetDefault("route.astar", false)
	v.SetDefault("geocode.providers", []string{"census", "nominatim"})
	v.SetDefault("geocode.cache_enabled", true)
	v.SetDefault("geocode.cache_ttl_days", 30)
	v.SetDefault("geocode.user_agent", "safewalk-cli/1.0")
	v.SetDefault("fetch.temp_dir", "/tmp/safewalk")
	v.SetDefault("fetch.max_retries", 3)
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
