// File: internal/config/config.go
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LockerConfig points at the external vault for raw instrument data. When
// disabled, instrument records are synthesized locally and nothing leaves
// the process.
type LockerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
}

// TokenizationFilter records, per connector, whether connector-issued tokens
// are long-lived and may be reused across attempts.
type TokenizationFilter struct {
	LongLivedToken bool `yaml:"long_lived_token"`
}

// ConnectorSettings is the explicit per-connector endpoint snapshot handed
// to adapters; nothing about a connector is ambient global state.
type ConnectorSettings struct {
	BaseURL string `yaml:"base_url"`
}

type RoutingConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type Config struct {
	Log          LogConfig                     `yaml:"log"`
	Web          WebConfig                     `yaml:"web"`
	Database     DatabaseConfig                `yaml:"database"`
	Redis        RedisConfig                   `yaml:"redis"`
	Locker       LockerConfig                  `yaml:"locker"`
	Tokenization map[string]TokenizationFilter `yaml:"tokenization"`
	Connectors   map[string]ConnectorSettings  `yaml:"connectors"`
	Routing      RoutingConfig                 `yaml:"routing"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LongLivedToken reports the tokenization filter for a connector, defaulting
// to single-use when the connector is not listed.
func (c *Config) LongLivedToken(connector string) bool {
	f, ok := c.Tokenization[connector]
	return ok && f.LongLivedToken
}

// ConnectorBaseURL returns the configured base URL for a connector.
func (c *Config) ConnectorBaseURL(connector string) string {
	return c.Connectors[connector].BaseURL
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 24 * time.Hour
	}
	if cfg.Routing.CacheTTL <= 0 {
		cfg.Routing.CacheTTL = 5 * time.Minute
	}
}
