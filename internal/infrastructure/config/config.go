package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Plugins   PluginConfig
	Store     StoreConfig
	Storage   StorageConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// PluginConfig holds plugin runtime configuration.
type PluginConfig struct {
	// ActivateTimeout bounds a single activate/deactivate call
	ActivateTimeout time.Duration `envconfig:"PLUGIN_ACTIVATE_TIMEOUT" default:"3s" yaml:"activate_timeout"`
	// DataCallBudget is the max data-namespace calls per window per plugin
	DataCallBudget int           `envconfig:"PLUGIN_DATA_CALL_BUDGET" default:"60" yaml:"data_call_budget"`
	DataCallWindow time.Duration `envconfig:"PLUGIN_DATA_CALL_WINDOW" default:"10s" yaml:"data_call_window"`
	// APIVersion is the host's plugin API version manifests are checked against
	APIVersion string `envconfig:"PLUGIN_API_VERSION" default:"1.2.0" yaml:"api_version"`
	// AppVersion is the host application version for min_app_version gating
	AppVersion string `envconfig:"APP_VERSION" default:"2.4.1" yaml:"app_version"`
}

// StoreConfig holds plugin catalog client configuration.
type StoreConfig struct {
	URL      string        `envconfig:"STORE_URL" default:"https://plugins.worldloom.app/api/v1" yaml:"url"`
	Timeout  time.Duration `envconfig:"STORE_TIMEOUT" default:"15s" yaml:"timeout"`
	RetryMax int           `envconfig:"STORE_RETRY_MAX" default:"3" yaml:"retry_max"`
}

// StorageConfig holds durable key/value store configuration.
type StorageConfig struct {
	// Backend selects the kv implementation: "memory", "file" or "redis"
	Backend   string `envconfig:"STORAGE_BACKEND" default:"file" yaml:"backend"`
	Path      string `envconfig:"STORAGE_PATH" default:"/var/lib/worldloom/storage" yaml:"path"`
	RedisAddr string `envconfig:"STORAGE_REDIS_ADDR" default:"localhost:6379" yaml:"redis_addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds HTTP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from environment variables. If path is
// non-empty the YAML file there is overlaid on top, so file values win
// over environment and defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load(os.Getenv("WORLDLOOM_CONFIG"))
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8090", Host: "0.0.0.0"},
		Plugins: PluginConfig{
			ActivateTimeout: 3 * time.Second,
			DataCallBudget:  60,
			DataCallWindow:  10 * time.Second,
			APIVersion:      "1.2.0",
			AppVersion:      "2.4.1",
		},
		Store: StoreConfig{
			URL:      "https://plugins.worldloom.app/api/v1",
			Timeout:  15 * time.Second,
			RetryMax: 3,
		},
		Storage: StorageConfig{Backend: "memory", Path: "/var/lib/worldloom/storage", RedisAddr: "localhost:6379"},
		Logging: LogConfig{Level: "info", Development: false},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
