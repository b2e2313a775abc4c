package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"acre/crypto"
)

const (
	defaultListen         = ":8090"
	defaultEngineConfig   = "config.toml"
	defaultKeeperInterval = time.Minute
)

// Config captures the runtime settings for the vault daemon.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	EngineConfig  string          `yaml:"engine_config"`
	Keeper        KeeperConfig    `yaml:"keeper"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	Log           LogConfig       `yaml:"log"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

// TelemetryConfig enables OTLP export. Unset fields fall back to the
// OTEL_EXPORTER_OTLP_* environment.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// KeeperConfig controls the periodic allocation loop.
type KeeperConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	// Address is the maintainer identity the keeper acts as. When empty the
	// operator key from the engine keystore is used.
	Address string `yaml:"address"`
}

// RateLimitConfig throttles the read API per client.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads the YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddress: defaultListen,
		EngineConfig:  defaultEngineConfig,
	}
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	if cfg == nil {
		return
	}
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListen
	}
	cfg.EngineConfig = strings.TrimSpace(cfg.EngineConfig)
	if cfg.EngineConfig == "" {
		cfg.EngineConfig = defaultEngineConfig
	}
	cfg.Keeper.Address = strings.TrimSpace(cfg.Keeper.Address)
	if cfg.Keeper.Interval <= 0 {
		cfg.Keeper.Interval = defaultKeeperInterval
	}
	cfg.Log.Level = strings.TrimSpace(cfg.Log.Level)
	cfg.Log.File = strings.TrimSpace(cfg.Log.File)
	cfg.Telemetry.Endpoint = strings.TrimSpace(cfg.Telemetry.Endpoint)
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return fmt.Errorf("configuration is missing")
	}
	if cfg.Keeper.Address != "" {
		if _, err := crypto.DecodeAddress(cfg.Keeper.Address); err != nil {
			return fmt.Errorf("keeper: address: %w", err)
		}
	}
	if cfg.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate_limit: requests_per_minute must not be negative")
	}
	if cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: burst must not be negative")
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log: rotation limits must not be negative")
	}
	return nil
}

// KeeperAddress returns the configured keeper identity, or the zero address
// when the operator key should be used.
func (cfg Config) KeeperAddress() crypto.Address {
	if cfg.Keeper.Address == "" {
		return crypto.ZeroAddress
	}
	addr, _ := crypto.DecodeAddress(cfg.Keeper.Address)
	return addr
}
