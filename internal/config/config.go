// Package config loads the engine configuration from YAML, filling in
// sensible defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edgewatch/edgewatch/internal/providers"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	// Watchlist is the fixed set of provider asset ids to track.
	Watchlist []string `yaml:"watchlist"`

	RefreshIntervalSeconds int `yaml:"refresh_interval_seconds"`
	TopN                   int `yaml:"top_n"`
	CandleBars             int `yaml:"candle_bars"`

	Provider struct {
		BaseURL               string  `yaml:"base_url"`
		RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
		RPS                   float64 `yaml:"rps"`
		Burst                 int     `yaml:"burst"`
		MaxCandleBars         int     `yaml:"max_candle_bars"`
	} `yaml:"provider"`

	Storage struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		Redis   struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
		Postgres struct {
			DSN string `yaml:"dsn"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Server struct {
		Host                string `yaml:"host"`
		Port                int    `yaml:"port"`
		ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
	} `yaml:"server"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	c := &Config{
		Watchlist: []string{
			"bitcoin", "ethereum", "solana", "ripple", "cardano",
			"dogecoin", "avalanche-2", "chainlink", "polkadot", "litecoin",
			"uniswap", "near", "aptos", "arbitrum", "optimism",
		},
		RefreshIntervalSeconds: 300,
		TopN:                   10,
		CandleBars:             72,
	}
	p := providers.DefaultConfig()
	c.Provider.BaseURL = p.BaseURL
	c.Provider.RequestTimeoutSeconds = int(p.RequestTimeout / time.Second)
	c.Provider.RPS = p.RPS
	c.Provider.Burst = p.Burst
	c.Provider.MaxCandleBars = p.MaxCandleBars

	c.Storage.Backend = BackendFile
	c.Storage.Path = "edgewatch-state.json"
	c.Storage.Redis.Addr = "localhost:6379"

	c.Server.Host = "127.0.0.1"
	c.Server.Port = 8090
	c.Server.ReadTimeoutSeconds = 10
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	return c
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.Watchlist) == 0 {
		return fmt.Errorf("watchlist must not be empty")
	}
	if c.RefreshIntervalSeconds < 10 {
		return fmt.Errorf("refresh interval must be at least 10s, got %ds", c.RefreshIntervalSeconds)
	}
	if c.TopN < 1 {
		return fmt.Errorf("top_n must be at least 1, got %d", c.TopN)
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// RefreshInterval is the refresh cycle cadence.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// ProviderConfig assembles the provider client configuration.
func (c *Config) ProviderConfig() providers.Config {
	return providers.Config{
		BaseURL:        c.Provider.BaseURL,
		RequestTimeout: time.Duration(c.Provider.RequestTimeoutSeconds) * time.Second,
		RPS:            c.Provider.RPS,
		Burst:          c.Provider.Burst,
		MaxCandleBars:  c.Provider.MaxCandleBars,
	}
}
