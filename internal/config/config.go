package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type ConfluenceConfig struct {
	BaseURL        string  `toml:"base_url"`
	Token          string  `toml:"token"`
	VerifySSL      bool    `toml:"verify_ssl"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
}

type GraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ConcurrencyConfig struct {
	Workers            int `toml:"workers"`
	PageTimeoutSeconds int `toml:"page_timeout_seconds"`
}

type CacheConfig struct {
	Size int `toml:"size"`
}

type IncludeConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type Config struct {
	Confluence  ConfluenceConfig  `toml:"confluence"`
	Graph       GraphConfig       `toml:"graph"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Cache       CacheConfig       `toml:"cache"`
	Include     IncludeConfig     `toml:"include"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a usable configuration when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Confluence.TimeoutSeconds == 0 {
		c.Confluence.TimeoutSeconds = 30
	}
	if c.Graph.URI == "" {
		c.Graph.URI = "bolt://localhost:7687"
	}
	if c.Concurrency.Workers == 0 {
		c.Concurrency.Workers = 4
	}
	if c.Concurrency.PageTimeoutSeconds == 0 {
		c.Concurrency.PageTimeoutSeconds = 60
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 256
	}
	if c.Include.TimeoutSeconds == 0 {
		c.Include.TimeoutSeconds = 10
	}
}

// ApplyEnv overrides file values with environment variables when present.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CONFLUENCE_BASE_URL"); v != "" {
		c.Confluence.BaseURL = v
	}
	if v := os.Getenv("CONFLUENCE_TOKEN"); v != "" {
		c.Confluence.Token = v
	}
	if v := os.Getenv("CONFLUENCE_VERIFY_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Confluence.VerifySSL = b
		}
	}
	if v := os.Getenv("GRAPH_URI"); v != "" {
		c.Graph.URI = v
	}
	if v := os.Getenv("GRAPH_USER"); v != "" {
		c.Graph.User = v
	}
	if v := os.Getenv("GRAPH_PASSWORD"); v != "" {
		c.Graph.Password = v
	}
	if v := os.Getenv("EXPORT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Concurrency.Workers = n
		}
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Confluence.BaseURL == "" {
		return fmt.Errorf("confluence base_url is required")
	}
	u, err := url.Parse(c.Confluence.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("confluence base_url %q is not a valid URL", c.Confluence.BaseURL)
	}
	if c.Confluence.Token == "" {
		return fmt.Errorf("confluence token is required")
	}
	return nil
}
