package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileName is the service configuration file inside the data directory.
const FileName = "config.json"

// Config holds the service settings read from config.json.
type Config struct {
	InstanceName string `json:"instance_name"`
	DataDir      string `json:"-"`

	Address string `json:"address"`
	Port    int    `json:"port"`

	// Requests per second per client. 0 disables rate limiting.
	RateLimit          int  `json:"rate_limit"`
	BehindLoadBalancer bool `json:"behind_load_balancer"`
	// Gzip compression level. 0 disables compression.
	GzipLevel      int `json:"gzip_level"`
	TimeoutSeconds int `json:"timeout_seconds"`

	// How long computed indicator results stay cached.
	CacheTTLSeconds int `json:"cache_ttl_seconds"`

	LogLatency bool   `json:"log_latency"`
	LogLevel   string `json:"log_level"`

	LegendSteps int `json:"legend_steps"`
}

// Default returns the settings used when config.json is absent.
func Default() Config {
	return Config{
		InstanceName:    "choropleth",
		Address:         "localhost",
		Port:            8080,
		TimeoutSeconds:  30,
		CacheTTLSeconds: 300,
		LogLevel:        "info",
		LegendSteps:     6,
	}
}

// Load reads config.json from dataDir over the defaults. A missing file is
// not an error.
func Load(dataDir string) (*Config, error) {
	conf := Default()
	conf.DataDir = dataDir

	f, err := os.Open(filepath.Join(dataDir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return &conf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", FileName, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&conf); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	conf.DataDir = dataDir
	return &conf, nil
}

// Addr is the host:port the server binds.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// CacheTTL is the dataset and result cache expiry. 0 disables caching.
func (c *Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Timeout is the per request context timeout, 0 when disabled.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SlogLevel maps LogLevel onto slog levels. Unknown names mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
