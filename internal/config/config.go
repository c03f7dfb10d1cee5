// Package config provides configuration for the stage transfer layer.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/stagelink/stagelink/internal/constants"
)

// Config holds transport and transfer settings shared by all storage
// providers. Transport clients are built fresh from this configuration on
// every logical operation; nothing here is mutated after construction.
type Config struct {
	// Parallelism bounds the connection count of each transport client.
	Parallelism int

	// MaxDownloadRetries is the attempt budget handed to the resilient
	// download controller. A value of 1 or less disables buffering and
	// retries on the read path.
	MaxDownloadRetries int

	// Proxy settings (applied to every transport client before use)
	ProxyMode     string // "no-proxy", "system", "basic", or "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // comma-separated bypass list (hosts/CIDRs)
}

// Default returns a Config with defaults from the constants package.
func Default() *Config {
	return &Config{
		Parallelism:        constants.DefaultParallelism,
		MaxDownloadRetries: constants.DefaultDownloadRetries,
		ProxyMode:          "no-proxy",
	}
}

// FromEnv returns a Config with defaults overridden from STAGELINK_*
// environment variables.
func FromEnv() (*Config, error) {
	cfg := Default()

	if v := os.Getenv("STAGELINK_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid STAGELINK_PARALLELISM %q", v)
		}
		cfg.Parallelism = n
	}
	if v := os.Getenv("STAGELINK_MAX_DOWNLOAD_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid STAGELINK_MAX_DOWNLOAD_RETRIES %q", v)
		}
		cfg.MaxDownloadRetries = n
	}
	if v := os.Getenv("STAGELINK_PROXY_MODE"); v != "" {
		cfg.ProxyMode = v
	}
	if v := os.Getenv("STAGELINK_PROXY_HOST"); v != "" {
		cfg.ProxyHost = v
	}
	if v := os.Getenv("STAGELINK_PROXY_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid STAGELINK_PROXY_PORT %q", v)
		}
		cfg.ProxyPort = n
	}
	if v := os.Getenv("STAGELINK_PROXY_USER"); v != "" {
		cfg.ProxyUser = v
	}
	if v := os.Getenv("STAGELINK_PROXY_PASSWORD"); v != "" {
		cfg.ProxyPassword = v
	}
	if v := os.Getenv("STAGELINK_NO_PROXY"); v != "" {
		cfg.NoProxy = v
	}

	return cfg, nil
}
