// Package config handles environment and file configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults used when neither environment nor config file say otherwise.
const (
	DefaultEndpoint = "https://query.wikidata.org/sparql"
	DefaultTimeout  = 20 * time.Second
	DefaultCacheTTL = 5 * time.Minute
)

// Config holds the runtime settings for the SPARQL backends.
type Config struct {
	Endpoint  string
	Timeout   time.Duration
	CachePath string
	CacheTTL  time.Duration
}

// Load creates a Config from environment variables with defaults.
// SPARQL_ENDPOINT names the endpoint URL; SPARQL_TIMEOUT_SECONDS bounds the
// outbound HTTP call; SPARQL_CACHE_PATH enables the bbolt response cache and
// SPARQL_CACHE_TTL sets its entry lifetime.
func Load() *Config {
	cfg := &Config{
		Endpoint: DefaultEndpoint,
		Timeout:  DefaultTimeout,
		CacheTTL: DefaultCacheTTL,
	}

	if v := strings.TrimSpace(os.Getenv("SPARQL_ENDPOINT")); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("SPARQL_TIMEOUT_SECONDS")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Timeout = time.Duration(secs) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("SPARQL_CACHE_PATH")); v != "" {
		cfg.CachePath = v
	}
	if v := strings.TrimSpace(os.Getenv("SPARQL_CACHE_TTL")); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil && ttl > 0 {
			cfg.CacheTTL = ttl
		}
	}

	return cfg
}

// ApplyEntry layers a provider file entry beneath the environment: a file
// value is used only where the corresponding environment variable is unset,
// so precedence stays env > file > default.
func (c *Config) ApplyEntry(e ProviderEntry) {
	if e.Endpoint != "" && os.Getenv("SPARQL_ENDPOINT") == "" {
		c.Endpoint = e.Endpoint
	}
	if e.TimeoutSeconds > 0 && os.Getenv("SPARQL_TIMEOUT_SECONDS") == "" {
		c.Timeout = time.Duration(e.TimeoutSeconds) * time.Second
	}
	if e.CachePath != "" && os.Getenv("SPARQL_CACHE_PATH") == "" {
		c.CachePath = e.CachePath
	}
	if e.CacheTTL != "" && os.Getenv("SPARQL_CACHE_TTL") == "" {
		if ttl, err := time.ParseDuration(e.CacheTTL); err == nil && ttl > 0 {
			c.CacheTTL = ttl
		}
	}
}
