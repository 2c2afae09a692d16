package config

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ProviderEntry configures one tool provider.
type ProviderEntry struct {
	Name           string
	Provider       string
	Endpoint       string
	TimeoutSeconds int
	CachePath      string
	CacheTTL       string
}

// ToolsConfig is the parsed provider config file.
type ToolsConfig struct {
	Providers []ProviderEntry
}

// DefaultToolsConfigPath returns the provider config location, tools.toml in
// the given config directory (or the working directory when unset).
func DefaultToolsConfigPath(configDir string) string {
	if configDir == "" {
		wd, _ := os.Getwd()
		return filepath.Join(wd, "tools.toml")
	}
	return filepath.Join(configDir, "tools.toml")
}

// LoadToolsConfig reads a minimal TOML config at path. Supported schema:
// [[tools.providers]] tables with keys: name, provider, endpoint,
// timeout_seconds (int), cache_path, cache_ttl (duration string).
func LoadToolsConfig(path string) (ToolsConfig, error) {
	var cfg ToolsConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inProviders := false
	var cur *ProviderEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case line == "[[tools.providers]]":
			inProviders = true
			cfg.Providers = append(cfg.Providers, ProviderEntry{})
			cur = &cfg.Providers[len(cfg.Providers)-1]
		case strings.HasPrefix(line, "["):
			// other tables not supported; ignore
			inProviders = false
			cur = nil
		default:
			if !inProviders || cur == nil {
				continue
			}
			k, v, ok := splitKV(line)
			if !ok {
				continue
			}
			switch k {
			case "name":
				cur.Name = trimQuotes(v)
			case "provider":
				cur.Provider = trimQuotes(v)
			case "endpoint":
				cur.Endpoint = trimQuotes(v)
			case "timeout_seconds":
				cur.TimeoutSeconds = atoi(v)
			case "cache_path":
				cur.CachePath = trimQuotes(v)
			case "cache_ttl":
				cur.CacheTTL = trimQuotes(v)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, err
	}
	if len(cfg.Providers) == 0 {
		return cfg, errors.New("no tool providers configured")
	}
	return cfg, nil
}

func splitKV(line string) (string, string, bool) {
	idx := strings.Index(line, "=")
	if idx <= 0 {
		return "", "", false
	}
	k := strings.TrimSpace(line[:idx])
	v := strings.TrimSpace(line[idx+1:])
	return k, v, true
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"") && len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

func atoi(s string) int {
	i, _ := strconv.Atoi(strings.TrimSpace(s))
	return i
}
