package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory.
const DefaultConfigFile = "sitetranslate.yaml"

// ErrConfigNotFound is returned when a config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// LoadFile reads a YAML config file over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// FindConfigFile returns the config file to use, or "" for none. An explicit
// path wins; otherwise ./sitetranslate.yaml, then the per-user config file.
func FindConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cwd, err := os.Getwd(); err == nil {
		if p := filepath.Join(cwd, DefaultConfigFile); fileExists(p) {
			return p
		}
	}
	if p := DefaultConfigPath(); fileExists(p) {
		return p
	}
	return ""
}

// Load builds the effective configuration: defaults, then the config file,
// then environment variables. An explicit path that does not exist is an error.
func Load(explicit string) (*Config, error) {
	cfg := Default()
	if path := FindConfigFile(explicit); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides values from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: invalid PORT %q", v)
		}
		c.Server.Port = port
	}
	str("PUBLIC_BASE_URL", &c.Server.PublicBaseURL)
	str("UPSTREAM_SCHEME", &c.Server.UpstreamScheme)

	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Database.URL = v
		c.Database.Driver = DriverPostgres
	}
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("SQLITE_PATH", &c.Database.SQLitePath)

	if v, ok := lookup("CRAWL_MAX_PAGES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: invalid CRAWL_MAX_PAGES %q", v)
		}
		c.Crawl.MaxPages = n
	}

	str("TRANSLATION_PROVIDER", &c.Translation.Provider)
	str("TRANSLATE_API_URL", &c.Translation.BaseURL)
	str("TRANSLATE_API_KEY", &c.Translation.APIKey)
	str("GEMINI_API_KEY", &c.Translation.GeminiAPIKey)
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Translation.Cache.RedisAddr = v
		c.Translation.Cache.Backend = CacheRedis
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
