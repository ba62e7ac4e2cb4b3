// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// AppName names the config and data directories.
const AppName = "sitetranslate"

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Translation providers.
const (
	ProviderLibreTranslate = "libretranslate"
	ProviderGemini         = "gemini"
	ProviderNone           = "none"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Crawl       CrawlConfig       `yaml:"crawl"`
	Translation TranslationConfig `yaml:"translation"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int `yaml:"port"`
	// PublicBaseURL is used in proxy links; when empty it is derived from each request.
	PublicBaseURL string        `yaml:"public_base_url"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	// UpstreamScheme is used to reach stored domains when rendering.
	UpstreamScheme string `yaml:"upstream_scheme"`
}

// DatabaseConfig selects and locates the repository.
type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	URL        string `yaml:"url"`
	SQLitePath string `yaml:"sqlite_path"`
}

// CrawlConfig bounds crawling and upstream fetches.
type CrawlConfig struct {
	MaxPages      int           `yaml:"max_pages"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	RenderTimeout time.Duration `yaml:"render_timeout"`
	UserAgent     string        `yaml:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
}

// TranslationConfig selects the translation backend.
type TranslationConfig struct {
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	GeminiAPIKey      string        `yaml:"gemini_api_key"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Cache             CacheConfig   `yaml:"cache"`
}

// CacheConfig configures the translation cache.
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	RedisAddr  string        `yaml:"redis_addr"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			UpstreamScheme: "https",
		},
		Database: DatabaseConfig{
			Driver:     DriverSQLite,
			SQLitePath: DefaultSQLitePath(),
		},
		Crawl: CrawlConfig{
			MaxPages:      20,
			FetchTimeout:  5 * time.Second,
			RenderTimeout: 10 * time.Second,
			UserAgent:     "Mozilla/5.0 (compatible; SiteTranslate/1.0)",
			MaxBodyBytes:  5 * 1024 * 1024,
		},
		Translation: TranslationConfig{
			Provider: ProviderLibreTranslate,
			BaseURL:  "http://localhost:5000",
			Timeout:  15 * time.Second,
			Cache: CacheConfig{
				Backend:    CacheMemory,
				TTL:        30 * 24 * time.Hour,
				MaxEntries: 10000,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultSQLitePath is the database file used when no path is configured.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, AppName, AppName+".db")
}

// DefaultConfigPath is the per-user config file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' must be between 1 and 65535")
	}
	if s := c.Server.UpstreamScheme; s != "http" && s != "https" {
		return fmt.Errorf("config error: 'server.upstream_scheme' must be http or https, got %q", s)
	}
	if u := c.Server.PublicBaseURL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return fmt.Errorf("config error: 'server.public_base_url' must be an absolute http(s) URL")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("config error: 'database.url' is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("config error: 'database.sqlite_path' is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config error: unknown database driver %q", c.Database.Driver)
	}

	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("config error: 'crawl.max_pages' must be positive")
	}
	if c.Crawl.FetchTimeout <= 0 || c.Crawl.RenderTimeout <= 0 {
		return fmt.Errorf("config error: crawl timeouts must be positive")
	}
	if c.Crawl.MaxBodyBytes <= 0 {
		return fmt.Errorf("config error: 'crawl.max_body_bytes' must be positive")
	}

	switch c.Translation.Provider {
	case ProviderLibreTranslate:
		if c.Translation.BaseURL == "" {
			return fmt.Errorf("config error: 'translation.base_url' is required for libretranslate")
		}
	case ProviderGemini:
		if c.Translation.GeminiAPIKey == "" {
			return fmt.Errorf("config error: 'translation.gemini_api_key' (or GEMINI_API_KEY) is required for gemini")
		}
	case ProviderNone:
	default:
		return fmt.Errorf("config error: unknown translation provider %q", c.Translation.Provider)
	}
	if c.Translation.Timeout <= 0 {
		return fmt.Errorf("config error: 'translation.timeout' must be positive")
	}
	if c.Translation.RequestsPerSecond < 0 {
		return fmt.Errorf("config error: 'translation.requests_per_second' must be non-negative")
	}

	switch c.Translation.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Translation.Cache.RedisAddr == "" {
			return fmt.Errorf("config error: 'translation.cache.redis_addr' is required for the redis cache")
		}
	default:
		return fmt.Errorf("config error: unknown cache backend %q", c.Translation.Cache.Backend)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("config error: 'log.format' must be json or text")
	}
	return nil
}
