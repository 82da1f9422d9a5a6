// Package config loads server configuration from a YAML file with
// environment-variable overrides for credentials and the listen address.
package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Duration wraps time.Duration so YAML values like "7d" stay readable
// as "168h" strings instead of nanosecond integers.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string ("30s", "168h").
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the top-level server configuration.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string `yaml:"listen_addr"`

	Log      Log      `yaml:"log"`
	Cache    Cache    `yaml:"cache"`
	Listing  Listing  `yaml:"listing"`
	Profiles Profiles `yaml:"profiles"`
}

// Log controls structured logging.
type Log struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// Cache selects and tunes the listing cache backend.
type Cache struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	// Path is the SQLite database file. Ignored for the memory backend.
	Path string `yaml:"path"`
	// TTL is how long a cached listing stays fresh.
	TTL Duration `yaml:"ttl"`
}

// Listing tunes directory listings.
type Listing struct {
	// PageSize is the number of entries per page.
	PageSize int `yaml:"page_size"`
	// Filter is "media" (images and videos only) or "all".
	Filter string `yaml:"filter"`
	// SignTTL is the lifetime of generated signed URLs.
	SignTTL Duration `yaml:"sign_ttl"`
}

// Profiles configures connection-profile persistence.
type Profiles struct {
	// Dir is the directory holding profile state files.
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		Log: Log{
			Level:  "info",
			Format: "json",
		},
		Cache: Cache{
			Backend: "memory",
			Path:    "s3hub-cache.db",
			TTL:     Duration(7 * 24 * time.Hour),
		},
		Listing: Listing{
			PageSize: 10,
			Filter:   "media",
			SignTTL:  Duration(time.Hour),
		},
		Profiles: Profiles{
			Dir: "profiles",
		},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty
// path returns the defaults untouched. S3HUB_LISTEN_ADDR overrides the
// listen address either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if addr := os.Getenv("S3HUB_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Listing.Filter {
	case "media", "all":
	default:
		return fmt.Errorf("unknown listing filter %q", c.Listing.Filter)
	}
	if c.Listing.PageSize < 1 {
		return fmt.Errorf("page_size must be positive, got %d", c.Listing.PageSize)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Listing.SignTTL <= 0 {
		return fmt.Errorf("sign_ttl must be positive")
	}
	return nil
}
