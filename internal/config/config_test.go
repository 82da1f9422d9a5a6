package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.TTL.Std())
	assert.Equal(t, 10, cfg.Listing.PageSize)
	assert.Equal(t, "media", cfg.Listing.Filter)
	assert.Equal(t, time.Hour, cfg.Listing.SignTTL.Std())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9090"
log:
  level: debug
  format: console
cache:
  backend: sqlite
  path: /tmp/cache.db
  ttl: 48h
listing:
  page_size: 25
  filter: all
  sign_ttl: 30m
profiles:
  dir: /var/lib/s3hub
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, "/tmp/cache.db", cfg.Cache.Path)
	assert.Equal(t, 48*time.Hour, cfg.Cache.TTL.Std())
	assert.Equal(t, 25, cfg.Listing.PageSize)
	assert.Equal(t, "all", cfg.Listing.Filter)
	assert.Equal(t, 30*time.Minute, cfg.Listing.SignTTL.Std())
	assert.Equal(t, "/var/lib/s3hub", cfg.Profiles.Dir)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "listen_addr: \":3000\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 10, cfg.Listing.PageSize)
}

func TestEnvOverridesListenAddr(t *testing.T) {
	t.Setenv("S3HUB_LISTEN_ADDR", ":7777")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.ListenAddr)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad backend":  "cache:\n  backend: redis\n",
		"bad filter":   "listing:\n  filter: none\n",
		"bad pagesize": "listing:\n  page_size: 0\n",
		"bad duration": "cache:\n  ttl: soon\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
