package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collector:\n  url: http://collector.local/\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Server.CacheTTL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "havens.db", cfg.Database.DSN)
	assert.Equal(t, 5*time.Second, cfg.Engagement.Delay)
	assert.Equal(t, 24*time.Hour, cfg.Engagement.Cooldown)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.IdleTTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, "http://collector.local/", cfg.Collector.URL)
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := Load("config.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, "https://partner.example/book", cfg.Affiliate.BookingURL)
	assert.Equal(t, 2, cfg.WorkerPool.Size)
	assert.Equal(t, 3600, cfg.Push.TTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
