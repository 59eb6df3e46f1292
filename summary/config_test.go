package summary

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
maxRangeDays: 90
lruCapacity: 50
redis:
  enabled: true
  addr: cache.internal:6379
  timeout: 500ms
file:
  enabled: true
  dir: /var/cache/calsummary
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.MaxRangeDays)
	assert.Equal(t, 50, cfg.LRUCapacity)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.Redis.Timeout)
	assert.True(t, cfg.File.Enabled)
	assert.Equal(t, "/var/cache/calsummary", cfg.File.Dir)

	// Omitted fields keep their defaults.
	assert.True(t, cfg.Enabled)
	assert.Equal(t, DefaultConfig.StaleEvictThreshold, cfg.StaleEvictThreshold)
	assert.Equal(t, DefaultConfig.AnchorMonthsAfter, cfg.AnchorMonthsAfter)
	assert.Equal(t, DefaultConfig.Redis.TTL, cfg.Redis.TTL)
	assert.Equal(t, DefaultConfig.File.Shards, cfg.File.Shards)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
