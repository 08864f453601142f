package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServer_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 100, cfg.HTTP.RateLimit)
	assert.Equal(t, time.Second, cfg.DedupWindow)
	assert.Contains(t, cfg.Database.URL, "postgres://")
}

func TestLoadServer_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_PORT", "9000")
	t.Setenv("SUBMIT_DEDUP_WINDOW", "5s")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.DedupWindow)
}

func TestLoadServer_InvalidPort(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_PORT", "70000")

	_, err := LoadServer()
	assert.Error(t, err)
}

func TestLoadWorker(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WORKER_STAGE_DELAY", "250ms")

	cfg, err := LoadWorker()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pool.Size)
	assert.Equal(t, 250*time.Millisecond, cfg.Pool.StageDelay)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoadClient(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JOBDECK_SIMULATE", "true")
	t.Setenv("JOBDECK_DETAIL_INTERVAL", "2s")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, 2*time.Second, cfg.DetailInterval)
	assert.Equal(t, time.Minute, cfg.BulkInterval)
	assert.Equal(t, time.Second, cfg.DebounceWindow)
}

func TestLoadClient_RejectsZeroInterval(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JOBDECK_BULK_INTERVAL", "0s")

	_, err := LoadClient()
	assert.Error(t, err)
}
