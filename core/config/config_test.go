package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"api-poller/core/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "api_poller", cfg.Database.Name)
	assert.Equal(t, "api-poller-pages", cfg.Storage.Bucket)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.Equal(t, "oho", cfg.Secrets.Prefix)
	assert.Equal(t, 5*time.Minute, cfg.Secrets.CacheTTL)
	assert.Equal(t, 100, cfg.Poller.MaxPageSize)
	assert.Equal(t, 14, cfg.Poller.RetentionDays)
	assert.False(t, cfg.Poller.AllowDeactivation)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("POLLER_MAX_PAGE_SIZE", "250")
	t.Setenv("POLLER_ALLOW_DEACTIVATION", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Poller.MaxPageSize)
	assert.True(t, cfg.Poller.AllowDeactivation)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("POLLER_ENV=uat\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("POLLER_ENV")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "uat", cfg.Poller.Env)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_InvalidPageSize(t *testing.T) {
	t.Setenv("POLLER_MAX_PAGE_SIZE", "0")

	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}
