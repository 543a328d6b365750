package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/godwatch.db", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 10*time.Minute, cfg.TickInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RandomOrgKey)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GODWATCH_DB", "/var/lib/godwatch/state.db")
	t.Setenv("GODWATCH_TICK_INTERVAL", "30s")
	t.Setenv("GODWATCH_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/godwatch/state.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.TickInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
}
