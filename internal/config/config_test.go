// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRedisTimeoutDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, 3*time.Second, cfg.Redis.ReadTimeout)
	assert.Equal(t, 3*time.Second, cfg.Redis.WriteTimeout)
}

func TestLoadRedisTimeoutOverrides(t *testing.T) {
	t.Setenv("REDIS_DIAL_TIMEOUT", "10s")
	t.Setenv("REDIS_READ_TIMEOUT", "1500ms")
	t.Setenv("REDIS_WRITE_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Redis.ReadTimeout)
	assert.Equal(t, 2*time.Second, cfg.Redis.WriteTimeout)
}

func TestGetRedisAddr(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Redis.Host+":"+cfg.Redis.Port, cfg.GetRedisAddr())
}
