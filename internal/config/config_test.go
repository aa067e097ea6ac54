package config

import (
	"testing"
	"time"

	"github.com/jason-s-yu/daifugo/internal/cache"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "READ_TIMEOUT", "WRITE_TIMEOUT", "REDIS_ADDR", "REDIS_DB",
		"HISTORIAN_QUEUE_NAME", "TOKEN_EXPIRE_TIME", "JWT_PRIVATE_KEY_PATH", "JWT_PUBLIC_KEY_PATH",
		"MIN_PLAYERS", "MAX_PLAYERS", "FEW_PLAYERS_MAX", "RETAIN_ROLE_HISTORY",
		"HISTORIAN_BATCH_SIZE", "HISTORIAN_FLUSH_MS", "GAME_INACTIVITY_TIMEOUT_SEC", "HISTORIAN_MAX_ATTEMPTS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 60*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, cache.DefaultQueueName, cfg.QueueName)
	assert.Zero(t, cfg.TokenExpire)
	assert.Equal(t, 3, cfg.Rules.MinPlayers)
	assert.Equal(t, 8, cfg.Rules.MaxPlayers)
	assert.True(t, cfg.Rules.RetainRoleHistory)
	assert.Equal(t, 20, cfg.Historian.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Historian.FlushDelay)
	assert.Equal(t, 10*time.Minute, cfg.Historian.Inactivity)
	assert.Equal(t, 3, cfg.Historian.MaxAttempts)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("READ_TIMEOUT", "90")
	t.Setenv("WRITE_TIMEOUT", "250ms")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("TOKEN_EXPIRE_TIME", "2h")
	t.Setenv("MAX_PLAYERS", "6")
	t.Setenv("RETAIN_ROLE_HISTORY", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 90*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.WriteTimeout)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Zero(t, cfg.RedisDB)
	assert.Equal(t, 2*time.Hour, cfg.TokenExpire)
	assert.Equal(t, 6, cfg.Rules.MaxPlayers)
	assert.False(t, cfg.Rules.RetainRoleHistory)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"LOG_LEVEL", "loud"},
		{"TOKEN_EXPIRE_TIME", "soon"},
		{"MIN_PLAYERS", "2"},
		{"MAX_PLAYERS", "20"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewTokenIssuerGeneratesKeys(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	ti, err := cfg.NewTokenIssuer()
	require.NoError(t, err)
	token, err := ti.CreateJWT("abc")
	require.NoError(t, err)
	sub, err := ti.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", sub)
}
