// Package config reads server and historian settings from the environment.
// Both binaries import godotenv/autoload, so a .env file in the working directory is honored.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/daifugo/internal/auth"
	"github.com/jason-s-yu/daifugo/internal/cache"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/historian"
	"github.com/sirupsen/logrus"
)

// Config is everything either binary needs at startup.
type Config struct {
	Port     string
	LogLevel logrus.Level

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// RedisAddr empty disables the action log.
	RedisAddr string
	RedisDB   int
	QueueName string

	TokenExpire    time.Duration
	PrivateKeyPath string
	PublicKeyPath  string

	Rules     game.Rules
	Historian historian.Config
}

// Load reads the environment. Malformed numbers fall back to their defaults; a bad log
// level, token lifetime or rule set is an error.
func Load() (Config, error) {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		ReadTimeout:    getEnvDuration("READ_TIMEOUT", 60*time.Second),
		WriteTimeout:   getEnvDuration("WRITE_TIMEOUT", 5*time.Second),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		QueueName:      getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
		PrivateKeyPath: os.Getenv("JWT_PRIVATE_KEY_PATH"),
		PublicKeyPath:  os.Getenv("JWT_PUBLIC_KEY_PATH"),
		Historian: historian.Config{
			BatchSize:   getEnvInt("HISTORIAN_BATCH_SIZE", 20),
			FlushDelay:  time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
			Inactivity:  time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
			MaxAttempts: getEnvInt("HISTORIAN_MAX_ATTEMPTS", 3),
		},
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	cfg.TokenExpire, err = auth.ParseTokenExpireTime(os.Getenv("TOKEN_EXPIRE_TIME"))
	if err != nil {
		return Config{}, fmt.Errorf("TOKEN_EXPIRE_TIME: %w", err)
	}

	cfg.Rules = game.DefaultRules()
	cfg.Rules.MinPlayers = getEnvInt("MIN_PLAYERS", cfg.Rules.MinPlayers)
	cfg.Rules.MaxPlayers = getEnvInt("MAX_PLAYERS", cfg.Rules.MaxPlayers)
	cfg.Rules.FewPlayersMax = getEnvInt("FEW_PLAYERS_MAX", cfg.Rules.FewPlayersMax)
	cfg.Rules.RetainRoleHistory = getEnvBool("RETAIN_ROLE_HISTORY", cfg.Rules.RetainRoleHistory)
	if err := cfg.Rules.Validate(); err != nil {
		return Config{}, fmt.Errorf("rules: %w", err)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// NewTokenIssuer loads the signing keys when both paths are set, or generates a pair.
func (c Config) NewTokenIssuer() (*auth.TokenIssuer, error) {
	if c.PrivateKeyPath != "" && c.PublicKeyPath != "" {
		return auth.NewTokenIssuerFromPath(c.PrivateKeyPath, c.PublicKeyPath, c.TokenExpire)
	}
	return auth.NewTokenIssuer(c.TokenExpire)
}

func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}

func getEnvBool(key string, defVal bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defVal
	}
	return v
}

// getEnvDuration accepts a Go duration ("90s") or a bare number of seconds.
func getEnvDuration(key string, defVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defVal
	}
	return d
}
