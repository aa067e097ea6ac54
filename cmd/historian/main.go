// cmd/historian is an asynchronous historian service that pops game actions from a Redis
// queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/daifugo/internal/cache"
	"github.com/jason-s-yu/daifugo/internal/config"
	"github.com/jason-s-yu/daifugo/internal/database"
	"github.com/jason-s-yu/daifugo/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, database.DSNFromEnv())
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	store := database.NewActionStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("failed to create schema")
	}

	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	queue, err := cache.NewActionQueue(redisAddr, cfg.RedisDB, cfg.QueueName)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer queue.Close()

	logger.WithField("queue", cfg.QueueName).Info("consuming game actions")
	historian.NewService(queue, store, cfg.Historian, logger).Run(ctx)
	logger.Info("historian shutdown complete")
}
