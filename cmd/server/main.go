// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/daifugo/internal/cache"
	"github.com/jason-s-yu/daifugo/internal/config"
	"github.com/jason-s-yu/daifugo/internal/handlers"
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

	tokens, err := cfg.NewTokenIssuer()
	if err != nil {
		logger.WithError(err).Fatal("failed to set up session tokens")
	}

	gs := handlers.NewGameServer(logger, tokens, cfg.Rules)
	gs.ReadTimeout = cfg.ReadTimeout
	gs.WriteTimeout = cfg.WriteTimeout

	if cfg.RedisAddr != "" {
		queue, err := cache.NewActionQueue(cfg.RedisAddr, cfg.RedisDB, cfg.QueueName)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer queue.Close()
		gs.Actions = queue
		logger.WithField("queue", cfg.QueueName).Info("publishing game actions")
	} else {
		logger.Info("REDIS_ADDR not set, game actions are not recorded")
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handlers.NewMux(gs),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server exited")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
}
