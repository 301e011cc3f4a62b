package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/reparoja/reparoja-ai-platform/internal/app/bootstrap"
	appconfig "github.com/reparoja/reparoja-ai-platform/internal/config"
	"github.com/reparoja/reparoja-ai-platform/pkg/logging"
)

// Standalone queue consumer. Runs the same engine as the API binary but only
// drains the SQS conversation queue, for deployments that scale webhook
// ingestion and turn processing independently.
func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reparoja-ai-platform conversation worker")

	ctx := context.Background()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, false)
	if redisClient == nil {
		logger.Error("redis is required; set REDIS_ADDR")
		os.Exit(1)
	}

	engine, err := bootstrap.BuildEngine(ctx, cfg, bootstrap.EngineDeps{
		Redis:    redisClient,
		SQLDB:    bootstrap.BuildSQLDB(cfg, logger),
		PgxPool:  bootstrap.BuildPgxPool(ctx, cfg, logger),
		Registry: prometheus.NewRegistry(),
	}, logger)
	if err != nil {
		logger.Error("failed to build conversation engine", "error", err)
		os.Exit(1)
	}

	if cfg.ConversationQueueURL == "" {
		logger.Error("CONVERSATION_QUEUE_URL is required for the worker")
		os.Exit(1)
	}
	cfg.UseMemoryQueue = false

	dispatcher, err := bootstrap.BuildDispatcher(ctx, cfg, engine, logger)
	if err != nil {
		logger.Error("failed to build dispatcher", "error", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("conversation worker stopped")
}
