package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reparoja/reparoja-ai-platform/internal/api/router"
	"github.com/reparoja/reparoja-ai-platform/internal/app/bootstrap"
	appconfig "github.com/reparoja/reparoja-ai-platform/internal/config"
	"github.com/reparoja/reparoja-ai-platform/internal/http/handlers"
	"github.com/reparoja/reparoja-ai-platform/internal/messaging"
	"github.com/reparoja/reparoja-ai-platform/internal/orders"
	"github.com/reparoja/reparoja-ai-platform/internal/policies"
	"github.com/reparoja/reparoja-ai-platform/internal/webchat"
	"github.com/reparoja/reparoja-ai-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reparoja-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, false)
	if redisClient == nil {
		logger.Error("redis is required; set REDIS_ADDR")
		os.Exit(1)
	}
	sqlDB := bootstrap.BuildSQLDB(cfg, logger)
	pgxPool := bootstrap.BuildPgxPool(ctx, cfg, logger)

	registry := prometheus.NewRegistry()
	engine, err := bootstrap.BuildEngine(ctx, cfg, bootstrap.EngineDeps{
		Redis:    redisClient,
		SQLDB:    sqlDB,
		PgxPool:  pgxPool,
		Registry: registry,
	}, logger)
	if err != nil {
		logger.Error("failed to build conversation engine", "error", err)
		os.Exit(1)
	}

	dispatcher, err := bootstrap.BuildDispatcher(ctx, cfg, engine, logger)
	if err != nil {
		logger.Error("failed to build dispatcher", "error", err)
		os.Exit(1)
	}

	var adminOrders *handlers.AdminOrdersHandler
	if pgxPool != nil {
		adminOrders = handlers.NewAdminOrdersHandler(orders.NewStore(pgxPool), logger)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		Messaging:          messaging.NewHandler(cfg.TwilioAuthToken, dispatcher, logger),
		Conversations:      handlers.NewMessageHandler(dispatcher, engine, logger),
		Webchat:            webchat.NewHandler(dispatcher, engine, nil, logger),
		AdminPolicies:      handlers.NewAdminPoliciesHandler(policies.NewStore(sqlDB), logger),
		AdminOrders:        adminOrders,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		WebhookRate:        cfg.WebhookRate,
		WebhookBurst:       cfg.WebhookBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher shutdown failed", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
