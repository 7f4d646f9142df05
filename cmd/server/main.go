package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forum-session-demo/backend/pkg/config"
	"forum-session-demo/backend/pkg/di"
	"forum-session-demo/backend/pkg/logger"
	"forum-session-demo/backend/pkg/router"
	"forum-session-demo/backend/shared/observability"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	appLog := logger.New(logConfig)
	logger.SetGlobal(appLog)

	appLog.Info("starting forum session engine",
		"env", cfg.Server.Env,
		"forum", cfg.Forum.BaseURL,
	)

	shutdownTracing := observability.SetupTracing("forum-session-engine", appLog)
	defer shutdownTracing()
	if cfg.Metrics.Enabled {
		observability.SetupPrometheusMetrics(cfg.Metrics.Addr, appLog)
	}

	container, err := di.New(cfg, appLog)
	if err != nil {
		appLog.LogError(err, "failed to initialize dependency container")
		os.Exit(1)
	}

	r := router.New(container)
	r.SetupRoutes()
	if cfg.OpenAPISchemaPath != "" {
		r.AddOpenAPIValidation(cfg.OpenAPISchemaPath)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	go func() {
		appLog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.LogError(err, "server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLog.LogError(err, "server forced to shutdown")
	}

	appLog.Info("server exited gracefully")
}
