// Package main is the entry point for the Gwin API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gwin/internal/app"
	"gwin/internal/config"
	"gwin/internal/core/localized"
	v1 "gwin/internal/infrastructure/http/v1"
	"gwin/internal/infrastructure/storage/postgres"
	"gwin/pkg/logger"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("GWIN_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting gwin server", "version", version)

	if cfg.Database.DSN == "" {
		logger.Fatal(ctx, "database dsn is not configured", "env", "GWIN_DATABASE_DSN")
	}

	// --- Database and entities ---
	application, err := app.Open(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to open application", "error", err)
	}
	defer application.Close()

	log.Infow("entities registered",
		"entities", application.Factory.Names(),
		"auto_migrate", cfg.Database.AutoMigrate,
	)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Factory:  application.Factory,
		DB:       application.Pool,
		Logger:   log.WithComponent("http"),
		Language: localized.Parse(cfg.Forms.Language),
		PageSize: cfg.Forms.PageSize,
		Version:  version,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	postgres.LogPoolStats(ctx, application.Pool.Pool)
	log.Info("server stopped")
}
