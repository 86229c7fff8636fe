package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvdzapata/EPREL/internal/api"
	"github.com/dvdzapata/EPREL/internal/config"
	"github.com/dvdzapata/EPREL/internal/eprel"
	"github.com/dvdzapata/EPREL/internal/logger"
	"github.com/dvdzapata/EPREL/internal/repository"
	"github.com/dvdzapata/EPREL/internal/service"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.NewFromEnv()
	logger.SetDefault(appLog)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize database")
	}

	jobs := repository.NewJobRepository(db)
	checkpoints := repository.NewCheckpointRepository(db)
	products := repository.NewProductRepository(db)
	groups := repository.NewGroupRepository(db)

	stats := service.NewStatsService(jobs, checkpoints, products, groups)
	client := eprel.NewClient(&eprel.ClientConfig{
		APIKey:  cfg.EPREL.APIKey,
		BaseURL: cfg.EPREL.BaseURL,
		Timeout: cfg.EPREL.RequestTimeout,
	})

	router := api.SetupRouter(stats, client, &cfg.Server, appLog)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLog.WithField("port", cfg.Server.Port).Info("API server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLog.WithError(err).Error("Forced shutdown")
	}
	appLog.Info("Server stopped")
}
