package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/collector/config"
	"news-sentiment-tracker/internal/collector/service"
	"news-sentiment-tracker/pkg/db"
	"news-sentiment-tracker/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the news and price collector service",
	Run:   runServe,
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Runs one collection pass and exits",
	Run:   runCollect,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, appLogger, newsCollector, priceCollector, cleanup := mustInit()
	defer cleanup()

	c := cron.New()

	newsSchedule := cfg.Collector.CollectCron
	if newsSchedule == "" {
		newsSchedule = "@every 30m"
	}
	if _, err := c.AddFunc(newsSchedule, func() {
		if _, err := newsCollector.CollectAll(ctx); err != nil {
			appLogger.Error("Scheduled news collection failed", logger.ErrorField(err))
		}
	}); err != nil {
		appLogger.Fatal("Invalid news collect cron expression", logger.ErrorField(err))
	}

	priceSchedule := cfg.Prices.CollectCron
	if priceSchedule == "" {
		priceSchedule = "@every 6h"
	}
	if _, err := c.AddFunc(priceSchedule, func() {
		if err := priceCollector.CollectAll(ctx); err != nil {
			appLogger.Error("Scheduled price collection failed", logger.ErrorField(err))
		}
	}); err != nil {
		appLogger.Fatal("Invalid price collect cron expression", logger.ErrorField(err))
	}

	c.Start()
	appLogger.Info("Collector service started",
		logger.StringField("news_schedule", newsSchedule),
		logger.StringField("price_schedule", priceSchedule),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down collector service...")
	cancel()
	<-c.Stop().Done()
	appLogger.Info("Collector service stopped.")
}

func runCollect(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, appLogger, newsCollector, priceCollector, cleanup := mustInit()
	defer cleanup()

	summary, err := newsCollector.CollectAll(ctx)
	if err != nil {
		appLogger.Fatal("News collection failed", logger.ErrorField(err))
	}
	fmt.Println(summary)

	if err := priceCollector.CollectAll(ctx); err != nil {
		appLogger.Fatal("Price collection failed", logger.ErrorField(err))
	}
}

func mustInit() (*config.Config, *logger.Logger, *service.NewsCollector, *service.PriceCollector, func()) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger.Info("Starting Collector Service", zap.String("name", cfg.App.Name))

	database, err := db.New(cfg.Database)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	newsRepo := repository.NewNewsRepository(database.DB)
	priceRepo := repository.NewPriceRepository(database.DB)

	newsCollector := service.NewNewsCollector(cfg, appLogger, newsRepo)
	priceCollector := service.NewPriceCollector(cfg, appLogger, priceRepo)

	cleanup := func() {
		if sqlDB, err := database.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = appLogger.Sync()
	}
	return cfg, appLogger, newsCollector, priceCollector, cleanup
}

func main() {
	rootCmd := &cobra.Command{Use: "collector-service"}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-collector.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd, collectCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing collector-service CLI: %s\n", err)
		os.Exit(1)
	}
}
