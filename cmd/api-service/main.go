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

	"news-sentiment-tracker/internal/analyzer/repository"
	analyzersvc "news-sentiment-tracker/internal/analyzer/service"
	"news-sentiment-tracker/internal/api/config"
	delivery "news-sentiment-tracker/internal/api/delivery/http"
	"news-sentiment-tracker/internal/api/service"
	"news-sentiment-tracker/pkg/db"
	"news-sentiment-tracker/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the read API service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting API Service", logger.Field("name", cfg.App.Name))

	database, err := db.New(cfg.Database)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	loc := time.Local
	if cfg.Report.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Report.Timezone)
		if err != nil {
			appLogger.Fatal("Invalid report timezone", logger.ErrorField(err))
		}
	}

	newsRepo := repository.NewNewsRepository(database.DB)
	costRepo := repository.NewAPICostRepository(database.DB)
	priceRepo := repository.NewPriceRepository(database.DB)

	summarySvc := service.NewSummaryService(newsRepo)
	correlationSvc := analyzersvc.NewCorrelationService(newsRepo, priceRepo, appLogger)
	reportSvc := analyzersvc.NewCostReportService(costRepo, loc)

	e := echo.New()
	e.HideBanner = true

	apiV1 := e.Group("/api/v1")

	newsHandler := delivery.NewNewsHandler(newsRepo, appLogger)
	newsHandler.RegisterRoutes(apiV1.Group("/news"))

	sentimentHandler := delivery.NewSentimentHandler(summarySvc, appLogger)
	sentimentHandler.RegisterRoutes(apiV1.Group("/sentiment"))

	costHandler := delivery.NewCostHandler(costRepo, reportSvc, appLogger, loc)
	costHandler.RegisterRoutes(apiV1.Group("/costs"))

	correlationHandler := delivery.NewCorrelationHandler(correlationSvc, appLogger)
	correlationHandler.RegisterRoutes(apiV1.Group("/correlation"))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "api-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-api.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing api-service CLI: %s\n", err)
		os.Exit(1)
	}
}
