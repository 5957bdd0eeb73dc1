package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"news-sentiment-tracker/internal/analyzer/budget"
	"news-sentiment-tracker/internal/analyzer/config"
	"news-sentiment-tracker/internal/analyzer/events"
	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/analyzer/service"
	"news-sentiment-tracker/pkg/db"
	"news-sentiment-tracker/pkg/logger"
	"news-sentiment-tracker/pkg/redis"
	"news-sentiment-tracker/pkg/telegram"

	"google.golang.org/genai"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the sentiment analyzer service",
	Run:   runServe,
}

var scoreCmd = &cobra.Command{
	Use:   "score [symbol]",
	Short: "Runs one scoring batch and exits",
	Args:  cobra.MaximumNArgs(1),
	Run:   runScore,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := mustInitDependencies()
	defer deps.close()

	c := cron.New()
	schedule := deps.cfg.Sentiment.AnalyzeCron
	if schedule == "" {
		schedule = "@every 15m"
	}
	_, err := c.AddFunc(schedule, func() {
		if _, _, err := deps.sentimentSvc.ScoreBatch(ctx, ""); err != nil {
			deps.logger.Error("Scheduled scoring batch failed", logger.ErrorField(err))
		}
	})
	if err != nil {
		deps.logger.Fatal("Invalid analyze cron expression", logger.ErrorField(err))
	}
	c.Start()

	deps.logger.Info("Analyzer service started",
		logger.StringField("schedule", schedule),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	deps.logger.Info("Shutting down analyzer service...")
	cancel()
	<-c.Stop().Done()
	deps.logger.Info("Analyzer service stopped.")
}

func runScore(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := mustInitDependencies()
	defer deps.close()

	symbol := ""
	if len(args) > 0 {
		symbol = args[0]
	}

	summary, _, err := deps.sentimentSvc.ScoreBatch(ctx, symbol)
	if err != nil {
		deps.logger.Fatal("Scoring batch failed", logger.ErrorField(err))
	}

	fmt.Printf("scored=%d fallback=%d skipped=%d cost=$%.4f\n",
		summary.Scored, summary.FallbackScored, summary.Skipped, summary.TotalCostUSD)
}

type dependencies struct {
	cfg          *config.Config
	logger       *logger.Logger
	sentimentSvc service.SentimentService
	closers      []func()
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func mustInitDependencies() *dependencies {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	deps := &dependencies{cfg: cfg, logger: appLogger}
	deps.closers = append(deps.closers, func() { _ = appLogger.Sync() })

	appLogger.Info("Starting Analyzer Service", zap.String("name", cfg.App.Name))

	database, err := db.New(cfg.Database)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		deps.closers = append(deps.closers, func() { _ = sqlDB.Close() })
	}

	newsRepo := repository.NewNewsRepository(database.DB)
	costRepo := repository.NewAPICostRepository(database.DB)

	var aiRepo repository.AIRepository
	switch cfg.AI.Provider {
	case "openai":
		aiRepo = repository.NewOpenAIRepository(cfg, appLogger)
	case "gemini":
		genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: cfg.Gemini.APIKey,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini AI client", zap.Error(err))
		}
		repo, err := repository.NewGeminiAIRepository(cfg, appLogger, genAiClient)
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini AI repository", zap.Error(err))
		}
		aiRepo = repo
	default:
		appLogger.Fatal("Invalid AI provider specified in config", zap.String("provider", cfg.AI.Provider))
	}

	ledger, err := budget.NewLedger(costRepo, appLogger, budget.Config{
		DailyLimitUSD:  cfg.Budget.DailyLimitUSD,
		AlertThreshold: cfg.Budget.AlertThreshold,
		Timezone:       cfg.Budget.Timezone,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize budget ledger", zap.Error(err))
	}

	publisher := events.NewNoopPublisher()
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		deps.closers = append(deps.closers, func() { _ = redisClient.Close() })
		publisher = events.NewRedisPublisher(redisClient.Client, appLogger, cfg.Redis.StreamMaxLen)
	}

	var notifier telegram.Notifier = telegram.NoopNotifier{}
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", zap.Error(err))
		}
	}

	selector := service.NewContextSelector(newsRepo, cfg.Sentiment.MaxContextItems)
	sentimentSvc, err := service.NewSentimentService(cfg, appLogger, newsRepo, aiRepo, ledger, selector, publisher, notifier)
	if err != nil {
		appLogger.Fatal("Failed to initialize sentiment service", zap.Error(err))
	}

	deps.sentimentSvc = sentimentSvc
	return deps
}

func main() {
	rootCmd := &cobra.Command{Use: "analyzer-service"}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-analyzer.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd, scoreCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing analyzer-service CLI: %s\n", err)
		os.Exit(1)
	}
}
