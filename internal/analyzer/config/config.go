package config

import (
	"news-sentiment-tracker/pkg/config"
)

// AI holds configuration for AI providers.
type AI struct {
	Provider string `mapstructure:"provider"`
}

// OpenAI holds the configuration for the OpenAI API.
type OpenAI struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	Model               string `mapstructure:"model"`
	Temperature         float64 `mapstructure:"temperature"`
	MaxTokens           int     `mapstructure:"max_tokens"`
	MaxRequestPerMinute int     `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int     `mapstructure:"max_token_per_minute"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// Sentiment holds the scoring engine configuration.
type Sentiment struct {
	HistoricalContextRange string `mapstructure:"historical_context_range"`
	MaxContextItems        int    `mapstructure:"max_context_items"`
	FallbackToLexical      bool   `mapstructure:"fallback_to_lexical"`
	BatchSize              int    `mapstructure:"batch_size"`
	AnalyzeCron            string `mapstructure:"analyze_cron"`
}

// Budget holds the daily spending limit configuration. DailyLimitUSD of 0
// means unlimited.
type Budget struct {
	DailyLimitUSD  float64 `mapstructure:"daily_limit_usd"`
	AlertThreshold float64 `mapstructure:"alert_threshold"`
	Timezone       string  `mapstructure:"timezone"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the analyzer service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	AI        AI              `mapstructure:"ai"`
	OpenAI    OpenAI          `mapstructure:"openai"`
	Gemini    Gemini          `mapstructure:"gemini"`
	Sentiment Sentiment       `mapstructure:"sentiment"`
	Budget    Budget          `mapstructure:"budget"`
	Telegram  Telegram        `mapstructure:"telegram"`
}

// Load loads the analyzer configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
