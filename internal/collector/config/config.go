package config

import (
	"news-sentiment-tracker/pkg/config"
)

// Feed maps one RSS feed URL to the ticker symbol its items are filed under.
type Feed struct {
	Symbol string `mapstructure:"symbol"`
	URL    string `mapstructure:"url"`
}

// Collector holds the news collection settings.
type Collector struct {
	Feeds              []Feed   `mapstructure:"feeds"`
	MaxNewsAgeInDays   int      `mapstructure:"max_news_age_in_days"`
	MaxNewsPerFeed     int      `mapstructure:"max_news_per_feed"`
	MaxConcurrent      int      `mapstructure:"max_concurrent"`
	DelayInterval      int      `mapstructure:"delay_interval"`
	BlacklistedDomains []string `mapstructure:"blacklisted_domains"`
	FetchFullContent   bool     `mapstructure:"fetch_full_content"`
	CollectCron        string   `mapstructure:"collect_cron"`
}

// Prices holds the daily price bar collection settings.
type Prices struct {
	BaseURL     string   `mapstructure:"base_url"`
	Symbols     []string `mapstructure:"symbols"`
	Range       string   `mapstructure:"range"`
	Interval    string   `mapstructure:"interval"`
	CollectCron string   `mapstructure:"collect_cron"`
}

// Config holds the full configuration for the collector service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Collector Collector       `mapstructure:"collector"`
	Prices    Prices          `mapstructure:"prices"`
}

// Load loads the collector configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
