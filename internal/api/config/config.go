package config

import (
	"news-sentiment-tracker/pkg/config"
)

// Report holds the cost report defaults exposed by the API.
type Report struct {
	DefaultDays int    `mapstructure:"default_days"`
	Timezone    string `mapstructure:"timezone"`
}

// Config holds the full configuration for the API service.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	API      config.API      `mapstructure:"api"`
	Report   Report          `mapstructure:"report"`
}

// Load loads the API configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
