package config

import (
	"golang-sentiment-index/pkg/config"
)

// Sentiment holds pipeline-specific configuration.
type Sentiment struct {
	AssetsDir        string `mapstructure:"assets_dir"`
	DefaultAsset     string `mapstructure:"default_asset"`
	PercentileWindow int    `mapstructure:"percentile_window"`
	ZScoreWindow     int    `mapstructure:"zscore_window"`
	ScheduleCron     string `mapstructure:"schedule_cron"`
}

// Ingestion holds the configuration for the external signal ingestion API.
type Ingestion struct {
	BaseURL           string  `mapstructure:"base_url"`
	Timeout           string  `mapstructure:"timeout"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the sentiment service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	API       config.API      `mapstructure:"api"`
	Sentiment Sentiment       `mapstructure:"sentiment"`
	Ingestion Ingestion       `mapstructure:"ingestion"`
	Telegram  Telegram        `mapstructure:"telegram"`
}

// Load loads the sentiment service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
