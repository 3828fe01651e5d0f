package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort        string `mapstructure:"SERVER_PORT"`
	OutputDir         string `mapstructure:"OUTPUT_DIR"`
	CredentialsFile   string `mapstructure:"CREDENTIALS_FILE"`
	QuotaFile         string `mapstructure:"QUOTA_FILE"`
	HistoryFile       string `mapstructure:"HISTORY_FILE"`
	ProspectsFile     string `mapstructure:"PROSPECTS_FILE"`
	SearchEndpoint    string `mapstructure:"SEARCH_ENDPOINT"`
	HTTPTimeout       int    `mapstructure:"HTTP_TIMEOUT"` // in seconds
	DailyQuota        int    `mapstructure:"DAILY_QUOTA"`
	LowQuotaThreshold int    `mapstructure:"LOW_QUOTA_THRESHOLD"`
	QuotaResetHour    int    `mapstructure:"QUOTA_RESET_HOUR"`
	PacingMinMillis   int    `mapstructure:"PACING_MIN_MS"`
	PacingMaxMillis   int    `mapstructure:"PACING_MAX_MS"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("OUTPUT_DIR", "Search_Results")
	viper.SetDefault("CREDENTIALS_FILE", "credentials.env")
	viper.SetDefault("QUOTA_FILE", "query_counter.txt")
	viper.SetDefault("HISTORY_FILE", "search_history.txt")
	viper.SetDefault("SEARCH_ENDPOINT", "https://www.googleapis.com/customsearch/v1")
	viper.SetDefault("HTTP_TIMEOUT", 15) // in seconds
	viper.SetDefault("DAILY_QUOTA", 100)
	viper.SetDefault("LOW_QUOTA_THRESHOLD", 70)
	viper.SetDefault("QUOTA_RESET_HOUR", 9)
	viper.SetDefault("PACING_MIN_MS", 2000)
	viper.SetDefault("PACING_MAX_MS", 5000)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.ProspectsFile == "" {
		cfg.ProspectsFile = filepath.Join(cfg.OutputDir, "prospects.xlsx")
	}
	return &cfg, nil
}
