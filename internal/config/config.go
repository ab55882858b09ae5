package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the application.
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Schedule configuration
	CronSpec string
	TimeZone string

	// File layout
	DataDir       string // dedup database lives here
	OutputDir     string // raw + analyzed report files
	ScoringPath   string // scoring.yaml
	SourcesPath   string // sources.yaml
	PreferencesPath string // content preferences (free-text news focus)

	// Dedup store
	RetentionDays int

	// Report archive: local directory by default, Azure Blob when account set
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	DiscordWebhookURL string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Collector credentials
	RedditClientID     string
	RedditClientSecret string
	JinaAPIKey         string
	TranscriptService  string // remote transcript endpoint, optional
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Debug:    getBoolEnv("DEBUG", false),
		CronSpec: getEnv("CRON_SPEC", "0 0 7 * * *"),
		TimeZone: getEnv("TIMEZONE", "UTC"),

		DataDir:         getEnv("DATA_DIR", "data"),
		OutputDir:       getEnv("OUTPUT_DIR", "output"),
		ScoringPath:     getEnv("SCORING_CONFIG", "config/scoring.yaml"),
		SourcesPath:     getEnv("SOURCES_CONFIG", "config/sources.yaml"),
		PreferencesPath: getEnv("PREFERENCES_FILE", "config/content_preferences.json"),

		RetentionDays: getIntEnv("DEDUP_RETENTION_DAYS", 7),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "reports"),

		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		JinaAPIKey:         getEnv("JINA_API_KEY", ""),
		TranscriptService:  getEnv("TRANSCRIPT_SERVICE_URL", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.RetentionDays <= 0 {
		return fmt.Errorf("%w: DEDUP_RETENTION_DAYS must be positive", ErrInvalidConfig)
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("%w: SMTP configuration is required when NOTIFICATION_EMAIL is set", ErrInvalidConfig)
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
