package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCategories are the faculties offered in the filter before any data loads
var DefaultCategories = []string{
	"คณะบริหารธุรกิจ",
	"คณะวิทยาศาสตร์ฯ (CS)",
	"คณะนิติศาสตร์",
	"คณะบัญชี",
	"บริการ/สิ่งอำนวยความสะดวก",
}

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port        string
	Debug       bool
	CORSOrigins []string

	// Analysis backend
	APIBase      string
	APIPrefix    string
	APITimeout   time.Duration
	APIRateLimit float64 // requests per second, 0 for unlimited

	// Dashboard view
	PageSize       int
	TopN           int
	KeywordTopN    int
	CategoriesFile string
	Categories     []string

	// Schedule configuration
	ReloadSchedule string // cron expression with seconds, empty disables
	ReportSchedule string // "daily" or "weekly"
	TimeZone       string

	// Sentiment overrides
	OverrideMode    string // "memory" or "remote"
	OverrideJournal string // SQLite path, empty disables
	EditorName      string

	// Exports
	ExportEmpty      string // "placeholder" or "header"
	ExportDir        string
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	NegativeThreshold float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Debug:       getBoolEnv("DEBUG", false),
		CORSOrigins: getSliceEnv("CORS_ORIGINS", []string{"*"}),

		APIBase:      getEnv("API_BASE", "http://localhost:8082"),
		APIPrefix:    getEnv("API_PREFIX", ""),
		APITimeout:   getDurationEnv("API_TIMEOUT", 15*time.Second),
		APIRateLimit: getFloatEnv("API_RATE_LIMIT", 0),

		PageSize:       getIntEnv("PAGE_SIZE", 10),
		TopN:           getIntEnv("TOP_N", 5),
		KeywordTopN:    getIntEnv("KEYWORD_TOP_N", 10),
		CategoriesFile: getEnv("CATEGORIES_FILE", ""),
		Categories:     DefaultCategories,

		ReloadSchedule: getEnv("RELOAD_SCHEDULE", "0 */15 * * * *"),
		ReportSchedule: getEnv("REPORT_SCHEDULE", "daily"),
		TimeZone:       getEnv("TIMEZONE", "Asia/Bangkok"),

		OverrideMode:    getEnv("OVERRIDE_MODE", "memory"),
		OverrideJournal: getEnv("OVERRIDE_JOURNAL", ""),
		EditorName:      getEnv("EDITOR_NAME", "Demo Admin"),

		ExportEmpty:      getEnv("EXPORT_EMPTY", "placeholder"),
		ExportDir:        getEnv("EXPORT_DIR", "exports"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "mentions"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		NegativeThreshold: getFloatEnv("NEGATIVE_THRESHOLD", 20),
	}

	if cfg.CategoriesFile != "" {
		categories, err := LoadCategories(cfg.CategoriesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load categories: %w", err)
		}
		cfg.Categories = categories
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// HeaderOnlyWhenEmpty reports whether empty exports carry just the header row
func (c *Config) HeaderOnlyWhenEmpty() bool {
	return c.ExportEmpty == "header"
}

func (c *Config) validate() error {
	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.OverrideMode != "memory" && c.OverrideMode != "remote" {
		return fmt.Errorf("OVERRIDE_MODE must be 'memory' or 'remote'")
	}

	if c.ExportEmpty != "placeholder" && c.ExportEmpty != "header" {
		return fmt.Errorf("EXPORT_EMPTY must be 'placeholder' or 'header'")
	}

	if c.PageSize <= 0 || c.TopN <= 0 || c.KeywordTopN <= 0 {
		return fmt.Errorf("PAGE_SIZE, TOP_N and KEYWORD_TOP_N must be positive")
	}

	if c.NegativeThreshold <= 0 || c.NegativeThreshold > 100 {
		return fmt.Errorf("NEGATIVE_THRESHOLD must be a percentage in (0, 100]")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

type categoriesFile struct {
	Categories []string `yaml:"categories"`
}

// LoadCategories reads the faculty list from a YAML file of the form
//
//	categories:
//	  - คณะนิติศาสตร์
func LoadCategories(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file categoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var categories []string
	seen := make(map[string]bool)
	for _, c := range file.Categories {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		categories = append(categories, c)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%s lists no categories", path)
	}
	return categories, nil
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

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	return defaultValue
}
