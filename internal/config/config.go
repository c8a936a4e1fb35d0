// Package config loads runtime settings from the environment and the
// category/filter definitions from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configuration validation errors.
var (
	ErrInvalidTimeWindow       = errors.New("TIME_WINDOW_HOURS must be at least 1")
	ErrInvalidPerQueryLimit    = errors.New("PER_QUERY_LIMIT must be between 1 and 100")
	ErrInvalidArticlesLimit    = errors.New("MAX_ARTICLES_PER_CATEGORY must be at least 1")
	ErrInvalidConcurrency      = errors.New("SOURCE_CONCURRENCY must be at least 1")
	ErrMissingNaverCredential  = errors.New("NAVER_CLIENT_ID and NAVER_CLIENT_SECRET are required for domestic sources")
	ErrMissingGoogleCredential = errors.New("GOOGLE_API_KEY and SEARCH_ENGINE_ID are required for global-search")
	ErrIncompleteTelegram      = errors.New("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
)

type Config struct {
	// Search provider credentials
	NaverClientID     string
	NaverClientSecret string
	GoogleAPIKey      string
	SearchEngineID    string

	// Gemini settings
	GeminiAPIKey      string
	GeminiModel       string
	MaxGeminiRequests int // maximum Gemini requests per run (0 = unlimited)

	// Telegram delivery (optional)
	TelegramToken  string
	TelegramChatID string

	// Collection settings
	CategoriesConfigPath   string
	TimeWindowHours        int
	PerQueryLimit          int
	MaxArticlesPerCategory int
	SourceConcurrency      int

	// Scraper settings
	ScrapeConcurrency int // parallel fetches for full article extraction
	ScrapeMaxArticles int // cap of articles to extract per category

	// Output settings
	ReportOutputPath string
	ArchiveDir       string
	ArchiveTTLHours  int

	// App settings
	Debug            bool
	RequestTimeout   time.Duration
	RetryAttempts    int
	RetryDelay       time.Duration
	EnableMonitoring bool
	MonitoringPort   string
}

// Load reads .env (when present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		// Default values
		GeminiModel:            "gemini-1.5-flash",
		MaxGeminiRequests:      20,
		CategoriesConfigPath:   "configs/categories.yaml",
		TimeWindowHours:        24,
		PerQueryLimit:          5,
		MaxArticlesPerCategory: 10,
		SourceConcurrency:      1,
		ScrapeConcurrency:      4,
		ScrapeMaxArticles:      0,
		ReportOutputPath:       "output/web/daily_report.html",
		ArchiveDir:             "output/archive",
		ArchiveTTLHours:        24 * 30,
		RequestTimeout:         10 * time.Second,
		RetryAttempts:          3,
		RetryDelay:             time.Second,
		MonitoringPort:         "8080",
	}

	cfg.NaverClientID = os.Getenv("NAVER_CLIENT_ID")
	cfg.NaverClientSecret = os.Getenv("NAVER_CLIENT_SECRET")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	cfg.SearchEngineID = os.Getenv("SEARCH_ENGINE_ID")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.CategoriesConfigPath = getEnvOrDefault("CATEGORIES_CONFIG_PATH", cfg.CategoriesConfigPath)
	cfg.ReportOutputPath = getEnvOrDefault("REPORT_OUTPUT_PATH", cfg.ReportOutputPath)
	cfg.ArchiveDir = getEnvOrDefault("ARCHIVE_DIR", cfg.ArchiveDir)
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	cfg.MaxGeminiRequests = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", cfg.MaxGeminiRequests)
	cfg.TimeWindowHours = getEnvIntOrDefault("TIME_WINDOW_HOURS", cfg.TimeWindowHours)
	cfg.PerQueryLimit = getEnvIntOrDefault("PER_QUERY_LIMIT", cfg.PerQueryLimit)
	cfg.MaxArticlesPerCategory = getEnvIntOrDefault("MAX_ARTICLES_PER_CATEGORY", cfg.MaxArticlesPerCategory)
	cfg.SourceConcurrency = getEnvIntOrDefault("SOURCE_CONCURRENCY", cfg.SourceConcurrency)
	cfg.ScrapeConcurrency = getEnvIntOrDefault("SCRAPE_CONCURRENCY", cfg.ScrapeConcurrency)
	cfg.ScrapeMaxArticles = getEnvIntOrDefault("SCRAPE_MAX_ARTICLES", cfg.ScrapeMaxArticles)
	cfg.ArchiveTTLHours = getEnvIntOrDefault("ARCHIVE_TTL_HOURS", cfg.ArchiveTTLHours)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv("RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.RetryDelay = d
		}
	}

	cfg.Debug = getEnvBool("DEBUG") || getEnvBool("DEBUG_MODE")
	cfg.EnableMonitoring = getEnvBool("ENABLE_HTTP_MONITORING")

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	return strings.EqualFold(os.Getenv(key), "true")
}

// TimeWindow returns the trailing collection window.
func (c *Config) TimeWindow() time.Duration {
	return time.Duration(c.TimeWindowHours) * time.Hour
}

// SummariesEnabled reports whether a Gemini key is configured.
func (c *Config) SummariesEnabled() bool {
	return c.GeminiAPIKey != ""
}

// TelegramEnabled reports whether digest delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

func (c *Config) Validate() error {
	if c.TimeWindowHours < 1 {
		return ErrInvalidTimeWindow
	}
	if c.PerQueryLimit < 1 || c.PerQueryLimit > 100 {
		return ErrInvalidPerQueryLimit
	}
	if c.MaxArticlesPerCategory < 1 {
		return ErrInvalidArticlesLimit
	}
	if c.SourceConcurrency < 1 {
		return ErrInvalidConcurrency
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return ErrIncompleteTelegram
	}
	return nil
}

// ValidateCredentials checks that every source enabled by cats has the
// credentials it needs.
func (c *Config) ValidateCredentials(cats *CategoriesConfig) error {
	if cats.UsesDomestic() && (c.NaverClientID == "" || c.NaverClientSecret == "") {
		return ErrMissingNaverCredential
	}
	if cats.UsesGlobalSearch() && (c.GoogleAPIKey == "" || c.SearchEngineID == "") {
		return ErrMissingGoogleCredential
	}
	return nil
}

// String hides credentials.
func (c *Config) String() string {
	return fmt.Sprintf("Config{categories=%s window=%dh per_query=%d concurrency=%d summaries=%t telegram=%t}",
		c.CategoriesConfigPath, c.TimeWindowHours, c.PerQueryLimit, c.SourceConcurrency,
		c.SummariesEnabled(), c.TelegramEnabled())
}
