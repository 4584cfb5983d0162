package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Recipe store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// User store backends.
const (
	UserStoreMemory = "memory"
	UserStoreRedis  = "redis"
)

// Chat providers.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Config holds the configuration for the application.
type Config struct {
	Port      string `mapstructure:"PORT"`
	GinMode   string `mapstructure:"GIN_MODE"`
	APIPrefix string `mapstructure:"API_PREFIX"`

	RecipeStore    string `mapstructure:"RECIPE_STORE"`
	RecipeDataPath string `mapstructure:"RECIPE_DATA_PATH"`
	DatabasePath   string `mapstructure:"DATABASE_PATH"`

	JWTSecret string        `mapstructure:"JWT_SECRET_KEY"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	GeminiAPIKey       string        `mapstructure:"GOOGLE_API_KEY"`
	GeminiModel        string        `mapstructure:"GEMINI_MODEL"`
	GroqAPIKey         string        `mapstructure:"GROQ_API_KEY"`
	GroqModel          string        `mapstructure:"GROQ_MODEL"`
	ChatProvider       string        `mapstructure:"CHAT_PROVIDER"`
	ChatTimeout        time.Duration `mapstructure:"CHAT_TIMEOUT"`
	LLMRequestsPerMin  int           `mapstructure:"LLM_REQUESTS_PER_MINUTE"`
	CORSOrigins        []string      `mapstructure:"-"`
	RawCORSOrigins     string        `mapstructure:"CORS_ORIGINS"`
	UserStore          string        `mapstructure:"USER_STORE"`
	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	RedisPassword      string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int           `mapstructure:"REDIS_DB"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	LogFormat          string        `mapstructure:"LOG_FORMAT"`
	MetricsRetainDays  int           `mapstructure:"METRICS_RETAIN_DAYS"`
	RawTelegramUserIDs string        `mapstructure:"TELEGRAM_ALLOWED_USER_IDS"`

	// Telegram Config
	TelegramBotToken       string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramWebhookURL     string `mapstructure:"TELEGRAM_WEBHOOK_URL"`
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64 `mapstructure:"TELEGRAM_ADMIN_ID"`
}

// devJWTSecret is the signing key used when JWT_SECRET_KEY is unset. Release mode refuses it.
const devJWTSecret = "jwt-secret-key-for-development"

var defaults = map[string]any{
	"PORT":                      "8080",
	"GIN_MODE":                  "debug",
	"API_PREFIX":                "/api",
	"RECIPE_STORE":              StoreFile,
	"RECIPE_DATA_PATH":          "data/sample_recipes.json",
	"DATABASE_PATH":             "data/meal_prep.db",
	"JWT_SECRET_KEY":            devJWTSecret,
	"TOKEN_TTL":                 "1h",
	"GOOGLE_API_KEY":            "",
	"GEMINI_MODEL":              "gemini-1.5-flash",
	"GROQ_API_KEY":              "",
	"GROQ_MODEL":                "llama-3.3-70b-versatile",
	"CHAT_PROVIDER":             ProviderGemini,
	"CHAT_TIMEOUT":              "20s",
	"LLM_REQUESTS_PER_MINUTE":   15,
	"CORS_ORIGINS":              "http://localhost:3000",
	"USER_STORE":                UserStoreMemory,
	"REDIS_ADDR":                "",
	"REDIS_PASSWORD":            "",
	"REDIS_DB":                  0,
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "json",
	"METRICS_RETAIN_DAYS":       30,
	"TELEGRAM_BOT_TOKEN":        "",
	"TELEGRAM_WEBHOOK_URL":      "",
	"TELEGRAM_ALLOWED_USER_IDS": "",
	"TELEGRAM_ADMIN_ID":         0,
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first unless GIN_MODE is release.
func NewFromEnv() (*Config, error) {
	if os.Getenv("GIN_MODE") != "release" {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.RawCORSOrigins)
	ids, err := parseUserIDs(cfg.RawTelegramUserIDs)
	if err != nil {
		return nil, err
	}
	cfg.TelegramAllowedUserIDs = ids

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ChatEnabled reports whether an external text generator is configured.
func (c *Config) ChatEnabled() bool {
	switch c.ChatProvider {
	case ProviderGroq:
		return c.GroqAPIKey != ""
	default:
		return c.GeminiAPIKey != ""
	}
}

func (c *Config) validate() error {
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.GinMode)
	}

	switch c.RecipeStore {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("RECIPE_STORE must be %q or %q, got %q", StoreFile, StoreSQLite, c.RecipeStore)
	}

	switch c.UserStore {
	case UserStoreMemory:
	case UserStoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR environment variable not set")
		}
	default:
		return fmt.Errorf("USER_STORE must be %q or %q, got %q", UserStoreMemory, UserStoreRedis, c.UserStore)
	}

	switch c.ChatProvider {
	case ProviderGemini, ProviderGroq:
	default:
		return fmt.Errorf("CHAT_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderGroq, c.ChatProvider)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY environment variable not set")
	}
	if c.GinMode == "release" && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET_KEY must be set to a private value in release mode")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.ChatTimeout <= 0 {
		return fmt.Errorf("CHAT_TIMEOUT must be positive, got %s", c.ChatTimeout)
	}
	if c.LLMRequestsPerMin < 0 {
		return fmt.Errorf("LLM_REQUESTS_PER_MINUTE must not be negative, got %d", c.LLMRequestsPerMin)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(raw) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS contains invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
