package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Storage backend selectors.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port             string
	Storage          string
	DatabaseURL      string
	JWTSecret        string
	JWTIssuer        string
	JWTTTL           time.Duration
	CORSOrigins      []string
	InitBalance      decimal.Decimal
	ChatAPIKey       string
	ChatAPIBaseURL   string
	ChatModel        string
	ChatTimeout      time.Duration
	ChatHistoryLimit int
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:           fallback(os.Getenv("PORT"), "8080"),
		Storage:        fallback(os.Getenv("STORAGE"), StoragePostgres),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:      fallback(os.Getenv("JWT_ISSUER"), "bankline-backend"),
		CORSOrigins:    parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		ChatAPIKey:     strings.TrimSpace(os.Getenv("CHAT_API_KEY")),
		ChatAPIBaseURL: fallback(os.Getenv("CHAT_API_BASE_URL"), "https://api.openai.com/v1"),
		ChatModel:      fallback(os.Getenv("CHAT_MODEL"), "gpt-4o-mini"),
	}

	minutes := fallback(os.Getenv("JWT_TTL_MINUTES"), "60")
	if ttlMinutes, err := strconv.Atoi(minutes); err == nil && ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}

	balance := fallback(os.Getenv("INIT_BALANCE"), "1000.00")
	initBalance, err := decimal.NewFromString(balance)
	if err != nil || initBalance.IsNegative() {
		return Config{}, fmt.Errorf("invalid INIT_BALANCE %q", balance)
	}
	cfg.InitBalance = initBalance

	seconds := fallback(os.Getenv("CHAT_TIMEOUT_SECONDS"), "30")
	if timeoutSeconds, err := strconv.Atoi(seconds); err == nil && timeoutSeconds > 0 {
		cfg.ChatTimeout = time.Duration(timeoutSeconds) * time.Second
	} else {
		cfg.ChatTimeout = 30 * time.Second
	}

	historyLimit := fallback(os.Getenv("CHAT_HISTORY_LIMIT"), "20")
	if limit, err := strconv.Atoi(historyLimit); err == nil && limit > 0 {
		cfg.ChatHistoryLimit = limit
	} else {
		cfg.ChatHistoryLimit = 20
	}

	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		return Config{}, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}
	if cfg.Storage == StoragePostgres && cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
