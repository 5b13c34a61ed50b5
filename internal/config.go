package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/shrimptech/internal/email"
)

// DefaultAllowedOrigins are the production origins allowed to call the API.
var DefaultAllowedOrigins = []string{
	"https://shrimptech.vn",
	"https://www.shrimptech.vn",
}

// Origins added to the CORS allow-list in development.
var devOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:5500",
	"http://127.0.0.1:5500",
}

type Config struct {
	Env       string
	LogLevel  string
	Port      uint16
	Version   string
	StaticDir string // served at / when set
	RedisURL  string // shared rate limit store; in-memory when empty

	// TrustedProxies are IPs or CIDRs whose forwarding headers are believed.
	TrustedProxies []string

	CORS      CORSConfig
	RateLimit RateLimitConfig
	Email     EmailConfig
	Company   CompanyConfig
	Sentry    SentryConfig
}

// CORSConfig holds the origins allowed to call the API with credentials.
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds the fixed-window limits.
type RateLimitConfig struct {
	FormMax    int           // contact and newsletter submissions per window
	FormWindow time.Duration
	APIMax     int           // any /api/* request per window
	APIWindow  time.Duration
}

// EmailConfig holds SMTP and addressing configuration.
type EmailConfig struct {
	Provider           email.Provider
	AdminEmail         string
	FromEmail          string
	FromName           string
	SendTimeout        time.Duration
	VerifyInterval     time.Duration
	MaxConnections     int
	MaxMessagesPerConn int
	RateLimit          float64
}

// CompanyConfig holds the static contact details printed in emails.
type CompanyConfig struct {
	Name         string
	Website      string
	Hotline      string
	SupportEmail string
	OfficeHours  string
}

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
	Debug            bool
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	return loadConfig()
}

func loadConfig() (*Config, error) {
	adminEmail := getEnv("ADMIN_EMAIL", "admin@shrimptech.vn")

	cfg := &Config{
		Env:       normalizeEnv(getEnv("ENV", getEnv("NODE_ENV", "dev"))),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Port:      getEnvInt("PORT", 3000),
		Version:   getEnv("APP_VERSION", "1.0.0"),
		StaticDir: getEnv("STATIC_DIR", ""),
		RedisURL:  getEnv("REDIS_URL", ""),
		RateLimit: RateLimitConfig{
			FormMax:    int(getEnvInt("RATE_LIMIT_FORM_MAX", 5)),
			FormWindow: getEnvDuration("RATE_LIMIT_FORM_WINDOW", 15*time.Minute),
			APIMax:     int(getEnvInt("RATE_LIMIT_API_MAX", 30)),
			APIWindow:  getEnvDuration("RATE_LIMIT_API_WINDOW", time.Minute),
		},
		Email: EmailConfig{
			Provider:           email.ResolveProvider(os.Getenv),
			AdminEmail:         adminEmail,
			FromEmail:          getEnv("SMTP_FROM_EMAIL", "noreply@shrimptech.vn"),
			FromName:           getEnv("EMAIL_FROM_NAME", "SHRIMPTECH"),
			SendTimeout:        getEnvDuration("SMTP_SEND_TIMEOUT", 15*time.Second),
			VerifyInterval:     getEnvDuration("SMTP_VERIFY_INTERVAL", 5*time.Minute),
			MaxConnections:     int(getEnvInt("SMTP_MAX_CONNECTIONS", 5)),
			MaxMessagesPerConn: int(getEnvInt("SMTP_MAX_MESSAGES", 100)),
			RateLimit:          getEnvFloat("SMTP_RATE_LIMIT", 5),
		},
		Company: CompanyConfig{
			Name:         getEnv("COMPANY_NAME", "SHRIMPTECH"),
			Website:      getEnv("COMPANY_WEBSITE", "https://shrimptech.vn"),
			Hotline:      getEnv("COMPANY_HOTLINE", "0901 234 567"),
			SupportEmail: getEnv("SUPPORT_EMAIL", adminEmail),
			OfficeHours:  getEnv("COMPANY_OFFICE_HOURS", "Thứ 2 - Thứ 7, 8:00 - 17:30"),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			Enabled:          getEnvBool("SENTRY_ENABLED", false), // Disabled by default for development
			Environment:      getEnv("SENTRY_ENVIRONMENT", "development"),
			Release:          getEnv("SENTRY_RELEASE", ""),
			SampleRate:       getEnvFloat("SENTRY_SAMPLE_RATE", 1.0),
			TracesSampleRate: getEnvFloat("SENTRY_TRACES_SAMPLE_RATE", 0.0),
			Debug:            getEnvBool("SENTRY_DEBUG", false),
		},
	}

	cfg.TrustedProxies = getEnvList("TRUSTED_PROXIES", nil)

	cfg.CORS.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", DefaultAllowedOrigins)
	if cfg.Env == "dev" {
		cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, devOrigins...)
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.RateLimit.FormMax <= 0 || cfg.RateLimit.APIMax <= 0 {
		return nil, fmt.Errorf("rate limit maximums must be positive")
	}
	if cfg.Email.SendTimeout <= 0 {
		return nil, fmt.Errorf("SMTP_SEND_TIMEOUT must be positive")
	}
	if cfg.Env == "prod" && cfg.Email.Provider.Name == "default" {
		slog.Default().Warn("No SMTP provider credentials configured in production; using unauthenticated relay",
			slog.String("host", cfg.Email.Provider.Host))
	}

	return cfg, nil
}

// normalizeEnv maps ENV/NODE_ENV values onto "dev" or "prod".
func normalizeEnv(env string) string {
	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		return "dev"
	case "prod", "production":
		return "prod"
	default:
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", env))
		return "prod"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var floatValue float64
		if _, err := fmt.Sscanf(value, "%f", &floatValue); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15s") or plain milliseconds ("15000").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	var ms int64
	if _, err := fmt.Sscanf(value, "%d", &ms); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
