package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	Store        string
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	TokenTTL     time.Duration
	CookieSecure bool

	LogLevel string
	LogFile  string

	CORSAllowedOrigins []string

	StaffRoleKey string
	AdminRoleKey string

	SweepInterval time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// R2Enabled сообщает, настроена ли загрузка баннеров и логотипов.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию через функцию поиска, чтобы тесты не трогали окружение процесса.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Store:             strings.ToLower(orDefault(getenv("STORE"), StorePostgres)),
		DatabaseURL:       getenv("DATABASE_URL"),
		JWTSecretKey:      getenv("JWT_SECRET_KEY"),
		LogLevel:          orDefault(getenv("LOG_LEVEL"), "info"),
		LogFile:           getenv("LOG_FILE"),
		StaffRoleKey:      getenv("STAFF_ROLE_KEY"),
		AdminRoleKey:      getenv("ADMIN_ROLE_KEY"),
		R2AccountID:       getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   getenv("R2_PUBLIC_BASE_URL"),
		SMTPHost:          getenv("SMTP_HOST"),
		SMTPUser:          getenv("SMTP_USER"),
		SMTPPass:          getenv("SMTP_PASS"),
		SMTPFrom:          getenv("SMTP_FROM"),
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("invalid STORE %q: expected %q or %q", cfg.Store, StorePostgres, StoreMemory)
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := strconv.Atoi(orDefault(getenv("SERVER_PORT"), "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	if cfg.TokenTTL, err = time.ParseDuration(orDefault(getenv("TOKEN_TTL"), "24h")); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL environment variable: %w", err)
	}
	if cfg.SweepInterval, err = time.ParseDuration(orDefault(getenv("SWEEP_INTERVAL"), "1m")); err != nil {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL environment variable: %w", err)
	}
	if cfg.TokenTTL <= 0 || cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL and SWEEP_INTERVAL must be positive")
	}

	if v := getenv("COOKIE_SECURE"); v != "" {
		if cfg.CookieSecure, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid COOKIE_SECURE environment variable: %w", err)
		}
	}

	if cfg.SMTPPort, err = strconv.Atoi(orDefault(getenv("SMTP_PORT"), "587")); err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT environment variable: %w", err)
	}

	for _, origin := range strings.Split(orDefault(getenv("CORS_ALLOWED_ORIGINS"), "http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if cfg.StaffRoleKey != "" && cfg.StaffRoleKey == cfg.AdminRoleKey {
		return nil, fmt.Errorf("STAFF_ROLE_KEY and ADMIN_ROLE_KEY must differ")
	}

	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
