package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                  string
	DatabaseURL           string
	JWTSecret             string
	TokenTTL              time.Duration
	Environment           string
	SeedAdminEmail        string
	SeedAdminPassword     string
	SeedAdminPersonNumber string
	LOVFile               string
	EmailFrom             string
	EmailEnabled          bool
	SMTPHost              string
	SMTPPort              int
	SMTPUser              string
	SMTPPassword          string
	RunMigrations         bool
	RunSeed               bool
	MaxBodyBytes          int64
	MaxImportBytes        int64
	NotifyQueueSize       int
	MetricsEnabled        bool
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, fills variables that are not already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:                  getEnv("APP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		TokenTTL:              getEnvDuration("TOKEN_TTL", 8*time.Hour),
		Environment:           getEnv("APP_ENV", "development"),
		SeedAdminEmail:        getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:     getEnv("SEED_ADMIN_PASSWORD", ""),
		SeedAdminPersonNumber: getEnv("SEED_ADMIN_PERSON_NUMBER", "ADMIN"),
		LOVFile:               getEnv("LOV_FILE", ""),
		EmailFrom:             getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:          getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getEnvInt("SMTP_PORT", 587),
		SMTPUser:              getEnv("SMTP_USER", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		RunMigrations:         getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:               getEnvBool("RUN_SEED", true),
		MaxBodyBytes:          int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		MaxImportBytes:        int64(getEnvInt("MAX_IMPORT_BYTES", 8388608)),
		NotifyQueueSize:       getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		MetricsEnabled:        getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if len(strings.TrimSpace(c.JWTSecret)) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be set or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxImportBytes < c.MaxBodyBytes {
		return fmt.Errorf("MAX_IMPORT_BYTES must not be smaller than MAX_BODY_BYTES")
	}
	if c.NotifyQueueSize <= 0 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be positive")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
