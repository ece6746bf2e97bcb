package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Shared counter store (lockout + rate limiting). Empty addr selects the
	// in-process backend; LockoutEnabled=false selects the documented
	// fail-open mode where lockout is never enforced.
	RedisAddr      string
	RedisDB        int
	LockoutEnabled bool

	// Sessions
	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration

	// App
	AppBaseURL string
	TOTPIssuer string

	// SMTP (optional)
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	// S3 uploads (optional)
	AWSRegion string
	S3Bucket  string

	// Rate limiting per route class
	RateLimitEnabled bool
	AuthRequests     int
	AuthWindow       time.Duration
	APIRequests      int
	APIWindow        time.Duration
	PublicRequests   int
	PublicWindow     time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "dealerdesk"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		LockoutEnabled: getEnvBool("LOCKOUT_ENABLED", true),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTIssuer:  getEnv("JWT_ISSUER", "dealerdesk"),
		SessionTTL: getEnvDuration("SESSION_TTL", 30*24*time.Hour),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),
		TOTPIssuer: getEnv("TOTP_ISSUER", "DealerDesk"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@example.com"),

		AWSRegion: getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:  getEnv("S3_BUCKET", ""),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		AuthRequests:     getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 5),
		AuthWindow:       getEnvDuration("RATE_LIMIT_AUTH_WINDOW", 15*time.Minute),
		APIRequests:      getEnvInt("RATE_LIMIT_API_REQUESTS", 100),
		APIWindow:        getEnvDuration("RATE_LIMIT_API_WINDOW", time.Minute),
		PublicRequests:   getEnvInt("RATE_LIMIT_PUBLIC_REQUESTS", 1000),
		PublicWindow:     getEnvDuration("RATE_LIMIT_PUBLIC_WINDOW", time.Minute),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// HasRedis returns true if a shared counter store is configured.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

// HasSMTP returns true if mail dispatch is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTPHost != ""
}

// HasS3 returns true if upload pre-signing is configured.
func (c *Config) HasS3() bool {
	return c.S3Bucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
