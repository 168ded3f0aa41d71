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

	// Redis (optional; in-memory attempt counters are used when unset)
	RedisAddr     string
	RedisPassword string

	// JWT
	JWTSecret string
	JWTIssuer string

	// Token policy
	TokenTTL     time.Duration
	MaxAttempts  int
	AttemptDecay time.Duration

	// TOTP
	TOTPIssuer string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// SMS gateway
	SMSAPIURL    string
	SMSAPIKey    string
	SMSAPISecret string
	SMSFrom      string

	// Transport-level rate limiting
	RateLimitEnabled           bool
	RateLimitRequestsPerWindow int
	RateLimitWindow            time.Duration

	// Request limits
	MaxBodyBytes int64
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "token_security"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis (optional)
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		// JWT defaults
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "token-security"),

		// Token policy defaults
		TokenTTL:     getEnvDuration("TOKEN_TTL", 10*time.Minute),
		MaxAttempts:  getEnvInt("MAX_VERIFY_ATTEMPTS", 5),
		AttemptDecay: getEnvDuration("VERIFY_ATTEMPT_DECAY", 60*time.Second),

		// TOTP
		TOTPIssuer: getEnv("TOTP_ISSUER", "token-security"),

		// SMTP (optional)
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", ""),

		// SMS gateway (optional)
		SMSAPIURL:    getEnv("SMS_API_URL", ""),
		SMSAPIKey:    getEnv("SMS_API_KEY", ""),
		SMSAPISecret: getEnv("SMS_API_SECRET", ""),
		SMSFrom:      getEnv("SMS_FROM", ""),

		// Transport-level rate limiting
		RateLimitEnabled:           getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:            getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		// Request limits
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 64*1024)),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// HasSMTP returns true if SMTP delivery is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// HasSMS returns true if the SMS gateway is configured.
func (c *Config) HasSMS() bool {
	return c.SMSAPIURL != "" && c.SMSAPIKey != ""
}

// HasRedis returns true if shared attempt counters are configured.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
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
