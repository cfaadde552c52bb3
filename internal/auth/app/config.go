package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AccessSecret  string // Required: HMAC secret for access tokens
	RefreshSecret string // Required: HMAC secret for refresh tokens
	Algorithm     string // Optional: JWT signing algorithm (HS256, HS384, HS512) (default: HS256)

	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 168h / 7 days)

	OtpTTL       time.Duration // Verification code lifetime (default: 5m)
	OtpLength    int           // Verification code digits (default: 6)
	FlowTTL      time.Duration // Verification flow lifetime (default: 10m)
	ResendLimit  int           // Resends allowed per verification flow (default: 3)
	ResetTTL     time.Duration // Password reset link lifetime (default: 15m)
	ResetURLBase string        // Frontend URL the reset token is appended to

	DatabaseFile string // Optional: path to SQLite database file (default: ./sprout.db)

	SMTPHost     string // SMTP relay host; empty means mail is logged, not sent
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	SecureCookies        bool          // Secure flag on token cookies (default: true outside dev)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		AccessSecret:  os.Getenv("ACCESS_SECRET_KEY"),
		RefreshSecret: os.Getenv("REFRESH_SECRET_KEY"),
		Algorithm:     getEnvOrDefault("JWT_ALGORITHM", "HS256"),

		AccessTTL:  getEnvDurationOrDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 15*time.Minute),
		RefreshTTL: getEnvDurationOrDefault("REFRESH_TOKEN_EXPIRE_DAYS", 7*24*time.Hour),

		OtpTTL:       getEnvDurationOrDefault("OTP_EXPIRE_MINUTES", 5*time.Minute),
		OtpLength:    getEnvIntOrDefault("OTP_LENGTH", 6),
		FlowTTL:      getEnvDurationOrDefault("OTP_TOKEN_EXPIRE_MINUTES", 10*time.Minute),
		ResendLimit:  getEnvIntOrDefault("RESEND_OTP_LIMIT", 3),
		ResetTTL:     getEnvDurationOrDefault("RESET_PASSWORD_TOKEN_EXPIRY_MINUTES", 15*time.Minute),
		ResetURLBase: getEnvOrDefault("RESET_PASSWORD_URL", "http://localhost:3000/reset-password?token="),

		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "sprout.db"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnvOrDefault("MAIL_FROM", "no-reply@localhost"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	// Dev runs on plain HTTP, where Secure cookies would be dropped.
	cfg.SecureCookies = cfg.Env != "dev"
	if v := os.Getenv("SECURE_COOKIES"); v != "" {
		cfg.SecureCookies = v == "true" || v == "1"
	}

	// REFRESH_TOKEN_EXPIRE_DAYS historically took a bare day count.
	if v := os.Getenv("REFRESH_TOKEN_EXPIRE_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.RefreshTTL = time.Duration(days) * 24 * time.Hour
		}
	}

	return cfg
}

// Validate rejects configurations the service cannot safely run with.
func (c Config) Validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("ACCESS_SECRET_KEY and REFRESH_SECRET_KEY must be set")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("ACCESS_SECRET_KEY and REFRESH_SECRET_KEY must differ")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
