// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq-backed scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// GeocodingConfig provides settings for the address lookup client.
type GeocodingConfig interface {
	GetGeocodingBaseURL() string
	GetGeocodingUserAgent() string
}

// DispatchConfig provides the retry/backoff and fan-out policy for the
// dispatch orchestrator. Values are deliberate policy choices, not
// hard-coded constants.
type DispatchConfig interface {
	GetDispatchMaxAttempts() int
	GetDispatchBaseDelay() time.Duration
	GetDispatchMaxDelay() time.Duration
	GetDispatchFanOut() int
	GetProposalTTLImmediate() time.Duration
	GetProposalTTLScheduled() time.Duration
}

// RetentionConfig provides the RGPD retention policy.
type RetentionConfig interface {
	GetRetentionPeriod() time.Duration
}

// EmailConfig provides settings for the notification relay.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetTrackingBaseURL() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	GeocodingBaseURL   string
	GeocodingUserAgent string

	DispatchMaxAttempts  int
	DispatchBaseDelay    time.Duration
	DispatchMaxDelay     time.Duration
	DispatchFanOut       int
	ProposalTTLImmediate time.Duration
	ProposalTTLScheduled time.Duration

	RetentionPeriod time.Duration

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	TrackingBaseURL  string
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// GeocodingConfig implementation
func (c *Config) GetGeocodingBaseURL() string   { return c.GeocodingBaseURL }
func (c *Config) GetGeocodingUserAgent() string { return c.GeocodingUserAgent }

// DispatchConfig implementation
func (c *Config) GetDispatchMaxAttempts() int            { return c.DispatchMaxAttempts }
func (c *Config) GetDispatchBaseDelay() time.Duration    { return c.DispatchBaseDelay }
func (c *Config) GetDispatchMaxDelay() time.Duration     { return c.DispatchMaxDelay }
func (c *Config) GetDispatchFanOut() int                 { return c.DispatchFanOut }
func (c *Config) GetProposalTTLImmediate() time.Duration { return c.ProposalTTLImmediate }
func (c *Config) GetProposalTTLScheduled() time.Duration { return c.ProposalTTLScheduled }

// RetentionConfig implementation
func (c *Config) GetRetentionPeriod() time.Duration { return c.RetentionPeriod }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetTrackingBaseURL() string  { return c.TrackingBaseURL }

// Load reads configuration from the environment (and a .env file when
// present) and validates required settings.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:     splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200")),
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "dispatch"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		GeocodingBaseURL:   getEnv("GEOCODING_BASE_URL", "https://nominatim.openstreetmap.org/search"),
		GeocodingUserAgent: getEnv("GEOCODING_USER_AGENT", "SerruPro/1.0"),

		DispatchMaxAttempts:  mustInt(getEnv("DISPATCH_MAX_ATTEMPTS", "5")),
		DispatchBaseDelay:    mustDuration(getEnv("DISPATCH_BASE_DELAY", "30s")),
		DispatchMaxDelay:     mustDuration(getEnv("DISPATCH_MAX_DELAY", "10m")),
		DispatchFanOut:       mustInt(getEnv("DISPATCH_FAN_OUT", "3")),
		ProposalTTLImmediate: mustDuration(getEnv("PROPOSAL_TTL_IMMEDIATE", "90s")),
		ProposalTTLScheduled: mustDuration(getEnv("PROPOSAL_TTL_SCHEDULED", "24h")),

		RetentionPeriod: mustDuration(getEnv("RGPD_RETENTION_PERIOD", "26280h")), // 3 years

		EmailEnabled:     strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "SerruPro"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		TrackingBaseURL:  getEnv("TRACKING_BASE_URL", "https://serrupro.fr/suivi"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && (cfg.SMTPHost == "" || cfg.EmailFromAddress == "") {
		return nil, fmt.Errorf("SMTP_HOST and EMAIL_FROM_ADDRESS are required when EMAIL_ENABLED is true")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.DispatchMaxAttempts < 1 {
		return nil, fmt.Errorf("DISPATCH_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.DispatchFanOut < 1 {
		return nil, fmt.Errorf("DISPATCH_FAN_OUT must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
