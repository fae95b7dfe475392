// Package config loads settings from the environment (and .env in
// development). Consumers depend on the narrow interfaces below.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseAutoMigrate() bool
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

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketCertificates() string
	GetMinioBucketReceipts() string
	IsMinIOEnabled() bool
}

// GotenbergConfig provides settings for the Gotenberg HTML-to-PDF service.
type GotenbergConfig interface {
	GetGotenbergURL() string
	GetGotenbergUsername() string
	GetGotenbergPassword() string
	IsGotenbergEnabled() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	IsSchedulerEnabled() bool
}

// CertificateConfig provides the issuing-office profile printed on certificates.
type CertificateConfig interface {
	GetCertificateProfile() CertificateProfile
	GetAppBaseURL() string
}

// CertificateProfile is the YAML-configurable letterhead of a certificate.
type CertificateProfile struct {
	TemplateID     string `yaml:"template_id"`
	Office         string `yaml:"office"`
	Municipality   string `yaml:"municipality"`
	SignatoryName  string `yaml:"signatory_name"`
	SignatoryTitle string `yaml:"signatory_title"`
	CurrencySymbol string `yaml:"currency_symbol"`
}

// DefaultCertificateProfile is used when no profile file is configured.
func DefaultCertificateProfile() CertificateProfile {
	return CertificateProfile{
		TemplateID:     "land_use_certificate",
		Office:         "Zoning Administration Office",
		Municipality:   "Municipality",
		SignatoryName:  "Zoning Administrator",
		SignatoryTitle: "Zoning Administrator",
		CurrencySymbol: "PHP",
	}
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	DatabaseAutoMigrate     bool
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	AppBaseURL              string
	EmailEnabled            bool
	EmailProvider           string
	BrevoAPIKey             string
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	EmailFromName           string
	EmailFromAddress        string
	MinIOEndpoint           string
	MinIOAccessKey          string
	MinIOSecretKey          string
	MinIOUseSSL             bool
	MinIOMaxFileSize        int64
	MinioBucketCertificates string
	MinioBucketReceipts     string
	GotenbergURL            string
	GotenbergUsername       string
	GotenbergPassword       string
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	ShutdownTimeout         time.Duration
	CertificateProfile      CertificateProfile
}

// DatabaseConfig
func (c *Config) GetDatabaseURL() string        { return c.DatabaseURL }
func (c *Config) GetDatabaseAutoMigrate() bool { return c.DatabaseAutoMigrate }

// JWTConfig
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailProvider() string    { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// CertificateConfig
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// MinIOConfig
func (c *Config) GetMinIOEndpoint() string           { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string          { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string          { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool               { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64         { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketCertificates() string { return c.MinioBucketCertificates }
func (c *Config) GetMinioBucketReceipts() string     { return c.MinioBucketReceipts }
func (c *Config) IsMinIOEnabled() bool               { return c.MinIOEndpoint != "" }

// GotenbergConfig
func (c *Config) GetGotenbergURL() string      { return c.GotenbergURL }
func (c *Config) GetGotenbergUsername() string { return c.GotenbergUsername }
func (c *Config) GetGotenbergPassword() string { return c.GotenbergPassword }
func (c *Config) IsGotenbergEnabled() bool     { return c.GotenbergURL != "" }

// SchedulerConfig
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }
func (c *Config) IsSchedulerEnabled() bool   { return c.RedisURL != "" }

// CertificateConfig
func (c *Config) GetCertificateProfile() CertificateProfile { return c.CertificateProfile }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailProvider := strings.ToLower(getEnv("EMAIL_PROVIDER", "smtp"))
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		DatabaseAutoMigrate:     strings.EqualFold(getEnv("DATABASE_AUTO_MIGRATE", "true"), "true"),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:              getEnv("APP_BASE_URL", "http://localhost:4200"),
		EmailProvider:           emailProvider,
		BrevoAPIKey:             getEnv("BREVO_API_KEY", ""),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		EmailFromName:           getEnv("EMAIL_FROM_NAME", "Zoning Office"),
		EmailFromAddress:        getEnv("EMAIL_FROM_ADDRESS", ""),
		MinIOEndpoint:           getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:          getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:          getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:             strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:        mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "10485760")),
		MinioBucketCertificates: getEnv("MINIO_BUCKET_CERTIFICATES", "certificates"),
		MinioBucketReceipts:     getEnv("MINIO_BUCKET_RECEIPTS", "payment-receipts"),
		GotenbergURL:            getEnv("GOTENBERG_URL", ""),
		GotenbergUsername:       getEnv("GOTENBERG_USERNAME", ""),
		GotenbergPassword:       getEnv("GOTENBERG_PASSWORD", ""),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		ShutdownTimeout:         mustDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")),
	}

	switch emailProvider {
	case "brevo":
		cfg.EmailEnabled = emailEnabled && cfg.BrevoAPIKey != ""
	default:
		cfg.EmailEnabled = emailEnabled && cfg.SMTPHost != ""
	}

	profile, err := loadCertificateProfile(getEnv("CERTIFICATE_PROFILE_PATH", ""))
	if err != nil {
		return nil, err
	}
	cfg.CertificateProfile = profile

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// loadCertificateProfile reads the YAML profile at path, filling unset fields
// from DefaultCertificateProfile. An empty path yields the defaults.
func loadCertificateProfile(path string) (CertificateProfile, error) {
	profile := DefaultCertificateProfile()
	if strings.TrimSpace(path) == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read certificate profile: %w", err)
	}
	return ParseCertificateProfile(data)
}

// ParseCertificateProfile decodes a YAML profile over the defaults.
func ParseCertificateProfile(data []byte) (CertificateProfile, error) {
	profile := DefaultCertificateProfile()
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("parse certificate profile: %w", err)
	}
	if profile.TemplateID == "" {
		profile.TemplateID = DefaultCertificateProfile().TemplateID
	}
	return profile, nil
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

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
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

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
