package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL      string   `mapstructure:"REDIS_URL"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	TLSEnabled    bool     `mapstructure:"TLS_ENABLED"`
	TLSCertFile   string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile    string   `mapstructure:"TLS_KEY_FILE"`
	PublicBaseURL string   `mapstructure:"PUBLIC_BASE_URL"`

	LogLevel          string `mapstructure:"LOG_LEVEL"`
	LogFile           string `mapstructure:"LOG_FILE"`
	LogFileMaxSizeMB  int    `mapstructure:"LOG_FILE_MAX_SIZE_MB"`
	LogFileMaxBackups int    `mapstructure:"LOG_FILE_MAX_BACKUPS"`
	LogFileMaxAgeDays int    `mapstructure:"LOG_FILE_MAX_AGE_DAYS"`

	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LookupTimeout    time.Duration `mapstructure:"LOOKUP_TIMEOUT"`
	UploadTimeout    time.Duration `mapstructure:"UPLOAD_TIMEOUT"`
	NotifyTimeout    time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
	SignatureTimeout time.Duration `mapstructure:"SIGNATURE_TIMEOUT"`

	ArtifactStore         string `mapstructure:"ARTIFACT_STORE"`
	ArtifactPublicBaseURL string `mapstructure:"ARTIFACT_PUBLIC_BASE_URL"`
	S3Endpoint            string `mapstructure:"S3_ENDPOINT"`
	S3Region              string `mapstructure:"S3_REGION"`
	S3AccessKeyID         string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey     string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3Bucket              string `mapstructure:"S3_BUCKET"`

	NotifyChannel           string `mapstructure:"NOTIFY_CHANNEL"`
	NotifyDefaultRegion     string `mapstructure:"NOTIFY_DEFAULT_REGION"`
	SMSIRAPIKey             string `mapstructure:"SMSIR_API_KEY"`
	SMSIRSecretKey          string `mapstructure:"SMSIR_SECRET_KEY"`
	SMSIRReferralTemplateID string `mapstructure:"SMSIR_REFERRAL_TEMPLATE_ID"`
	SMTPHost                string `mapstructure:"SMTP_HOST"`
	SMTPPort                int    `mapstructure:"SMTP_PORT"`
	SMTPUsername            string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword            string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom                string `mapstructure:"SMTP_FROM"`

	BrandingFile   string `mapstructure:"BRANDING_FILE"`
	RenderCompress bool   `mapstructure:"RENDER_COMPRESS"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"CORS_ORIGINS", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE", "PUBLIC_BASE_URL",
	"LOG_LEVEL", "LOG_FILE", "LOG_FILE_MAX_SIZE_MB", "LOG_FILE_MAX_BACKUPS", "LOG_FILE_MAX_AGE_DAYS",
	"REQUEST_TIMEOUT", "LOOKUP_TIMEOUT", "UPLOAD_TIMEOUT", "NOTIFY_TIMEOUT", "SIGNATURE_TIMEOUT",
	"ARTIFACT_STORE", "ARTIFACT_PUBLIC_BASE_URL",
	"S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_BUCKET",
	"NOTIFY_CHANNEL", "NOTIFY_DEFAULT_REGION",
	"SMSIR_API_KEY", "SMSIR_SECRET_KEY", "SMSIR_REFERRAL_TEMPLATE_ID",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"BRANDING_FILE", "RENDER_COMPRESS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_FILE_MAX_BACKUPS", 5)
	v.SetDefault("LOG_FILE_MAX_AGE_DAYS", 30)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("LOOKUP_TIMEOUT", "5s")
	v.SetDefault("UPLOAD_TIMEOUT", "15s")
	v.SetDefault("NOTIFY_TIMEOUT", "10s")
	v.SetDefault("SIGNATURE_TIMEOUT", "3s")
	v.SetDefault("ARTIFACT_STORE", "memory")
	v.SetDefault("NOTIFY_CHANNEL", "log")
	v.SetDefault("NOTIFY_DEFAULT_REGION", "CO")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("RENDER_COMPRESS", true)

	for _, key := range envKeys {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.ArtifactStore == "memory" {
		log.Println("WARNING: artifacts are kept in memory (ARTIFACT_STORE=memory); they are lost on restart.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the selected artifact store and notification channel
// have the settings they need. In production the in-memory store is refused
// because artifact URLs it hands out die with the process.
func (c *Config) Validate() error {
	switch c.ArtifactStore {
	case "memory":
		if c.IsProduction() {
			return fmt.Errorf("ARTIFACT_STORE=memory is not allowed in production")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when ARTIFACT_STORE is \"s3\"")
		}
		if c.S3Region == "" {
			return fmt.Errorf("S3_REGION is required when ARTIFACT_STORE is \"s3\"")
		}
	default:
		return fmt.Errorf("ARTIFACT_STORE must be \"memory\" or \"s3\", got %q", c.ArtifactStore)
	}

	switch c.NotifyChannel {
	case "log":
	case "sms":
		if c.SMSIRAPIKey == "" {
			return fmt.Errorf("SMSIR_API_KEY is required when NOTIFY_CHANNEL is \"sms\"")
		}
		if c.SMSIRReferralTemplateID == "" {
			return fmt.Errorf("SMSIR_REFERRAL_TEMPLATE_ID is required when NOTIFY_CHANNEL is \"sms\"")
		}
	case "email":
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			return fmt.Errorf("SMTP_HOST and SMTP_FROM are required when NOTIFY_CHANNEL is \"email\"")
		}
	default:
		return fmt.Errorf("NOTIFY_CHANNEL must be \"log\", \"sms\", or \"email\", got %q", c.NotifyChannel)
	}

	if c.LookupTimeout <= 0 || c.UploadTimeout <= 0 || c.NotifyTimeout <= 0 || c.SignatureTimeout <= 0 {
		return fmt.Errorf("LOOKUP_TIMEOUT, UPLOAD_TIMEOUT, NOTIFY_TIMEOUT and SIGNATURE_TIMEOUT must be positive")
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
