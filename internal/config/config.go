package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppPort string `mapstructure:"APP_PORT"`

	DBDriver    string `mapstructure:"DB_DRIVER"`
	MySQLHost   string `mapstructure:"MYSQL_HOST"`
	MySQLPort   string `mapstructure:"MYSQL_PORT"`
	MySQLDB     string `mapstructure:"MYSQL_DB"`
	MySQLUser   string `mapstructure:"MYSQL_USER"`
	MySQLPass   string `mapstructure:"MYSQL_PASS"`
	PostgresDSN string `mapstructure:"POSTGRES_DSN"`

	RedisAddr string `mapstructure:"REDIS_ADDR"`
	RedisDB   int    `mapstructure:"REDIS_DB"`

	IdempTTLSecs int    `mapstructure:"IDEMPOTENCY_TTL_SECONDS"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	SigningBaseURL      string        `mapstructure:"SIGNING_BASE_URL"`
	ESignTokenTTL       time.Duration `mapstructure:"ESIGN_TOKEN_TTL"`
	ESignMaxOTPAttempts int           `mapstructure:"ESIGN_MAX_OTP_ATTEMPTS"`
	UPICollectionTTL    time.Duration `mapstructure:"UPI_COLLECTION_TTL"`

	KYCBaseURL        string        `mapstructure:"KYC_BASE_URL"`
	KYCAPIKey         string        `mapstructure:"KYC_API_KEY"`
	BankVerifyBaseURL string        `mapstructure:"BANKVERIFY_BASE_URL"`
	BankVerifyAPIKey  string        `mapstructure:"BANKVERIFY_API_KEY"`
	ESignBaseURL      string        `mapstructure:"ESIGN_BASE_URL"`
	ESignAPIKey       string        `mapstructure:"ESIGN_API_KEY"`
	NACHBaseURL       string        `mapstructure:"NACH_BASE_URL"`
	NACHAPIKey        string        `mapstructure:"NACH_API_KEY"`
	UPIBaseURL        string        `mapstructure:"UPI_BASE_URL"`
	UPIAPIKey         string        `mapstructure:"UPI_API_KEY"`
	UPIPayeeVPA       string        `mapstructure:"UPI_PAYEE_VPA"`
	ProviderTimeout   time.Duration `mapstructure:"PROVIDER_TIMEOUT"`

	WebhookSecretUPI          string `mapstructure:"WEBHOOK_SECRET_UPI"`
	WebhookSecretNACH         string `mapstructure:"WEBHOOK_SECRET_NACH"`
	WebhookSecretDisbursement string `mapstructure:"WEBHOOK_SECRET_DISBURSEMENT"`

	TwilioAccountSID string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `mapstructure:"TWILIO_FROM"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
	SMTPFrom string `mapstructure:"SMTP_FROM"`

	DocumentBucket string `mapstructure:"DOCUMENT_BUCKET"`
	AWSRegion      string `mapstructure:"AWS_REGION"`

	SweepSchedule     string `mapstructure:"SWEEP_SCHEDULE"`
	WorkerConcurrency int    `mapstructure:"WORKER_CONCURRENCY"`
}

var defaults = map[string]any{
	"APP_PORT":                "8080",
	"DB_DRIVER":               "mysql",
	"MYSQL_HOST":              "mysql",
	"MYSQL_PORT":              "3306",
	"MYSQL_DB":                "lending",
	"MYSQL_USER":              "lending",
	"MYSQL_PASS":              "lending",
	"POSTGRES_DSN":            "",
	"REDIS_ADDR":              "redis:6379",
	"REDIS_DB":                0,
	"IDEMPOTENCY_TTL_SECONDS": 300,
	"JWT_SECRET":              "",
	"LOG_LEVEL":               "info",
	"LOG_FORMAT":              "json",
	"SIGNING_BASE_URL":        "http://localhost:8080",
	"ESIGN_TOKEN_TTL":         "24h",
	"ESIGN_MAX_OTP_ATTEMPTS":  3,
	"UPI_COLLECTION_TTL":      "30m",
	"KYC_BASE_URL":            "",
	"KYC_API_KEY":             "",
	"BANKVERIFY_BASE_URL":     "",
	"BANKVERIFY_API_KEY":      "",
	"ESIGN_BASE_URL":          "",
	"ESIGN_API_KEY":           "",
	"NACH_BASE_URL":           "",
	"NACH_API_KEY":            "",
	"UPI_BASE_URL":            "",
	"UPI_API_KEY":             "",
	"UPI_PAYEE_VPA":           "",
	"PROVIDER_TIMEOUT":        "30s",

	"WEBHOOK_SECRET_UPI":          "",
	"WEBHOOK_SECRET_NACH":         "",
	"WEBHOOK_SECRET_DISBURSEMENT": "",

	"TWILIO_ACCOUNT_SID": "",
	"TWILIO_AUTH_TOKEN":  "",
	"TWILIO_FROM":        "",
	"SMTP_HOST":          "",
	"SMTP_PORT":          587,
	"SMTP_USER":          "",
	"SMTP_PASS":          "",
	"SMTP_FROM":          "",
	"DOCUMENT_BUCKET":    "",
	"AWS_REGION":         "ap-south-1",
	"SWEEP_SCHEDULE":     "@every 5m",
	"WORKER_CONCURRENCY": 2,
}

// Load reads the environment, with an optional .env file in dir on top of
// the defaults. Environment variables win over the file.
func Load(dir string) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	return c, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("missing POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (mysql|postgres)", c.DBDriver)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if _, err := net.LookupPort("tcp", c.AppPort); err != nil {
		return fmt.Errorf("invalid APP_PORT %q: %w", c.AppPort, err)
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.WorkerConcurrency < 1 {
		return errors.New("WORKER_CONCURRENCY must be at least 1")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// Redact returns a copy safe to log.
func (c Config) Redact() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.MySQLPass = mask(c.MySQLPass)
	c.PostgresDSN = mask(c.PostgresDSN)
	c.JWTSecret = mask(c.JWTSecret)
	c.KYCAPIKey = mask(c.KYCAPIKey)
	c.BankVerifyAPIKey = mask(c.BankVerifyAPIKey)
	c.ESignAPIKey = mask(c.ESignAPIKey)
	c.NACHAPIKey = mask(c.NACHAPIKey)
	c.UPIAPIKey = mask(c.UPIAPIKey)
	c.WebhookSecretUPI = mask(c.WebhookSecretUPI)
	c.WebhookSecretNACH = mask(c.WebhookSecretNACH)
	c.WebhookSecretDisbursement = mask(c.WebhookSecretDisbursement)
	c.TwilioAuthToken = mask(c.TwilioAuthToken)
	c.SMTPPass = mask(c.SMTPPass)
	return c
}
