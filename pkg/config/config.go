package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Payments PaymentsConfig
	CRM      CRMConfig
	Receipts ReceiptsConfig
	Specials SpecialsConfig
	Outbox   OutboxConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	StudentExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PaymentsConfig describes the hosted-checkout card provider.
type PaymentsConfig struct {
	BaseURL             string
	AccessToken         string
	LocationID          string
	Currency            string
	RedirectURL         string
	WebhookSignatureKey string
	WebhookURL          string
	RequireSignature    bool
	Timeout             time.Duration
}

// Configured reports whether the merchant account is linked.
func (p PaymentsConfig) Configured() bool {
	return strings.TrimSpace(p.AccessToken) != "" && strings.TrimSpace(p.LocationID) != ""
}

// CRMConfig points at the CRM that owns the coupon catalogue.
type CRMConfig struct {
	BaseURL    string
	APIKey     string
	LocationID string
	Timeout    time.Duration
}

// Configured reports whether CRM calls can be attempted.
func (c CRMConfig) Configured() bool {
	return strings.TrimSpace(c.BaseURL) != "" && strings.TrimSpace(c.APIKey) != ""
}

// ReceiptsConfig controls receipt numbering and signed download links.
type ReceiptsConfig struct {
	Prefix          string
	Organization    string
	Instructions    string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// SpecialsConfig tunes the public specials cache.
type SpecialsConfig struct {
	CacheTTL time.Duration
}

// OutboxConfig sizes the compensating-action worker pool.
type OutboxConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_CACHE"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		StudentExpiration: parseDuration(v.GetString("STUDENT_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Payments = PaymentsConfig{
		BaseURL:             strings.TrimRight(v.GetString("PAYMENTS_BASE_URL"), "/"),
		AccessToken:         v.GetString("PAYMENTS_ACCESS_TOKEN"),
		LocationID:          v.GetString("PAYMENTS_LOCATION_ID"),
		Currency:            strings.ToUpper(v.GetString("PAYMENTS_CURRENCY")),
		RedirectURL:         v.GetString("PAYMENTS_REDIRECT_URL"),
		WebhookSignatureKey: v.GetString("PAYMENTS_WEBHOOK_SIGNATURE_KEY"),
		WebhookURL:          v.GetString("PAYMENTS_WEBHOOK_URL"),
		RequireSignature:    v.GetBool("PAYMENTS_REQUIRE_SIGNATURE"),
		Timeout:             parseDuration(v.GetString("PAYMENTS_TIMEOUT"), 15*time.Second),
	}

	cfg.CRM = CRMConfig{
		BaseURL:    strings.TrimRight(v.GetString("CRM_BASE_URL"), "/"),
		APIKey:     v.GetString("CRM_API_KEY"),
		LocationID: v.GetString("CRM_LOCATION_ID"),
		Timeout:    parseDuration(v.GetString("CRM_TIMEOUT"), 10*time.Second),
	}

	cfg.Receipts = ReceiptsConfig{
		Prefix:          strings.ToUpper(v.GetString("RECEIPT_PREFIX")),
		Organization:    v.GetString("RECEIPT_ORGANIZATION"),
		Instructions:    v.GetString("RECEIPT_INSTRUCTIONS"),
		SignedURLSecret: v.GetString("RECEIPT_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("RECEIPT_SIGNED_URL_TTL"), 30*24*time.Hour),
	}

	cfg.Specials = SpecialsConfig{
		CacheTTL: parseDuration(v.GetString("SPECIALS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Outbox = OutboxConfig{
		Workers:    v.GetInt("OUTBOX_WORKERS"),
		BufferSize: v.GetInt("OUTBOX_BUFFER"),
		MaxRetries: v.GetInt("OUTBOX_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("OUTBOX_RETRY_DELAY"), 5*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("STUDENT_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PAYMENTS_BASE_URL", "https://connect.squareupsandbox.com")
	v.SetDefault("PAYMENTS_ACCESS_TOKEN", "")
	v.SetDefault("PAYMENTS_LOCATION_ID", "")
	v.SetDefault("PAYMENTS_CURRENCY", "USD")
	v.SetDefault("PAYMENTS_REDIRECT_URL", "http://localhost:3000/checkout/success")
	v.SetDefault("PAYMENTS_WEBHOOK_SIGNATURE_KEY", "")
	v.SetDefault("PAYMENTS_WEBHOOK_URL", "http://localhost:8080/api/v1/webhooks/payments")
	v.SetDefault("PAYMENTS_REQUIRE_SIGNATURE", false)
	v.SetDefault("PAYMENTS_TIMEOUT", "15s")

	v.SetDefault("CRM_BASE_URL", "")
	v.SetDefault("CRM_API_KEY", "")
	v.SetDefault("CRM_LOCATION_ID", "")
	v.SetDefault("CRM_TIMEOUT", "10s")

	v.SetDefault("RECEIPT_PREFIX", "AFA")
	v.SetDefault("RECEIPT_ORGANIZATION", "Academy")
	v.SetDefault("RECEIPT_INSTRUCTIONS", "Send the total by Zelle and include the receipt number in the memo. Your seat is confirmed once payment is received.")
	v.SetDefault("RECEIPT_SIGNED_URL_SECRET", "dev_receipts_secret")
	v.SetDefault("RECEIPT_SIGNED_URL_TTL", "720h")

	v.SetDefault("SPECIALS_CACHE_TTL", "5m")

	v.SetDefault("OUTBOX_WORKERS", 2)
	v.SetDefault("OUTBOX_BUFFER", 64)
	v.SetDefault("OUTBOX_MAX_RETRIES", 5)
	v.SetDefault("OUTBOX_RETRY_DELAY", "5s")
}

// viper reports a missing explicit config file as a plain fs error, not ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
