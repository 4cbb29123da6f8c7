package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	PublicBaseURL string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Ledger    LedgerConfig
	Receipt   ReceiptConfig
	Analytics AnalyticsConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LedgerConfig tunes the fee ledger write and audit paths.
type LedgerConfig struct {
	Timezone          string
	DriftTolerance    decimal.Decimal
	ReceiptRetries    int
	ReconcileInterval time.Duration
}

// Location resolves the configured timezone, falling back to UTC.
func (c LedgerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReceiptConfig holds letterhead fields and share-link signing.
type ReceiptConfig struct {
	OrgName         string
	OrgAddress      string
	OrgPhone        string
	OrgEmail        string
	OrgWebsite      string
	CurrencyUnit    string
	CurrencySubunit string
	LinkSecret      string
	LinkTTL         time.Duration
}

// AnalyticsConfig governs feature flagging and cache behaviour for fee analytics.
type AnalyticsConfig struct {
	Enabled  bool
	CacheTTL time.Duration
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	retries := v.GetInt("LEDGER_RECEIPT_RETRIES")
	if retries <= 0 {
		retries = 3
	}
	cfg.Ledger = LedgerConfig{
		Timezone:          v.GetString("LEDGER_TIMEZONE"),
		DriftTolerance:    parseDecimal(v.GetString("LEDGER_DRIFT_TOLERANCE"), decimal.RequireFromString("0.01")),
		ReceiptRetries:    retries,
		ReconcileInterval: parseDuration(v.GetString("RECONCILE_INTERVAL"), 0),
	}

	cfg.Receipt = ReceiptConfig{
		OrgName:         v.GetString("RECEIPT_ORG_NAME"),
		OrgAddress:      v.GetString("RECEIPT_ORG_ADDRESS"),
		OrgPhone:        v.GetString("RECEIPT_ORG_PHONE"),
		OrgEmail:        v.GetString("RECEIPT_ORG_EMAIL"),
		OrgWebsite:      v.GetString("RECEIPT_ORG_WEBSITE"),
		CurrencyUnit:    v.GetString("RECEIPT_CURRENCY_UNIT"),
		CurrencySubunit: v.GetString("RECEIPT_CURRENCY_SUBUNIT"),
		LinkSecret:      v.GetString("RECEIPT_LINK_SECRET"),
		LinkTTL:         parseDuration(v.GetString("RECEIPT_LINK_TTL"), 72*time.Hour),
	}

	cfg.Analytics = AnalyticsConfig{
		Enabled:  v.GetBool("ENABLE_ANALYTICS"),
		CacheTTL: parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lms_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LEDGER_TIMEZONE", "UTC")
	v.SetDefault("LEDGER_DRIFT_TOLERANCE", "0.01")
	v.SetDefault("LEDGER_RECEIPT_RETRIES", 3)
	v.SetDefault("RECONCILE_INTERVAL", "0")

	v.SetDefault("RECEIPT_ORG_NAME", "LMS Academy")
	v.SetDefault("RECEIPT_ORG_ADDRESS", "")
	v.SetDefault("RECEIPT_ORG_PHONE", "")
	v.SetDefault("RECEIPT_ORG_EMAIL", "")
	v.SetDefault("RECEIPT_ORG_WEBSITE", "")
	v.SetDefault("RECEIPT_CURRENCY_UNIT", "Rupees")
	v.SetDefault("RECEIPT_CURRENCY_SUBUNIT", "Paise")
	v.SetDefault("RECEIPT_LINK_SECRET", "dev_receipt_secret")
	v.SetDefault("RECEIPT_LINK_TTL", "72h")

	v.SetDefault("ENABLE_ANALYTICS", true)
	v.SetDefault("ANALYTICS_CACHE_TTL", "10m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" || raw == "0" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseDecimal(raw string, fallback decimal.Decimal) decimal.Decimal {
	if raw == "" {
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
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
