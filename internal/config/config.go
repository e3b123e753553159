package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Bill aggregator (CBK) credentials and mode.
	CBKBaseURL     string
	CBKUserID      string
	CBKAPIKey      string
	CBKCallbackURL string
	CBKMode        string
	CBKTimeout     time.Duration

	// Free-tier package assigned when a subscription lapses.
	FallbackPackageID string
	// Currency trades settle into and main wallets are denominated in.
	DefaultCurrency string

	PipelineInterval time.Duration
}

const (
	CBKModeLive    = "live"
	CBKModeSandbox = "sandbox"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "vendora"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "vendora"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		CBKBaseURL:     getenv("CBK_BASE_URL", "https://www.nellobytesystems.com"),
		CBKUserID:      strings.TrimSpace(getenv("CBK_USER_ID", "")),
		CBKAPIKey:      strings.TrimSpace(getenv("CBK_API_KEY", "")),
		CBKCallbackURL: strings.TrimSpace(getenv("CBK_CALLBACK_URL", "")),
		CBKMode:        normalizeCBKMode(getenv("CBK_MODE", CBKModeSandbox)),
		CBKTimeout:     getenvDuration("CBK_TIMEOUT", 30*time.Second),

		FallbackPackageID: getenv("FALLBACK_PACKAGE_ID", "1"),
		DefaultCurrency:   getenv("DEFAULT_CURRENCY", "NGN"),

		PipelineInterval: getenvDuration("PIPELINE_INTERVAL", 5*time.Minute),
	}

	return cfg
}

// IsLive reports whether the aggregator adapter should perform network I/O.
func (c Config) IsLive() bool {
	return c.CBKMode == CBKModeLive
}

func normalizeCBKMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case CBKModeLive:
		return CBKModeLive
	default:
		return CBKModeSandbox
	}
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPricingHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
