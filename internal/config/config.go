package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// minSessionSecretLength はセッション鍵導出に使うシークレットの最小バイト数。
const minSessionSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// External API
	ExternalAPIBaseURL string
	APITimeout         time.Duration

	// Session
	SessionSecret string

	// Server
	AppEnv             string
	ServerPort         string
	MetricsPort        string
	BaseURL            string
	MaxRequestDuration time.Duration

	// Rate Limit（req/min、0で無効）
	RateLimitGeneral int

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// Observability
	LogLevel       string
	TracingEnabled bool
}

// IsProduction は本番環境として動作しているかどうかを返す。
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(cfg.SessionSecret) < minSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength)
	}

	// Optional fields with defaults
	cfg.ExternalAPIBaseURL = strings.TrimRight(getEnvString("EXTERNAL_API_BASE_URL", "http://localhost:8000/api"), "/")
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 30*time.Second)
	cfg.AppEnv = getEnvString("APP_ENV", "development")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = os.Getenv("METRICS_PORT")
	if _, set := os.LookupEnv("METRICS_PORT"); !set {
		cfg.MetricsPort = "9090"
	}
	cfg.MaxRequestDuration = getEnvDuration("MAX_REQUEST_DURATION", 60*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.CookieSecure = cfg.IsProduction() || strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.TracingEnabled = getEnvBool("TRACING_ENABLED", false)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
