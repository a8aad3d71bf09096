package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Environment
	AppEnv        string
	AdminSetupKey string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Tokens
	AccessTokenSecret string
	AccessTokenTTL    time.Duration
	ResetTokenTTL     time.Duration

	// Domain verification
	DomainCNAMETarget      string
	DomainCheckInterval    time.Duration
	DomainCheckConcurrency int

	// Events
	KafkaBrokers           []string
	KafkaInvalidationTopic string
	KafkaMailTopic         string

	// Visitor
	GeoIPDBPath string

	// Catalogue import
	ImportTimeout time.Duration
	ImportMaxSize int64

	// Rate Limit
	RateLimitAuth int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string
	StaticDir  string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// IsProduction は本番環境で起動しているかどうかを返す。
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

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

	// Optional fields with defaults
	cfg.AppEnv = getEnvString("APP_ENV", "development")
	cfg.AdminSetupKey = getEnvString("ADMIN_SETUP_KEY", "")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.AccessTokenSecret = getEnvString("ACCESS_TOKEN_SECRET", cfg.SessionSecret)
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute)
	cfg.ResetTokenTTL = getEnvDuration("RESET_TOKEN_TTL", time.Hour)
	cfg.DomainCNAMETarget = getEnvString("DOMAIN_CNAME_TARGET", hostOf(cfg.BaseURL))
	cfg.DomainCheckInterval = getEnvDuration("DOMAIN_CHECK_INTERVAL", time.Hour)
	cfg.DomainCheckConcurrency = getEnvInt("DOMAIN_CHECK_CONCURRENCY", 5)
	cfg.KafkaBrokers = getEnvList("KAFKA_BROKERS")
	cfg.KafkaInvalidationTopic = getEnvString("KAFKA_INVALIDATION_TOPIC", "cache-invalidation")
	cfg.KafkaMailTopic = getEnvString("KAFKA_MAIL_TOPIC", "mail-events")
	cfg.GeoIPDBPath = getEnvString("GEOIP_DB_PATH", "")
	cfg.ImportTimeout = getEnvDuration("IMPORT_TIMEOUT", 10*time.Second)
	cfg.ImportMaxSize = getEnvInt64("IMPORT_MAX_SIZE", 5242880)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.StaticDir = getEnvString("STATIC_DIR", "")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// hostOf はURLのホスト名部分を返す。解析できない場合は空文字列を返す。
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
