package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis（空の場合はキャッシュとライブ配信のリレーを無効化する）
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Catalog
	ProductCacheTTL time.Duration
	RecountInterval time.Duration

	// News
	NewsFeedURL      string
	NewsCacheTTL     time.Duration
	NewsFetchTimeout time.Duration
	NewsMaxSize      int64

	// Prediction
	MLInferenceURL      string
	PredictionTimeout   time.Duration
	PredictionMaxUpload int64

	// Payment
	PaymentAPIURL    string
	PaymentKeyID     string
	PaymentKeySecret string
	PaymentTimeout   time.Duration

	// Rate Limit（req/min/user）
	RateLimitGeneral  int
	RateLimitMutation int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Admin（空の場合は管理APIを登録しない）
	AdminToken string

	// Tracing
	OTelServiceName string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.RedisAddr = getEnvString("REDIS_ADDR", "")
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.ProductCacheTTL = getEnvDuration("PRODUCT_CACHE_TTL", 15*time.Minute)
	cfg.RecountInterval = getEnvDuration("RECOUNT_INTERVAL", 15*time.Minute)
	cfg.NewsFeedURL = getEnvString("NEWS_FEED_URL", "https://www.agriculture.com/rss/news-articles")
	cfg.NewsCacheTTL = getEnvDuration("NEWS_CACHE_TTL", 10*time.Minute)
	cfg.NewsFetchTimeout = getEnvDuration("NEWS_FETCH_TIMEOUT", 10*time.Second)
	cfg.NewsMaxSize = getEnvInt64("NEWS_MAX_SIZE", 5242880)
	cfg.MLInferenceURL = getEnvString("ML_INFERENCE_URL", "http://localhost:8080")
	cfg.PredictionTimeout = getEnvDuration("PREDICTION_TIMEOUT", 30*time.Second)
	cfg.PredictionMaxUpload = getEnvInt64("PREDICTION_MAX_UPLOAD", 10<<20)
	cfg.PaymentAPIURL = getEnvString("PAYMENT_API_URL", "https://api.razorpay.com/v1")
	cfg.PaymentKeyID = getEnvString("PAYMENT_KEY_ID", "")
	cfg.PaymentKeySecret = getEnvString("PAYMENT_KEY_SECRET", "")
	cfg.PaymentTimeout = getEnvDuration("PAYMENT_TIMEOUT", 15*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMutation = getEnvInt("RATE_LIMIT_MUTATION", 60)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.AdminToken = getEnvString("ADMIN_TOKEN", "")
	cfg.OTelServiceName = getEnvString("OTEL_SERVICE_NAME", "agrimarket")

	return cfg, nil
}

// RedisEnabled はRedisが設定されているかを返す。
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
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
	if err != nil {
		return defaultVal
	}
	return d
}
