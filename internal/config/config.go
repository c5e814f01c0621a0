package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	// CORSAllowedOrigins lists browser origins (or bare hosts) allowed by CORS.
	CORSAllowedOrigins []string

	DB       DatabaseConfig
	Redis    RedisConfig
	Feed     FeedConfig
	Catalog  CatalogConfig
	Sequence SequenceConfig
	Worker   WorkerConfig
	S3       S3Config
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// FeedConfig contains the DevJewels upstream feed endpoints and timeouts.
type FeedConfig struct {
	StockURL      string
	DesignURL     string
	UserID        string
	StockTimeout  time.Duration
	DesignTimeout time.Duration
}

// CatalogConfig controls merging, caching and querying of the product view.
type CatalogConfig struct {
	DiscountPercent     float64
	CacheTTL            time.Duration
	CacheBackend        string // memory or redis
	MaxPageSize         int
	DefaultActiveDesign bool
	ImageBaseURL        string
}

// SequenceConfig controls order and custom job number allocation.
type SequenceConfig struct {
	LockTimeout    time.Duration
	MaxAttempts    int
	OrderScanLimit int
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	DesignSyncInterval time.Duration
}

// S3Config contains the product image bucket configuration.
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	PresignTTL      time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; production relies on real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", defaultCORSOrigins)

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	var err error

	// Upstream feeds
	cfg.Feed = FeedConfig{
		StockURL:  getEnv("DEVJEWELS_STOCK_URL", "https://admin.devjewels.com/mobileapi/api_stock.php"),
		DesignURL: getEnv("DEVJEWELS_DESIGN_URL", "https://admin.devjewels.com/mobileapi/api_design.php"),
		UserID:    getEnv("DEVJEWELS_USER_ID", ""),
	}
	if cfg.Feed.StockTimeout, err = parseDurationEnv("DEVJEWELS_STOCK_TIMEOUT", "10s"); err != nil {
		return nil, fmt.Errorf("invalid DEVJEWELS_STOCK_TIMEOUT: %w", err)
	}
	if cfg.Feed.DesignTimeout, err = parseDurationEnv("DEVJEWELS_DESIGN_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid DEVJEWELS_DESIGN_TIMEOUT: %w", err)
	}

	// Catalog
	cfg.Catalog = CatalogConfig{
		CacheBackend:        strings.ToLower(getEnv("CATALOG_CACHE_BACKEND", "memory")),
		MaxPageSize:         getEnvInt("CATALOG_MAX_PAGE_SIZE", 100),
		DefaultActiveDesign: getEnvBool("DESIGN_DEFAULT_ACTIVE", true),
		ImageBaseURL:        strings.TrimSuffix(getEnv("IMAGE_BASE_URL", "https://dev-jewels.s3.us-east-2.amazonaws.com/products"), "/"),
	}
	if cfg.Catalog.DiscountPercent, err = getEnvFloat("CATALOG_DISCOUNT_PERCENT", 15); err != nil {
		return nil, fmt.Errorf("invalid CATALOG_DISCOUNT_PERCENT: %w", err)
	}
	if cfg.Catalog.DiscountPercent < 0 || cfg.Catalog.DiscountPercent > 100 {
		return nil, errors.New("CATALOG_DISCOUNT_PERCENT must be between 0 and 100")
	}
	if cfg.Catalog.CacheTTL, err = parseDurationEnv("CATALOG_CACHE_TTL", "15m"); err != nil {
		return nil, fmt.Errorf("invalid CATALOG_CACHE_TTL: %w", err)
	}
	if cfg.Catalog.CacheBackend != "memory" && cfg.Catalog.CacheBackend != "redis" {
		return nil, fmt.Errorf("CATALOG_CACHE_BACKEND must be 'memory' or 'redis', got %q", cfg.Catalog.CacheBackend)
	}

	// Sequences
	cfg.Sequence = SequenceConfig{
		MaxAttempts:    getEnvInt("SEQUENCE_MAX_ATTEMPTS", 50),
		OrderScanLimit: getEnvInt("SEQUENCE_ORDER_SCAN_LIMIT", 100),
	}
	if cfg.Sequence.LockTimeout, err = parseDurationEnv("SEQUENCE_LOCK_TIMEOUT", "5s"); err != nil {
		return nil, fmt.Errorf("invalid SEQUENCE_LOCK_TIMEOUT: %w", err)
	}

	// S3 product images
	cfg.S3 = S3Config{
		Region:          getEnv("S3_REGION", "us-east-2"),
		Bucket:          getEnv("S3_BUCKET", "dev-jewels"),
		Prefix:          strings.Trim(getEnv("S3_PREFIX", "products"), "/"),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}
	if cfg.S3.PresignTTL, err = parseDurationEnv("S3_PRESIGN_TTL", "15m"); err != nil {
		return nil, fmt.Errorf("invalid S3_PRESIGN_TTL: %w", err)
	}

	// Workers (durations)
	if cfg.Worker.DesignSyncInterval, err = parseDurationEnv("DESIGN_SYNC_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid DESIGN_SYNC_INTERVAL: %w", err)
	}

	// Basic validation for DB parameters
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	if cfg.Feed.UserID == "" {
		return nil, errors.New("DEVJEWELS_USER_ID must be set to query the upstream feeds")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	return cfg, nil
}

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"https://admin.devjewels.com",
	"https://devjewels.com",
	"https://www.devjewels.com",
	"https://catalog.devjewels.com",
}

// getEnvList splits a comma separated variable, dropping blank entries. Empty falls back to def.
func getEnvList(key string, def []string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool returns the value of an environment variable as a bool or a default if empty/invalid.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvFloat parses an environment variable as float64.
func getEnvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
