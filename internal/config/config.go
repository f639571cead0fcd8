package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	StoreDriver string
	DBURL       string
	DBMaxConns  int32
	AutoMigrate bool

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	AdminEmail    string
	AdminPassword string
	AdminName     string

	CORSOrigins []string

	UploadPath     string
	MaxFileSize    int64
	MaxBodyBytes   int64
	GCSBucket      string
	GCSCredentials string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitURL   string
	RabbitQueue string

	WorkerPort        int
	WorkerConcurrency int

	RateLimitRequests     int
	UserRateLimitRequests int
	RateLimitWindow       time.Duration

	CatalogCacheTTL time.Duration
	NotifyBuffer    int

	OTelEnabled  bool
	OTelEndpoint string
	ServiceName  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Default().Warn("config.dotenv_failed", "err", err)
	}

	return Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnvInt("PORT", 5000),

		StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		DBURL:       getEnv("DATABASE_URL", buildDBURL()),
		DBMaxConns:  int32(getEnvInt("DB_MAX_CONNS", 10)),
		AutoMigrate: getEnvBool("MIGRATE_ON_START", true),

		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTL:     getEnvDuration("JWT_TTL", 7*24*time.Hour),
		BcryptCost: getEnvInt("BCRYPT_COST", 12),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),

		CORSOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{getEnv("FRONTEND_URL", "http://localhost:3000")}),

		UploadPath:     getEnv("UPLOAD_PATH", "./uploads"),
		MaxFileSize:    int64(getEnvInt("MAX_FILE_SIZE", 5*1024*1024)),
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		GCSBucket:      getEnv("GCS_BUCKET", ""),
		GCSCredentials: getEnv("GCS_CREDENTIALS_JSON", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RabbitURL:   getEnv("RABBITMQ_URL", ""),
		RabbitQueue: getEnv("RABBITMQ_QUEUE", "swap.updated"),

		WorkerPort:        getEnvInt("WORKER_PORT", 5001),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),

		RateLimitRequests:     getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100),
		UserRateLimitRequests: getEnvInt("USER_RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitWindow:       getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),

		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 30*time.Second),
		NotifyBuffer:    getEnvInt("NOTIFY_BUFFER", 256),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:  getEnv("SERVICE_NAME", "skillswap-api"),
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "skillswap")
	pass := getEnv("DB_PASSWORD", "skillswap")
	name := getEnv("DB_NAME", "skillswap")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Default().Warn("config.invalid_int", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Default().Warn("config.invalid_bool", "key", key, "value", v)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Default().Warn("config.invalid_duration", "key", key, "value", v)
			return fallback
		}
		return d
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
