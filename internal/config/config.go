package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL is the public bucket endpoint or CDN that download URLs
	// are built on. Required by the minio driver.
	PublicBaseURL string
}

// GCSConfig holds Google Cloud Storage settings.
type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

// StorageConfig selects and configures the blob store driver.
type StorageConfig struct {
	Driver string // minio, gcs or memory
	MinIO  MinIOConfig
	GCS    GCSConfig
}

// AuthConfig holds session and bootstrap admin settings.
type AuthConfig struct {
	JWTSecret     string
	SessionTTLMin int
	AdminEmail    string
	AdminPassword string
	LoginPath     string
	CookieSecure  bool
}

// RedisConfig holds optional Redis settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig limits login attempts per client IP.
type RateLimitConfig struct {
	LoginMax       int
	LoginWindowSec int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Env         string
	Port        string
	Timezone    string
	RepoDriver  string // postgres or memory
	MaxUploadMB int
	Database    DatabaseConfig
	Storage     StorageConfig
	Auth        AuthConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() *AppConfig {
	return &AppConfig{
		Env:         getEnv("APP_ENV", "production"),
		Port:        getEnv("PORT", "8080"),
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
		RepoDriver:  getEnv("REPOSITORY_DRIVER", "postgres"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 25),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "minio"),
			MinIO: MinIOConfig{
				Endpoint:      getEnv("MINIO_ENDPOINT", ""),
				AccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey:     getEnv("MINIO_SECRET_KEY", ""),
				Bucket:        getEnv("MINIO_BUCKET", ""),
				UseSSL:        getEnvBool("MINIO_USE_SSL", false),
				PublicBaseURL: getEnv("MINIO_PUBLIC_BASE_URL", ""),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			},
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			SessionTTLMin: getEnvInt("SESSION_TTL_MIN", 720),
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			LoginPath:     getEnv("LOGIN_PATH", "/login"),
			CookieSecure:  getEnvBool("COOKIE_SECURE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			LoginMax:       getEnvInt("LOGIN_RATE_LIMIT", 10),
			LoginWindowSec: getEnvInt("LOGIN_RATE_WINDOW_SEC", 60),
		},
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MaxUploadBytes is the advisory upload limit in bytes.
func (c *AppConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// SessionTTL returns the lifetime of issued sessions.
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLMin) * time.Minute
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
