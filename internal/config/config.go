package config

import (
	"os"
	"strconv"
	"strings"
)

// Upload limits are fixed by product requirements and are not read from the environment.
const (
	MaxUploadBytes int64 = 10 * 1024 * 1024
)

var (
	AllowedExtensions   = []string{".pdf"}
	AllowedContentTypes = []string{"application/pdf"}
	defaultCORSOrigins  = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
)

// DatabaseConfig holds PostgreSQL settings for the metadata store.
// URL, when set, takes precedence over the individual components.
type DatabaseConfig struct {
	URL                string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	AutoMigrate        bool
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig describes where uploaded files are written and what is accepted.
type StorageConfig struct {
	Driver              string
	Root                string
	MaxUploadBytes      int64
	AllowedExtensions   []string
	AllowedContentTypes []string
}

// AppConfig is the centralized configuration struct for the application.
// It is built once at start-up and passed to constructors; nothing reads the
// environment after Load returns.
type AppConfig struct {
	Env            string
	Port           string
	LogLevel       string
	MetadataDriver string
	CORSOrigins    []string
	Database       DatabaseConfig
	Storage        StorageConfig
	MinIO          MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() *AppConfig {
	return &AppConfig{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MetadataDriver: getEnv("METADATA_DRIVER", "postgres"),
		CORSOrigins:    appendUnique(defaultCORSOrigins, getEnvList("CORS_ALLOWED_ORIGINS")),
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			AutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Storage: StorageConfig{
			Driver:              getEnv("STORAGE_DRIVER", "local"),
			Root:                getEnv("UPLOAD_DIR", "uploads"),
			MaxUploadBytes:      MaxUploadBytes,
			AllowedExtensions:   append([]string(nil), AllowedExtensions...),
			AllowedContentTypes: append([]string(nil), AllowedContentTypes...),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
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

// getEnvList splits a comma-separated variable, dropping blanks.
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

func appendUnique(base, extra []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]bool, len(base)+len(extra))
	for _, s := range base {
		seen[s] = true
	}
	for _, s := range extra {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
