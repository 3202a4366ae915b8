// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends for committed course assets
const (
	StorageTypeLocal = "local"
	StorageTypeMinIO = "minio"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Logging  LoggingConfig
	CORS     CORSConfig
	Storage  StorageConfig
	MinIO    MinIOConfig
	Probe    ProbeConfig
	Session  SessionConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
	// MaxUploadSize bounds multipart bodies, MaxBodySize every other body
	MaxUploadSize int64
	MaxBodySize   int64
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// StorageConfig holds file storage settings
type StorageConfig struct {
	Type          string
	MediaBasePath string
	MediaBaseURL  string
	StagingDir    string
}

// MinIOConfig holds object storage settings, used when Storage.Type is "minio"
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	PublicURL       string
}

// ProbeConfig holds duration probing settings
type ProbeConfig struct {
	FFProbePath string
	Timeout     time.Duration
	Concurrency int64
}

// SessionConfig holds authoring session settings
type SessionConfig struct {
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		return nil, fmt.Errorf("DB_PORT is required")
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	if cfg.Server.Port, err = intEnv("SERVER_PORT", 8080); err != nil {
		return nil, err
	}
	maxUpload, err := intEnv("MAX_UPLOAD_SIZE", 2<<30)
	if err != nil {
		return nil, err
	}
	cfg.Server.MaxUploadSize = int64(maxUpload)
	maxBody, err := intEnv("MAX_BODY_SIZE", 1<<20)
	if err != nil {
		return nil, err
	}
	cfg.Server.MaxBodySize = int64(maxBody)

	// Logging configuration
	cfg.Logging.Level = stringEnv("LOG_LEVEL", "info")

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// Storage configuration
	cfg.Storage.Type = strings.ToLower(stringEnv("STORAGE_TYPE", StorageTypeLocal))
	cfg.Storage.MediaBasePath = os.Getenv("MEDIA_BASE_PATH")
	cfg.Storage.MediaBaseURL = stringEnv("MEDIA_BASE_URL", fmt.Sprintf("http://localhost:%d/files", cfg.Server.Port))
	cfg.Storage.StagingDir = stringEnv("STAGING_DIR", filepath.Join(os.TempDir(), "course-authoring"))

	switch cfg.Storage.Type {
	case StorageTypeLocal:
		if cfg.Storage.MediaBasePath == "" {
			return nil, fmt.Errorf("MEDIA_BASE_PATH is required for local storage")
		}
	case StorageTypeMinIO:
		cfg.MinIO.Endpoint = os.Getenv("MINIO_ENDPOINT")
		cfg.MinIO.AccessKeyID = os.Getenv("MINIO_ACCESS_KEY")
		cfg.MinIO.SecretAccessKey = os.Getenv("MINIO_SECRET_KEY")
		cfg.MinIO.BucketName = stringEnv("MINIO_BUCKET", "course-assets")
		if cfg.MinIO.Endpoint == "" || cfg.MinIO.AccessKeyID == "" || cfg.MinIO.SecretAccessKey == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for minio storage")
		}
		useSSL, err := strconv.ParseBool(stringEnv("MINIO_USE_SSL", "false"))
		if err != nil {
			return nil, fmt.Errorf("invalid MINIO_USE_SSL: %w", err)
		}
		cfg.MinIO.UseSSL = useSSL
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		cfg.MinIO.PublicURL = stringEnv("MINIO_PUBLIC_URL", fmt.Sprintf("%s://%s/%s", scheme, cfg.MinIO.Endpoint, cfg.MinIO.BucketName))
	default:
		return nil, fmt.Errorf("invalid STORAGE_TYPE: %q", cfg.Storage.Type)
	}

	// Duration probe configuration
	cfg.Probe.FFProbePath = stringEnv("FFPROBE_PATH", "ffprobe")
	if cfg.Probe.Timeout, err = durationEnv("PROBE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	concurrency, err := intEnv("PROBE_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("PROBE_CONCURRENCY must be positive")
	}
	cfg.Probe.Concurrency = int64(concurrency)

	// Session configuration
	if cfg.Session.IdleTimeout, err = durationEnv("SESSION_IDLE_TIMEOUT", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Session.CleanupInterval, err = durationEnv("SESSION_CLEANUP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

// parseOrigins splits a comma separated origin list. An empty list allows all origins.
func parseOrigins(value string) []string {
	var origins []string
	for _, origin := range strings.Split(value, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
