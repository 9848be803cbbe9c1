// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Storage backends understood by the service.
const (
	BackendLocal = "local"
	BackendMinio = "minio"
)

// minTokenTTL rejects durations given without a unit, which cast reads as nanoseconds.
const minTokenTTL = time.Second

// ErrMissingAPIKey is returned by Validate when no shared secret is configured.
var ErrMissingAPIKey = errors.New("API_KEY environment variable must be set")

// Config holds all runtime configuration for the service.
// It is built once at startup and passed by pointer; nothing reads it globally.
type Config struct {
	APIKey   string
	BaseURL  string
	Port     string
	AppEnv   string
	LogLevel string
	TokenTTL time.Duration

	StorageBackend string
	UploadDir      string

	// Object storage (S3-compatible), used when StorageBackend is "minio".
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool
}

// Load reads configuration from a .env file (if present) and environment variables.
// The returned bool reports whether a .env file was found.
func Load() (*Config, bool) {
	dotenv := godotenv.Load() == nil

	return &Config{
		APIKey:   os.Getenv("API_KEY"),
		BaseURL:  strings.TrimRight(getEnv("BASE_URL", "http://localhost"), "/"),
		Port:     getEnv("PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		TokenTTL: parseDuration(getEnv("TOKEN_TTL", "1h")),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendLocal)),
		UploadDir:      getEnv("UPLOAD_DIR", "/app/uploads"),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "images"),
		StorageUseSSL:    cast.ToBool(getEnv("STORAGE_USE_SSL", "false")),
	}, dotenv
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.StorageBackend {
	case BackendLocal:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR must not be empty")
		}
	case BackendMinio:
		if c.StorageBucket == "" {
			return errors.New("STORAGE_BUCKET must not be empty")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.TokenTTL < minTokenTTL {
		return fmt.Errorf("TOKEN_TTL must be a duration of at least %s with a unit, e.g. 15m", minTokenTTL)
	}
	return nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DownloadURL composes the public URL of a stored file.
func (c *Config) DownloadURL(storedFilename string) string {
	return c.BaseURL + "/images/" + storedFilename
}

// parseDuration returns 0 for unparseable values so Validate reports them.
func parseDuration(v string) time.Duration {
	d, err := cast.ToDurationE(v)
	if err != nil {
		return 0
	}
	return d
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
