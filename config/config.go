package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration. It is built once at startup
// and passed by reference; no other component reads the environment.
type Config struct {
	VideosDir string // local song library root

	// Remote object storage (Cloudflare R2 / any S3-compatible store).
	// The catalog runs in cloud mode when R2Bucket is set.
	R2Bucket          string
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2PublicURL       string // public base URL for direct client fetch
	R2KeyPrefix       string // optional key prefix inside the bucket

	LogLevel string
	LogFile  string // empty = stdout only

	SyncWorkers       int // concurrent song uploads during sync
	SyncUploadsPerSec int // object put rate limit, 0 = unlimited
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	return &Config{
		VideosDir:         getEnv("VIDEOS_DIR", "./videos"),
		R2Bucket:          getEnv("R2_BUCKET_NAME", ""),
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		R2KeyPrefix:       getEnv("R2_KEY_PREFIX", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
		SyncWorkers:       getEnvInt("SYNC_WORKERS", 4),
		SyncUploadsPerSec: getEnvInt("SYNC_UPLOADS_PER_SEC", 0),
	}
}

// CloudMode reports whether the remote backend should be used. The rule is
// the presence of a bucket name, nothing else.
func (c *Config) CloudMode() bool {
	return c.R2Bucket != ""
}

// R2Endpoint returns the S3 endpoint host for the configured account.
func (c *Config) R2Endpoint() string {
	return fmt.Sprintf("%s.r2.cloudflarestorage.com", c.R2AccountID)
}

// Validate checks that cloud mode has complete credentials.
func (c *Config) Validate() error {
	if !c.CloudMode() {
		return nil
	}
	if c.R2AccountID == "" {
		return fmt.Errorf("R2_BUCKET_NAME is set but R2_ACCOUNT_ID is missing")
	}
	if c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" {
		return fmt.Errorf("R2_BUCKET_NAME is set but access credentials are missing")
	}
	return nil
}
