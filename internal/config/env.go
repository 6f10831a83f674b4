package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvAccessKey    = "S3_ACCESS_KEY_ID"
	EnvSecretKey    = "S3_SECRET_ACCESS_KEY"
	EnvBucket       = "S3_BUCKET_NAME"
	EnvRegion       = "S3_REGION"
	EnvEndpointURL  = "S3_ENDPOINT_URL"
	EnvPrefix       = "S3_PREFIX"
	EnvMode         = "S3_STORAGE_MODE"
	EnvLocalPath    = "S3_LOCAL_PATH"
	EnvMaxBandwidth = "S3_MAX_BANDWIDTH"
	EnvPathStyle    = "S3_USE_PATH_STYLE"
	EnvPort         = "S3_CONNECTOR_PORT"
	EnvLogLevel     = "S3_CONNECTOR_LOG_LEVEL"
	EnvLogFormat    = "S3_CONNECTOR_LOG_FORMAT"
)

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv(cfg *Config) {
	s := &cfg.Storage
	s.AccessKey = GetEnvOrDefault(EnvAccessKey, s.AccessKey)
	s.SecretKey = GetEnvOrDefault(EnvSecretKey, s.SecretKey)
	s.Bucket = GetEnvOrDefault(EnvBucket, s.Bucket)
	s.Region = GetEnvOrDefault(EnvRegion, s.Region)
	s.EndpointURL = GetEnvOrDefault(EnvEndpointURL, s.EndpointURL)
	s.Prefix = GetEnvOrDefault(EnvPrefix, s.Prefix)
	s.Mode = GetEnvOrDefault(EnvMode, s.Mode)
	s.LocalPath = GetEnvOrDefault(EnvLocalPath, s.LocalPath)

	if bw := os.Getenv(EnvMaxBandwidth); bw != "" {
		if n, err := strconv.Atoi(bw); err == nil {
			s.MaxBandwidth = n
		}
	}
	if ps := os.Getenv(EnvPathStyle); ps != "" {
		if b, err := strconv.ParseBool(ps); err == nil {
			s.UsePathStyle = &b
		}
	}

	if port := os.Getenv(EnvPort); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	cfg.Log.Level = GetEnvOrDefault(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Format = GetEnvOrDefault(EnvLogFormat, cfg.Log.Format)
}

// LoadDotEnv reads a .env file from each directory that has one. Variables
// already present in the environment win.
func LoadDotEnv(dirs ...string) error {
	for _, dir := range dirs {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
