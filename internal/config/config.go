package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/FairForge/s3connector/internal/engine"
	"gopkg.in/yaml.v3"
)

const (
	ModeS3    = "s3"
	ModeLocal = "local"

	DefaultRegion = "us-east-1"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" default:"8188"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"5m"`
}

// StorageConfig is immutable once Load returns.
type StorageConfig struct {
	Mode         string `yaml:"mode" default:"s3"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region" default:"us-east-1"`
	EndpointURL  string `yaml:"endpoint_url"`
	Prefix       string `yaml:"prefix"`
	LocalPath    string `yaml:"local_path"`
	MaxBandwidth int    `yaml:"max_bandwidth"` // bytes per second, 0 = unlimited
	UsePathStyle *bool  `yaml:"use_path_style"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8188,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Mode:   ModeS3,
			Region: DefaultRegion,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load layers defaults, the optional YAML file at path, .env files in
// envDirs and finally the process environment.
func Load(path string, envDirs ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := LoadDotEnv(envDirs...); err != nil {
		return nil, err
	}
	LoadFromEnv(cfg)
	return cfg, nil
}

// LoadFile merges a YAML document into cfg.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// PathStyle reports whether requests should use path-style addressing.
// Unless set explicitly it follows the endpoint override.
func (s StorageConfig) PathStyle() bool {
	if s.UsePathStyle != nil {
		return *s.UsePathStyle
	}
	return s.EndpointURL != ""
}

// EngineOptions projects the settings the engine needs.
func (s StorageConfig) EngineOptions() engine.Options {
	return engine.Options{
		Bucket:      s.Bucket,
		KeyPrefix:   s.Prefix,
		Region:      s.Region,
		EndpointURL: s.EndpointURL,
	}
}

// Validate reports the first missing or invalid storage setting as an
// *engine.ConfigurationError.
func (s StorageConfig) Validate() error {
	switch s.Mode {
	case ModeS3, "":
		if s.AccessKey == "" {
			return engine.ErrMissingConfig("S3_ACCESS_KEY_ID")
		}
		if s.SecretKey == "" {
			return engine.ErrMissingConfig("S3_SECRET_ACCESS_KEY")
		}
	case ModeLocal:
		if s.LocalPath == "" {
			return engine.ErrMissingConfig("S3_LOCAL_PATH")
		}
	default:
		return &engine.ConfigurationError{Field: "S3_STORAGE_MODE", Reason: fmt.Sprintf("unknown mode %q", s.Mode)}
	}
	if strings.TrimSpace(s.Bucket) == "" {
		return engine.ErrMissingConfig("S3_BUCKET_NAME")
	}
	if s.MaxBandwidth < 0 {
		return &engine.ConfigurationError{Field: "S3_MAX_BANDWIDTH", Reason: "must not be negative"}
	}
	return nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &engine.ConfigurationError{Field: "S3_CONNECTOR_PORT", Reason: fmt.Sprintf("invalid port %d", c.Server.Port)}
	}
	return c.Storage.Validate()
}
