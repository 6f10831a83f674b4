// internal/logging/logger.go
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Log formats
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// LoggerConfig configures a logger
type LoggerConfig struct {
	Level  string    `json:"level"`
	Format string    `json:"format"`
	Output io.Writer `json:"-"`
}

// Validate checks configuration
func (c *LoggerConfig) Validate() error {
	switch c.Level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, "":
	default:
		return fmt.Errorf("logging: invalid level: %s", c.Level)
	}
	switch c.Format {
	case FormatJSON, FormatConsole, "":
	default:
		return fmt.Errorf("logging: invalid format: %s", c.Format)
	}
	return nil
}

// ApplyDefaults fills in default values
func (c *LoggerConfig) ApplyDefaults() {
	if c.Level == "" {
		c.Level = LevelInfo
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
}

// New builds a zap logger. JSON output uses the production encoder, console
// output the development one.
func New(config *LoggerConfig) (*zap.Logger, error) {
	if config == nil {
		config = &LoggerConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	var encoder zapcore.Encoder
	if config.Format == FormatConsole {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(config.Output), level)
	return zap.New(core).Named("s3connector"), nil
}
