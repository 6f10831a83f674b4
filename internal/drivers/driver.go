package drivers

import (
	"context"
	"sync"

	"github.com/FairForge/s3connector/internal/config"
	"github.com/FairForge/s3connector/internal/engine"
	"go.uber.org/zap"
)

// New builds the storage driver described by cfg. Missing credentials or
// bucket are reported as *engine.ConfigurationError before anything is
// dialled.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (engine.Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var driver engine.Driver
	switch cfg.Mode {
	case config.ModeLocal:
		driver = NewLocalDriver(cfg.LocalPath, logger)
		logger.Info("using local storage", zap.String("path", cfg.LocalPath))
	default:
		s3Driver, err := NewS3Driver(ctx, S3Options{
			Endpoint:     cfg.EndpointURL,
			AccessKey:    cfg.AccessKey,
			SecretKey:    cfg.SecretKey,
			Region:       cfg.Region,
			UsePathStyle: cfg.PathStyle(),
		}, logger)
		if err != nil {
			return nil, err
		}
		driver = s3Driver
		logger.Info("using S3 storage",
			zap.String("endpoint", cfg.EndpointURL),
			zap.String("region", cfg.Region),
			zap.String("bucket", cfg.Bucket))
	}

	if cfg.MaxBandwidth > 0 {
		driver = NewThrottledDriver(driver, cfg.MaxBandwidth, logger)
	}
	return driver, nil
}

// Factory builds the driver once and hands the same handle to every caller.
// A failed build is remembered and returned on every call.
type Factory struct {
	cfg    config.StorageConfig
	logger *zap.Logger

	once   sync.Once
	driver engine.Driver
	err    error
}

func NewFactory(cfg config.StorageConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// Driver returns the shared driver, building it on first use.
func (f *Factory) Driver(ctx context.Context) (engine.Driver, error) {
	f.once.Do(func() {
		f.driver, f.err = New(ctx, f.cfg, f.logger)
	})
	return f.driver, f.err
}

// Engine returns an engine over the shared driver.
func (f *Factory) Engine(ctx context.Context) (*engine.Engine, error) {
	d, err := f.Driver(ctx)
	if err != nil {
		return nil, err
	}
	return engine.New(d, f.cfg.EngineOptions(), f.logger)
}
