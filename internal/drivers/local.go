package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/FairForge/s3connector/internal/engine"
	"go.uber.org/zap"
)

// LocalDriver keeps objects on the local filesystem under
// <basePath>/<bucket>/<key>. It backs offline workflows and tests.
type LocalDriver struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalDriver creates a new local filesystem driver
func NewLocalDriver(basePath string, logger *zap.Logger) *LocalDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalDriver{
		basePath: basePath,
		logger:   logger,
	}
}

// Name returns the driver name
func (d *LocalDriver) Name() string {
	return "local"
}

// objectPath maps a bucket and key to a file, refusing keys that would
// climb out of the bucket directory.
func (d *LocalDriver) objectPath(container, artifact string) (string, error) {
	root := filepath.Join(d.basePath, container)
	full := filepath.Join(root, filepath.FromSlash(artifact))
	if full == root || !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: key %q escapes bucket", engine.ErrInvalidInput, artifact)
	}
	return full, nil
}

// Get retrieves an object from a bucket
func (d *LocalDriver) Get(ctx context.Context, container, artifact string) (io.ReadCloser, error) {
	fullPath, err := d.objectPath(container, artifact)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("LocalDriver.Get",
		zap.String("container", container),
		zap.String("artifact", artifact),
		zap.String("fullPath", fullPath))

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", artifact, engine.ErrObjectNotFound)
		}
		return nil, err
	}
	return f, nil
}

// Put stores an object, replacing any existing one. Data is written to a
// temporary file first so a failed copy never leaves a truncated object.
func (d *LocalDriver) Put(ctx context.Context, container, artifact string, data io.Reader, opts ...engine.PutOption) error {
	fullPath, err := d.objectPath(container, artifact)
	if err != nil {
		return err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0750); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(parentDir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("commit file: %w", err)
	}

	d.logger.Debug("LocalDriver.Put",
		zap.String("container", container),
		zap.String("artifact", artifact),
		zap.String("contentType", engine.ApplyPutOptions(opts...).ContentType))
	return nil
}
