// internal/drivers/throttle.go
package drivers

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/FairForge/s3connector/internal/engine"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ThrottledDriver caps the bytes per second moved through another driver.
type ThrottledDriver struct {
	backend engine.Driver
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewThrottledDriver creates a driver with bandwidth throttling
func NewThrottledDriver(backend engine.Driver, bytesPerSecond int, logger *zap.Logger) *ThrottledDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Create limiter with bytes per second rate and burst size
	limiter := rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond)

	return &ThrottledDriver{
		backend: backend,
		limiter: limiter,
		logger:  logger,
	}
}

// throttledReader wraps a download body with rate limiting
type throttledReader struct {
	reader  io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func (tr *throttledReader) Read(p []byte) (int, error) {
	// WaitN rejects requests larger than the burst
	if burst := tr.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := tr.reader.Read(p)
	if n > 0 {
		// Wait for permission to read n bytes
		if waitErr := tr.limiter.WaitN(tr.ctx, n); waitErr != nil {
			return 0, waitErr
		}
	}
	return n, err
}

type throttledReadCloser struct {
	throttledReader
	closer io.Closer
}

func (t *throttledReadCloser) Close() error {
	return t.closer.Close()
}

// Put paces the upload up front and passes a seekable body of known size to
// the backend, since the S3 signer seeks the body. Readers of unknown size
// are buffered in memory first.
func (t *ThrottledDriver) Put(ctx context.Context, container, artifact string,
	data io.Reader, opts ...engine.PutOption) error {

	size := engine.ApplyPutOptions(opts...).Size
	if size < 0 {
		buf, err := io.ReadAll(data)
		if err != nil {
			return fmt.Errorf("buffer upload: %w", err)
		}
		size = int64(len(buf))
		data = bytes.NewReader(buf)
		opts = append(opts, engine.WithSize(size))
	}

	t.logger.Debug("throttling upload",
		zap.String("artifact", artifact),
		zap.Int64("bytes", size),
		zap.Float64("bytesPerSecond", float64(t.limiter.Limit())))
	if err := t.reserve(ctx, size); err != nil {
		return err
	}
	return t.backend.Put(ctx, container, artifact, data, opts...)
}

func (t *ThrottledDriver) reserve(ctx context.Context, size int64) error {
	burst := int64(t.limiter.Burst())
	for size > 0 {
		n := min(size, burst)
		if err := t.limiter.WaitN(ctx, int(n)); err != nil {
			return err
		}
		size -= n
	}
	return nil
}

func (t *ThrottledDriver) Get(ctx context.Context, container, artifact string) (io.ReadCloser, error) {
	rc, err := t.backend.Get(ctx, container, artifact)
	if err != nil {
		return nil, err
	}
	return &throttledReadCloser{
		throttledReader: throttledReader{reader: rc, limiter: t.limiter, ctx: ctx},
		closer:          rc,
	}, nil
}

func (t *ThrottledDriver) Name() string {
	return "throttled-" + t.backend.Name()
}
