package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/FairForge/s3connector/internal/common"
	"github.com/FairForge/s3connector/internal/tensor"
	"go.uber.org/zap"
)

const defaultRegion = "us-east-1"

// Options binds an engine to one bucket.
type Options struct {
	Bucket      string
	KeyPrefix   string
	Region      string
	EndpointURL string
}

// Engine moves image buffers in and out of a bucket through a Driver.
// It holds no per-call state and is safe for concurrent use when the
// driver is.
type Engine struct {
	driver   Driver
	bucket   string
	prefix   string
	region   string
	endpoint string
	logger   *zap.Logger
}

// UploadedObject is one stored frame.
type UploadedObject struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int    `json:"size"`
}

// UploadResult reports the last stored frame in URL/Key and every frame in Objects.
type UploadResult struct {
	URL     string           `json:"url"`
	Key     string           `json:"key"`
	Objects []UploadedObject `json:"objects"`
}

type DownloadResult struct {
	Key   string
	Image *tensor.Image
	Mask  *tensor.Mask
}

// New creates an engine. The bucket is required.
func New(driver Driver, opts Options, logger *zap.Logger) (*Engine, error) {
	if driver == nil {
		return nil, &ConfigurationError{Field: "driver", Reason: "no storage driver configured"}
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, ErrMissingConfig("S3_BUCKET_NAME")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	region := opts.Region
	if region == "" {
		region = defaultRegion
	}
	return &Engine{
		driver:   driver,
		bucket:   opts.Bucket,
		prefix:   NormalizePrefix(opts.KeyPrefix),
		region:   region,
		endpoint: strings.TrimRight(opts.EndpointURL, "/"),
		logger:   logger,
	}, nil
}

func (e *Engine) Bucket() string { return e.bucket }

// Key resolves addr under the configured key prefix.
func (e *Engine) Key(addr Address) (string, error) {
	return BuildKey(e.prefix, addr)
}

// URL returns a human-readable reference to key. It is never parsed back.
func (e *Engine) URL(key string) string {
	if e.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", e.endpoint, e.bucket, key)
	}
	if e.region == defaultRegion {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", e.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", e.bucket, e.region, key)
}

// Upload encodes every frame of img as PNG and writes them under addr. All
// frames are encoded before the first write, so malformed pixel data never
// reaches the bucket. The mask is accepted for signature parity with the
// nodes and is not stored. Existing objects are overwritten.
func (e *Engine) Upload(ctx context.Context, img *tensor.Image, _ *tensor.Mask, addr Address) (*UploadResult, error) {
	base, err := e.Key(addr)
	if err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, &EncodingError{Err: err}
	}

	encoded := make([][]byte, img.Batch)
	for b := 0; b < img.Batch; b++ {
		data, err := tensor.EncodePNG(img, b)
		if err != nil {
			return nil, &EncodingError{Err: err}
		}
		encoded[b] = data
	}

	result := &UploadResult{Objects: make([]UploadedObject, 0, len(encoded))}
	for b, data := range encoded {
		key := BatchKey(base, b, len(encoded))
		start := time.Now()

		err := e.driver.Put(ctx, e.bucket, key, bytes.NewReader(data),
			WithContentType(tensor.ContentTypePNG),
			WithSize(int64(len(data))))
		if err != nil {
			return nil, &UploadError{Bucket: e.bucket, Key: key, Err: err}
		}

		obj := UploadedObject{Key: key, URL: e.URL(key), Size: len(data)}
		result.Objects = append(result.Objects, obj)
		result.Key, result.URL = obj.Key, obj.URL

		e.logger.Info("uploaded",
			zap.String("driver", e.driver.Name()),
			zap.String("bucket", e.bucket),
			zap.String("key", key),
			zap.Int("bytes", len(data)),
			zap.Duration("latency", time.Since(start)),
			zap.String("prompt_id", common.PromptID(ctx)))
	}
	return result, nil
}

// Download fetches the object at addr and decodes it into an RGB image and a
// mask derived from its alpha channel.
func (e *Engine) Download(ctx context.Context, addr Address) (*DownloadResult, error) {
	key, err := e.Key(addr)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rc, err := e.driver.Get(ctx, e.bucket, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, ErrNotFound(e.bucket, key, err)
		}
		return nil, &DownloadError{Bucket: e.bucket, Key: key, Err: err}
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &DownloadError{Bucket: e.bucket, Key: key, Err: err}
	}

	img, mask, err := tensor.Decode(data)
	if err != nil {
		return nil, &DecodingError{Key: key, Err: err}
	}

	e.logger.Info("loaded",
		zap.String("driver", e.driver.Name()),
		zap.String("bucket", e.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
		zap.Duration("latency", time.Since(start)),
		zap.String("prompt_id", common.PromptID(ctx)))

	return &DownloadResult{Key: key, Image: img, Mask: mask}, nil
}
