package engine

import (
	"context"
	"io"
)

// Driver is the storage backend the engine writes images to and reads them from.
// Container is the bucket, artifact the full object key.
type Driver interface {
	Name() string
	Get(ctx context.Context, container, artifact string) (io.ReadCloser, error)
	Put(ctx context.Context, container, artifact string, data io.Reader, opts ...PutOption) error
}

// PutOptions carries per-object metadata for a Put.
type PutOptions struct {
	ContentType string
	Size        int64
}

type PutOption func(*PutOptions)

func WithContentType(contentType string) PutOption {
	return func(o *PutOptions) {
		o.ContentType = contentType
	}
}

// WithSize records the exact body length so drivers can skip buffering.
func WithSize(size int64) PutOption {
	return func(o *PutOptions) {
		o.Size = size
	}
}

// ApplyPutOptions folds opts over the defaults.
func ApplyPutOptions(opts ...PutOption) PutOptions {
	o := PutOptions{
		ContentType: "application/octet-stream",
		Size:        -1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
