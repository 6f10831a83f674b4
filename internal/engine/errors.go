package engine

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a missing or invalid storage setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration: %s is required", e.Field)
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func ErrMissingConfig(field string) error {
	return &ConfigurationError{Field: field}
}

// EncodingError is returned when pixel data cannot be turned into an image file.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode image: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// DecodingError is returned when downloaded bytes are not a readable image.
type DecodingError struct {
	Key string
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decode image %s: %v", e.Key, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

type UploadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload to %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

type DownloadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to load from %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// NotFoundError means the bucket has no object at Key.
type NotFoundError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("image not found: %s/%s", e.Bucket, e.Key)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Is lets drivers return ErrObjectNotFound and callers match either form.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrObjectNotFound
}

func ErrNotFound(bucket, key string, cause error) error {
	return &NotFoundError{Bucket: bucket, Key: key, Err: cause}
}

var (
	// ErrObjectNotFound is returned by drivers when a Get targets a missing key.
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidInput   = errors.New("invalid input")
)
