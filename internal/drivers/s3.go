package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/FairForge/s3connector/internal/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"
)

// S3Driver stores objects in AWS S3 or any S3-compatible service.
type S3Driver struct {
	endpoint string
	region   string
	logger   *zap.Logger
	client   *s3.Client
}

// S3Options configures NewS3Driver. An empty Endpoint targets AWS.
type S3Options struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Region       string
	UsePathStyle bool
	HTTPClient   *http.Client
}

// NewS3Driver creates a new S3 storage driver
func NewS3Driver(ctx context.Context, opts S3Options, logger *zap.Logger) (*S3Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	creds := credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
	loadOpts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(creds),
		config.WithRegion(region),
	}
	if opts.HTTPClient != nil {
		loadOpts = append(loadOpts, config.WithHTTPClient(opts.HTTPClient))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
		// MinIO, R2 and friends reject the default trailing checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &S3Driver{
		endpoint: opts.Endpoint,
		region:   region,
		logger:   logger,
		client:   client,
	}, nil
}

// Name returns the driver name
func (d *S3Driver) Name() string {
	return "s3"
}

// Put stores data in S3
func (d *S3Driver) Put(ctx context.Context, container, artifact string, data io.Reader, opts ...engine.PutOption) error {
	o := engine.ApplyPutOptions(opts...)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(container),
		Key:         aws.String(artifact),
		Body:        data,
		ContentType: aws.String(o.ContentType),
	}
	if o.Size >= 0 {
		input.ContentLength = aws.Int64(o.Size)
	}

	if _, err := d.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s/%s: %w", container, artifact, err)
	}

	d.logger.Debug("stored object in S3",
		zap.String("bucket", container),
		zap.String("key", artifact))
	return nil
}

// Get retrieves data from S3. A missing key is reported as engine.ErrObjectNotFound.
func (d *S3Driver) Get(ctx context.Context, container, artifact string) (io.ReadCloser, error) {
	result, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(artifact),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get object %s/%s: %w: %w", container, artifact, engine.ErrObjectNotFound, err)
		}
		return nil, fmt.Errorf("get object %s/%s: %w", container, artifact, err)
	}
	return result.Body, nil
}

// isNotFound recognises the ways S3-compatible services report a missing key.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		case "NoSuchBucket":
			return false
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
