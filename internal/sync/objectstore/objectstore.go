// Package objectstore stages binary attachments (photos) in S3-compatible
// object storage before the referencing mutation is sent.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
)

// Client is the subset of the S3 API used by S3Store.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config describes the bucket to stage objects in.
type Config struct {
	Provider  string // aws, minio or r2
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	AccountID string // R2 only
	UseSSL    bool   // MinIO only

	ForcePathStyle bool
}

// Option configures New.
type Option func(*options)

type options struct {
	client     Client
	httpClient *http.Client
}

// WithClient uses a pre-configured client. Useful for tests.
func WithClient(c Client) Option {
	return func(o *options) { o.client = c }
}

// WithHTTPClient sets the HTTP client the SDK uses.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// S3Store writes objects to a single bucket.
type S3Store struct {
	client Client
	bucket string
	cfg    Config
}

// New builds an S3Store for cfg, applying the provider presets.
func New(ctx context.Context, cfg Config, opts ...Option) (*S3Store, error) {
	resolved, err := resolve(cfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "invalid object storage config", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		loadOpts := []func(*config.LoadOptions) error{
			config.WithRegion(resolved.Region),
		}
		if resolved.AccessKey != "" && resolved.SecretKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(resolved.AccessKey, resolved.SecretKey, ""),
			))
		}
		if o.httpClient != nil {
			loadOpts = append(loadOpts, config.WithHTTPClient(o.httpClient))
		}

		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "failed to load AWS config", err)
		}

		client = s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			if resolved.Endpoint != "" {
				so.BaseEndpoint = aws.String(resolved.Endpoint)
			}
			so.UsePathStyle = resolved.ForcePathStyle
		})
	}

	return &S3Store{client: client, bucket: resolved.Bucket, cfg: resolved}, nil
}

// Config returns the resolved configuration.
func (s *S3Store) Config() Config {
	return s.cfg
}

// Put uploads body under key.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return classify(err, "put "+key)
	}
	return nil
}

// Exists reports whether key is already stored.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, classify(err, "head "+key)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

func classify(err error, operation string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apperrors.Wrap(apperrors.ErrStorage,
			fmt.Sprintf("%s failed (code: %s)", operation, apiErr.ErrorCode()), err)
	}
	return apperrors.Wrap(apperrors.ErrStorage, operation+" failed", err)
}
