// Package s3 implements objectstore.Store over Amazon S3 or S3-compatible
// storage such as MinIO.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/objectstore"
)

// Config contains S3 connection settings.
type Config struct {
	// Region is the AWS region (default us-east-1).
	Region string

	// Endpoint overrides the S3 endpoint for MinIO-style deployments.
	// When set, path-style addressing is forced.
	Endpoint string

	AccessKeyID     string
	SecretAccessKey string

	// Bucket is the bucket all keys live in.
	Bucket string

	// MaxRetries bounds retry attempts for transient put failures
	// (default 3).
	MaxRetries int
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket name is required")
	}
	return nil
}

// Client implements objectstore.Store against S3.
type Client struct {
	client  *s3.Client
	presign *s3.PresignClient
	config  *Config
}

// NewClientFromConfig creates the underlying SDK client from configuration
// parameters. An explicit endpoint enables path-style addressing.
func NewClientFromConfig(ctx context.Context, cfg *Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})

	return client, nil
}

// New creates an S3-backed object store. The bucket is not touched here;
// call EnsureBucket during startup.
func New(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid object store configuration: %w", err)
	}

	sdkClient, err := NewClientFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		client:  sdkClient,
		presign: s3.NewPresignClient(sdkClient),
		config:  cfg,
	}, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.config.Bucket
}

// Put uploads the object with a public-read ACL, retrying transient
// failures with exponential backoff.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 200 * time.Millisecond
			logger.Debug("put: retrying", "key", key, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		_, lastErr = c.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(c.config.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
			ACL:         types.ObjectCannedACLPublicRead,
		})
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			break
		}
	}
	return fmt.Errorf("failed to put %q after %d attempts: %w", key, c.config.MaxRetries+1, lastErr)
}

// Get downloads the full object.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("get %q: %w", key, objectstore.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return data, nil
}

// Delete removes the object. S3 DeleteObject succeeds on missing keys, so
// deleting twice is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Head returns object metadata without the body.
func (c *Client) Head(ctx context.Context, key string) (*objectstore.ObjectInfo, error) {
	result, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("head %q: %w", key, objectstore.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to head %q: %w", key, err)
	}

	info := &objectstore.ObjectInfo{Key: key}
	if result.ContentLength != nil {
		info.Size = *result.ContentLength
	}
	if result.ContentType != nil {
		info.ContentType = *result.ContentType
	}
	return info, nil
}

// HeadBucket probes bucket existence and access.
func (c *Client) HeadBucket(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to access bucket %q: %w", c.config.Bucket, err)
	}
	return nil
}

// EnsureBucket creates the bucket if it does not exist and installs a
// public-read object policy. Idempotent: an existing bucket is probed and
// left alone except for the policy, which is reapplied.
func (c *Client) EnsureBucket(ctx context.Context) error {
	if err := c.HeadBucket(ctx); err != nil {
		logger.Info("bucket missing, creating", "bucket", c.config.Bucket)

		input := &s3.CreateBucketInput{
			Bucket: aws.String(c.config.Bucket),
		}
		// us-east-1 must not carry a location constraint.
		if c.config.Region != "us-east-1" {
			input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
				LocationConstraint: types.BucketLocationConstraint(c.config.Region),
			}
		}
		if _, err := c.client.CreateBucket(ctx, input); err != nil {
			var owned *types.BucketAlreadyOwnedByYou
			if !errors.As(err, &owned) {
				return fmt.Errorf("failed to create bucket %q: %w", c.config.Bucket, err)
			}
		}
	}

	policy := fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Sid": "PublicReadGetObject",
      "Effect": "Allow",
      "Principal": "*",
      "Action": "s3:GetObject",
      "Resource": "arn:aws:s3:::%s/*"
    }
  ]
}`, c.config.Bucket)

	if _, err := c.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(c.config.Bucket),
		Policy: aws.String(policy),
	}); err != nil {
		return fmt.Errorf("failed to set bucket policy on %q: %w", c.config.Bucket, err)
	}

	return nil
}

// PresignGet issues a signed GET URL valid for ttl.
func (c *Client) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %q: %w", key, err)
	}
	return req.URL, nil
}

// Resolve maps a stored variant value to a bare object key.
func (c *Client) Resolve(value string) string {
	return objectstore.ResolveKey(c.config.Bucket, value)
}

// isNotFoundError checks for S3 missing-key and missing-bucket errors.
func isNotFoundError(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) || errors.As(err, &noBucket) {
		return true
	}
	// HeadObject surfaces bare 404s without a typed error on some
	// S3-compatible servers.
	return strings.Contains(err.Error(), "StatusCode: 404") ||
		strings.Contains(err.Error(), "NotFound")
}

// isRetryableError reports whether a put failure is worth retrying.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "SlowDown") ||
		strings.Contains(msg, "InternalError") ||
		strings.Contains(msg, "StatusCode: 500") ||
		strings.Contains(msg, "StatusCode: 503")
}
