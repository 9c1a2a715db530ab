package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/ejanapp/api/internal/config"
	"github.com/ejanapp/api/internal/model"
)

// StorageClient defines the interface for object storage operations.
// Objects are written once and never mutated in place; the only sanctioned
// overwrite is the video delegate re-writing its own target key.
type StorageClient interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	GetPublicURL(key string) string
}

// S3Client implements StorageClient against any S3-compatible endpoint
// (Cloudflare R2, GCS interop, MinIO).
type S3Client struct {
	s3Client   *s3.Client
	presigner  *s3.PresignClient
	bucketName string
	publicURL  string
}

// NewS3Client creates a new object storage client.
func NewS3Client(cfg *config.StorageConfig) (*S3Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("storage configuration incomplete")
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: cfg.Endpoint,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	presigner := s3.NewPresignClient(s3Client)

	return &S3Client{
		s3Client:   s3Client,
		presigner:  presigner,
		bucketName: cfg.BucketName,
		publicURL:  cfg.PublicURL,
	}, nil
}

// Upload stores an object and returns its public URL. Transient failures are
// retried a bounded number of times before surfacing a StorageError.
func (c *S3Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", &model.StorageError{Op: "upload", Key: key, Err: err}
	}

	put := func() error {
		_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(c.bucketName),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(put, policy); err != nil {
		return "", &model.StorageError{Op: "upload", Key: key, Err: err}
	}

	return c.GetPublicURL(key), nil
}

// Download fetches an object's bytes.
func (c *S3Client) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &model.StorageError{Op: "download", Key: key, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &model.StorageError{Op: "download", Key: key, Err: err}
	}
	return data, nil
}

// Exists reports whether an object is present. Missing keys are not errors.
func (c *S3Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, &model.StorageError{Op: "head", Key: key, Err: err}
	}
	return true, nil
}

// Delete removes an object.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return &model.StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// GetSignedURL generates a presigned URL for temporary access.
func (c *S3Client) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	presignedReq, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", &model.StorageError{Op: "sign", Key: key, Err: err}
	}

	return presignedReq.URL, nil
}

// GetPublicURL returns the public CDN URL for a key.
func (c *S3Client) GetPublicURL(key string) string {
	if c.publicURL != "" {
		return fmt.Sprintf("%s/%s", c.publicURL, key)
	}
	return fmt.Sprintf("https://%s/%s", c.bucketName, key)
}

// IsConfigured returns true if the client has valid configuration.
func (c *S3Client) IsConfigured() bool {
	return c.s3Client != nil && c.bucketName != ""
}
