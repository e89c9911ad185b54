package minio

import (
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/Serial-Intelligence/internal/config"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// MinIOAPI is the subset of *minio.Client the export store uses.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

const (
	defaultRegion     = "us-east-1"
	defaultBucket     = "serial-exports"
	defaultPresignTTL = time.Hour
	// Exported files are kept this long before the bucket lifecycle rule
	// removes them.
	exportRetentionDays = 30
)

var ErrMinIOClientClosed = errors.New(errors.ErrCodeStorageError, "minio client is closed")

// Client owns the connection to the export bucket.
type Client struct {
	api        MinIOAPI
	bucket     string
	region     string
	presignTTL time.Duration
	logger     logging.Logger
	mu         sync.RWMutex
	closed     bool
}

// NewClient connects to MinIO, makes sure the export bucket exists and sets
// its expiry rule.
func NewClient(cfg config.MinIOConfig, export config.ExportConfig, log logging.Logger) (*Client, error) {
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}

	c := newClient(api, cfg, export, log)
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	c.setupLifecycle(ctx)

	log.Info("MinIO client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", c.bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func newClient(api MinIOAPI, cfg config.MinIOConfig, export config.ExportConfig, log logging.Logger) *Client {
	c := &Client{
		api:        api,
		bucket:     export.Bucket,
		region:     cfg.Region,
		presignTTL: export.PresignTTL,
		logger:     log,
	}
	if c.bucket == "" {
		c.bucket = defaultBucket
	}
	if c.region == "" {
		c.region = defaultRegion
	}
	if c.presignTTL <= 0 {
		c.presignTTL = defaultPresignTTL
	}
	return c
}

// EnsureBucket creates the export bucket when missing.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket existence").
			WithDetail("bucket=" + c.bucket)
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket").
			WithDetail("bucket=" + c.bucket)
	}
	c.logger.Info("Created bucket", logging.String("bucket", c.bucket))
	return nil
}

// setupLifecycle is best effort; some S3 gateways reject lifecycle calls.
func (c *Client) setupLifecycle(ctx context.Context) {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{{
		ID:         "exports-cleanup",
		Status:     "Enabled",
		RuleFilter: lifecycle.Filter{Prefix: ExportPrefix},
		Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(exportRetentionDays)},
	}}
	if err := c.api.SetBucketLifecycle(ctx, c.bucket, cfg); err != nil {
		c.logger.Warn("Failed to set lifecycle for exports bucket",
			logging.String("bucket", c.bucket), logging.Err(err))
	}
}

// Bucket returns the export bucket name.
func (c *Client) Bucket() string { return c.bucket }

// PresignTTL is the validity of download links.
func (c *Client) PresignTTL() time.Duration { return c.presignTTL }

func (c *Client) acquire() (MinIOAPI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrMinIOClientClosed
	}
	return c.api, nil
}

// HealthCheck lists buckets and checks the export bucket is present.
func (c *Client) HealthCheck(ctx context.Context) error {
	api, err := c.acquire()
	if err != nil {
		return err
	}
	if _, err := api.ListBuckets(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "minio health check failed")
	}
	exists, err := api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "minio health check failed")
	}
	if !exists {
		return errors.New(errors.ErrCodeStorageError, "export bucket missing").WithDetail("bucket=" + c.bucket)
	}
	return nil
}

// Close marks the client closed. The underlying HTTP transport needs no
// teardown.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

//Personal.AI order the ending
