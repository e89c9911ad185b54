package minio

import (
	"bytes"
	"context"
	"path"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// ExportPrefix is the key prefix of every exported file.
const ExportPrefix = "exports/"

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid upload request")
)

// UploadRequest describes one exported file.
type UploadRequest struct {
	ObjectKey   string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// UploadResult is returned after a successful upload.
type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	UploadedAt time.Time
}

// ExportStore keeps exported serial files in the export bucket and hands out
// presigned download links.
type ExportStore struct {
	client *Client
	logger logging.Logger
}

func NewExportStore(client *Client, log logging.Logger) *ExportStore {
	return &ExportStore{client: client, logger: log}
}

// ObjectKey builds the key for an export: exports/<yyyy>/<mm>/<name>.
func ObjectKey(name string, at time.Time) string {
	return ExportPrefix + path.Join(at.UTC().Format("2006/01"), name)
}

// Upload writes req to the export bucket.
func (s *ExportStore) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req == nil || req.ObjectKey == "" || len(req.Data) == 0 {
		return nil, ErrInvalidRequest
	}
	api, err := s.client.acquire()
	if err != nil {
		return nil, err
	}

	info, err := api.PutObject(ctx, s.client.bucket, req.ObjectKey, bytes.NewReader(req.Data), int64(len(req.Data)),
		minio.PutObjectOptions{ContentType: req.ContentType, UserMetadata: req.Metadata})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail("key=" + req.ObjectKey)
	}

	s.logger.Debug("Uploaded export",
		logging.String("bucket", s.client.bucket),
		logging.String("key", req.ObjectKey),
		logging.Int64("size", info.Size))
	return &UploadResult{
		Bucket:     s.client.bucket,
		ObjectKey:  req.ObjectKey,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// PresignedURL returns a GET link to key valid for the configured TTL.
func (s *ExportStore) PresignedURL(ctx context.Context, key string) (string, time.Time, error) {
	api, err := s.client.acquire()
	if err != nil {
		return "", time.Time{}, err
	}
	ttl := s.client.presignTTL
	u, err := api.PresignedGetObject(ctx, s.client.bucket, key, ttl, nil)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign export").WithDetail("key=" + key)
	}
	return u.String(), time.Now().Add(ttl).UTC(), nil
}

// Exists reports whether key is present.
func (s *ExportStore) Exists(ctx context.Context, key string) (bool, error) {
	api, err := s.client.acquire()
	if err != nil {
		return false, err
	}
	if _, err := api.StatObject(ctx, s.client.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat export")
	}
	return true, nil
}

// Delete removes key; a missing key is not an error.
func (s *ExportStore) Delete(ctx context.Context, key string) error {
	api, err := s.client.acquire()
	if err != nil {
		return err
	}
	if err := api.RemoveObject(ctx, s.client.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to delete export").WithDetail("key=" + key)
	}
	return nil
}

//Personal.AI order the ending
