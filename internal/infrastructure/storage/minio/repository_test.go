package minio

import (
	"context"
	stderrors "errors"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/Serial-Intelligence/internal/config"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

type ExportStoreTestSuite struct {
	suite.Suite
	api   *MockMinIOAPI
	store *ExportStore
}

func (s *ExportStoreTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	client := newClient(s.api, config.MinIOConfig{}, config.ExportConfig{Bucket: "exports-test", PresignTTL: 10 * time.Minute}, logging.NewNopLogger())
	s.store = NewExportStore(client, logging.NewNopLogger())
}

func (s *ExportStoreTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *ExportStoreTestSuite) TestObjectKey() {
	at := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	s.Equal("exports/2026/03/job.xlsx", ObjectKey("job.xlsx", at))
}

func (s *ExportStoreTestSuite) TestUpload_Success() {
	data := []byte("serial\nSN-0001\n")
	s.api.On("PutObject", mock.Anything, "exports-test", "exports/2026/03/a.csv", mock.Anything, int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/csv", UserMetadata: map[string]string{"rows": "1"}}).
		Return(minio.UploadInfo{Bucket: "exports-test", Key: "exports/2026/03/a.csv", ETag: "etag", Size: int64(len(data))}, nil)

	res, err := s.store.Upload(context.Background(), &UploadRequest{
		ObjectKey:   "exports/2026/03/a.csv",
		Data:        data,
		ContentType: "text/csv",
		Metadata:    map[string]string{"rows": "1"},
	})
	s.Require().NoError(err)
	s.Equal("etag", res.ETag)
	s.Equal("exports-test", res.Bucket)
	s.Equal(int64(len(data)), res.Size)
}

func (s *ExportStoreTestSuite) TestUpload_Invalid() {
	_, err := s.store.Upload(context.Background(), &UploadRequest{ObjectKey: "k"})
	s.ErrorIs(err, ErrInvalidRequest)

	_, err = s.store.Upload(context.Background(), nil)
	s.ErrorIs(err, ErrInvalidRequest)
}

func (s *ExportStoreTestSuite) TestUpload_Failure() {
	s.api.On("PutObject", mock.Anything, "exports-test", "k", mock.Anything, int64(1), mock.Anything).
		Return(minio.UploadInfo{}, stderrors.New("connection reset"))

	_, err := s.store.Upload(context.Background(), &UploadRequest{ObjectKey: "k", Data: []byte("x")})
	s.True(errors.IsCode(err, errors.ErrCodeStorageError))
}

func (s *ExportStoreTestSuite) TestPresignedURL() {
	u, _ := url.Parse("http://minio:9000/exports-test/k?X-Amz-Signature=abc")
	s.api.On("PresignedGetObject", mock.Anything, "exports-test", "k", 10*time.Minute, url.Values(nil)).Return(u, nil)

	link, expires, err := s.store.PresignedURL(context.Background(), "k")
	s.Require().NoError(err)
	s.Equal(u.String(), link)
	s.WithinDuration(time.Now().Add(10*time.Minute), expires, 5*time.Second)
}

func (s *ExportStoreTestSuite) TestPresignedURL_Error() {
	s.api.On("PresignedGetObject", mock.Anything, "exports-test", "k", mock.Anything, mock.Anything).Return(nil, stderrors.New("bad key"))

	_, _, err := s.store.PresignedURL(context.Background(), "k")
	s.True(errors.IsCode(err, errors.ErrCodeStorageError))
}

func (s *ExportStoreTestSuite) TestExists() {
	s.api.On("StatObject", mock.Anything, "exports-test", "present", mock.Anything).Return(minio.ObjectInfo{Key: "present"}, nil)
	s.api.On("StatObject", mock.Anything, "exports-test", "absent", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})
	s.api.On("StatObject", mock.Anything, "exports-test", "broken", mock.Anything).
		Return(minio.ObjectInfo{}, stderrors.New("timeout"))

	ok, err := s.store.Exists(context.Background(), "present")
	s.NoError(err)
	s.True(ok)

	ok, err = s.store.Exists(context.Background(), "absent")
	s.NoError(err)
	s.False(ok)

	_, err = s.store.Exists(context.Background(), "broken")
	s.True(errors.IsCode(err, errors.ErrCodeStorageError))
}

func (s *ExportStoreTestSuite) TestDelete() {
	s.api.On("RemoveObject", mock.Anything, "exports-test", "k", minio.RemoveObjectOptions{}).Return(nil)
	s.NoError(s.store.Delete(context.Background(), "k"))
}

func (s *ExportStoreTestSuite) TestClosedClient() {
	s.NoError(s.store.client.Close())
	_, err := s.store.Upload(context.Background(), &UploadRequest{ObjectKey: "k", Data: []byte("x")})
	s.ErrorIs(err, ErrMinIOClientClosed)
}

func TestExportStoreTestSuite(t *testing.T) {
	suite.Run(t, new(ExportStoreTestSuite))
}

//Personal.AI order the ending
