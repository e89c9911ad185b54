package serial

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Serial-Intelligence/internal/config"
	domainSerial "github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/storage/minio"
)

// MockPatternRepository is a mock implementation of domainSerial.PatternRepository
type MockPatternRepository struct {
	mock.Mock
}

func (m *MockPatternRepository) Create(ctx context.Context, p *domainSerial.SerialPattern) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPatternRepository) Update(ctx context.Context, p *domainSerial.SerialPattern) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPatternRepository) GetByID(ctx context.Context, id int64) (*domainSerial.SerialPattern, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainSerial.SerialPattern), args.Error(1)
}

func (m *MockPatternRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPatternRepository) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockPatternRepository) List(ctx context.Context, filter domainSerial.PatternFilter, opts ...domainSerial.QueryOption) ([]*domainSerial.SerialPattern, int64, error) {
	args := m.Called(ctx, filter, domainSerial.ApplyOptions(opts...))
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domainSerial.SerialPattern), args.Get(1).(int64), args.Error(2)
}

func (m *MockPatternRepository) ListApplicable(ctx context.Context, productID *int64) ([]*domainSerial.SerialPattern, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domainSerial.SerialPattern), args.Error(1)
}

// MockExportJobRepository is a mock implementation of domainSerial.ExportJobRepository
type MockExportJobRepository struct {
	mock.Mock
}

func (m *MockExportJobRepository) Create(ctx context.Context, job *domainSerial.ExportJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockExportJobRepository) Update(ctx context.Context, job *domainSerial.ExportJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockExportJobRepository) Get(ctx context.Context, id uuid.UUID) (*domainSerial.ExportJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainSerial.ExportJob), args.Error(1)
}

// MockPublisher is a mock implementation of EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	args := m.Called(ctx, topic, eventType, key, payload)
	return args.Error(0)
}

// MockObjectStore is a mock implementation of ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Upload(ctx context.Context, req *minio.UploadRequest) (*minio.UploadResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*minio.UploadResult), args.Error(1)
}

func (m *MockObjectStore) PresignedURL(ctx context.Context, key string) (string, time.Time, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// MockPatternSource is a mock implementation of PatternSource
type MockPatternSource struct {
	mock.Mock
}

func (m *MockPatternSource) GetPattern(ctx context.Context, id int64) (*domainSerial.SerialPattern, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainSerial.SerialPattern), args.Error(1)
}

func (m *MockPatternSource) ApplicablePatterns(ctx context.Context, productID *int64) ([]*domainSerial.SerialPattern, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domainSerial.SerialPattern), args.Error(1)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

type redisFixture struct {
	server *miniredis.Miniredis
	client *redis.Client
	cache  redis.Cache
	locks  *redis.LockFactory
}

func newRedisFixture(t *testing.T) *redisFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return &redisFixture{
		server: mr,
		client: client,
		cache:  redis.NewRedisCache(client, logging.NewNopLogger(), redis.WithJitter(0)),
		locks:  redis.NewLockFactory(client, time.Minute),
	}
}

func newTestMetrics(t *testing.T) (*prometheus.SerialMetrics, prometheus.MetricsCollector) {
	t.Helper()
	c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "serial"}, logging.NewNopLogger())
	require.NoError(t, err)
	return prometheus.NewSerialMetrics(c), c
}

// counterValue reads one counter series from c.
func counterValue(t *testing.T, c prometheus.MetricsCollector, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := c.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue series
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func int64Ptr(v int64) *int64 { return &v }

func newPattern(t *testing.T, id int64, name string, cfg domainSerial.PatternConfig, productID *int64) *domainSerial.SerialPattern {
	t.Helper()
	p, err := domainSerial.NewSerialPattern(name, cfg, productID)
	require.NoError(t, err)
	p.ID = id
	p.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour)
	p.UpdatedAt = p.CreatedAt
	return p
}

//Personal.AI order the ending
