package serial

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	domainSerial "github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Serial-Intelligence/internal/testutil"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
	"github.com/turtacn/Serial-Intelligence/pkg/types/common"
)

type PatternServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	repo      *MockPatternRepository
	publisher *MockPublisher
	redis     *redisFixture
	metrics   *prometheus.SerialMetrics
	collector prometheus.MetricsCollector
	logger    *testutil.MockLogger
	svc       PatternService
}

func (s *PatternServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = new(MockPatternRepository)
	s.publisher = new(MockPublisher)
	s.redis = newRedisFixture(s.T())
	s.metrics, s.collector = newTestMetrics(s.T())
	s.logger = testutil.NewMockLogger()
	s.svc = NewPatternService(s.repo, s.redis.cache, s.publisher, s.metrics, PatternServiceConfig{}, s.logger)
}

func (s *PatternServiceTestSuite) TearDownTest() {
	s.repo.AssertExpectations(s.T())
	s.publisher.AssertExpectations(s.T())
}

func (s *PatternServiceTestSuite) expectChanged(action string) {
	s.publisher.On("PublishEvent", mock.Anything, kafka.TopicPatternChanged, kafka.EventPatternChanged, mock.Anything,
		mock.MatchedBy(func(p kafka.PatternChangedPayload) bool { return p.Action == action })).
		Return(nil).Once()
}

func (s *PatternServiceTestSuite) TestCreatePattern_Success() {
	s.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *domainSerial.SerialPattern) bool {
		return p.Name == "Widget SN" && p.Type == domainSerial.PatternTypePrefixSuffix && p.IsActive
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domainSerial.SerialPattern).ID = 9
	}).Return(nil)
	s.expectChanged(kafka.PatternCreated)

	p, err := s.svc.CreatePattern(s.ctx, &CreatePatternInput{
		Name:      "Widget SN",
		Type:      domainSerial.PatternTypePrefixSuffix,
		Config:    json.RawMessage(`{"prefix":"SN-","padding":4,"start":1,"end":9999}`),
		ProductID: int64Ptr(12),
	})

	s.Require().NoError(err)
	s.Equal(int64(9), p.ID)
	s.Equal(int64(12), *p.ProductID)
	s.True(s.logger.HasMessage("info", "Serial pattern created"))
}

func (s *PatternServiceTestSuite) TestCreatePattern_Inactive() {
	s.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *domainSerial.SerialPattern) bool { return !p.IsActive })).Return(nil)
	s.expectChanged(kafka.PatternCreated)

	inactive := false
	p, err := s.svc.CreatePattern(s.ctx, &CreatePatternInput{
		Name:     "Lot",
		Type:     domainSerial.PatternTypeRegex,
		Config:   json.RawMessage(`{"regex":"LOT-[0-9]+"}`),
		IsActive: &inactive,
	})
	s.Require().NoError(err)
	s.False(p.IsActive)
}

func (s *PatternServiceTestSuite) TestCreatePattern_InvalidConfig() {
	cases := []struct {
		name  string
		input *CreatePatternInput
		code  errors.ErrorCode
	}{
		{"nil input", nil, errors.ErrCodeSerialValidation},
		{"missing config", &CreatePatternInput{Name: "x", Type: domainSerial.PatternTypeRegex}, errors.ErrCodePatternConfigInvalid},
		{"bad regex", &CreatePatternInput{Name: "x", Type: domainSerial.PatternTypeRegex, Config: json.RawMessage(`{"regex":"SN-[0-9"}`)}, errors.ErrCodePatternConfigInvalid},
		{"wrong shape", &CreatePatternInput{Name: "x", Type: domainSerial.PatternTypePrefixSuffix, Config: json.RawMessage(`{"regex":"x"}`)}, errors.ErrCodePatternConfigInvalid},
		{"empty name", &CreatePatternInput{Type: domainSerial.PatternTypeRegex, Config: json.RawMessage(`{"regex":"x"}`)}, errors.ErrCodeSerialValidation},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.svc.CreatePattern(s.ctx, tc.input)
			s.Require().Error(err)
			s.Equal(tc.code, errors.GetCode(err))
		})
	}
	s.repo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *PatternServiceTestSuite) TestCreatePattern_Duplicate() {
	s.repo.On("Create", mock.Anything, mock.Anything).Return(errors.New(errors.ErrCodePatternDuplicate, "exists"))

	_, err := s.svc.CreatePattern(s.ctx, &CreatePatternInput{
		Name: "Lot", Type: domainSerial.PatternTypeRegex, Config: json.RawMessage(`{"regex":"A"}`),
	})
	s.True(errors.IsConflict(err))
}

func (s *PatternServiceTestSuite) TestUpdatePattern_ChangesConfigAndScope() {
	existing := newPattern(s.T(), 3, "Lot", domainSerial.Regex("A+"), int64Ptr(5))
	s.repo.On("GetByID", mock.Anything, int64(3)).Return(existing, nil)
	s.repo.On("Update", mock.Anything, existing).Return(nil)
	s.expectChanged(kafka.PatternUpdated)

	newType := domainSerial.PatternTypeSequential
	name := "Batch"
	p, err := s.svc.UpdatePattern(s.ctx, &UpdatePatternInput{
		ID:     3,
		Name:   &name,
		Type:   &newType,
		Config: json.RawMessage(`{"prefix":"B","min_length":4}`),
		Global: true,
	})

	s.Require().NoError(err)
	s.Equal("Batch", p.Name)
	s.Equal(domainSerial.PatternTypeSequential, p.Type)
	s.Require().NotNil(p.Config.Sequential)
	s.Nil(p.Config.Regex)
	s.True(p.IsGlobal())
}

func (s *PatternServiceTestSuite) TestUpdatePattern_TypeWithoutConfig() {
	existing := newPattern(s.T(), 3, "Lot", domainSerial.Regex("A+"), nil)
	s.repo.On("GetByID", mock.Anything, int64(3)).Return(existing, nil)

	newType := domainSerial.PatternTypeSequential
	_, err := s.svc.UpdatePattern(s.ctx, &UpdatePatternInput{ID: 3, Type: &newType})
	s.Equal(errors.ErrCodePatternConfigInvalid, errors.GetCode(err))
}

func (s *PatternServiceTestSuite) TestUpdatePattern_NotFound() {
	s.repo.On("GetByID", mock.Anything, int64(77)).Return(nil, errors.New(errors.ErrCodePatternNotFound, "missing"))

	_, err := s.svc.UpdatePattern(s.ctx, &UpdatePatternInput{ID: 77})
	s.True(errors.IsNotFound(err))
}

func (s *PatternServiceTestSuite) TestGetPattern_InvalidID() {
	_, err := s.svc.GetPattern(s.ctx, 0)
	s.Equal(errors.CodeInvalidParam, errors.GetCode(err))
}

func (s *PatternServiceTestSuite) TestListPatterns_DefaultsAndOptions() {
	items := []*domainSerial.SerialPattern{newPattern(s.T(), 1, "Lot", domainSerial.Regex("A"), nil)}
	filter := domainSerial.PatternFilter{ActiveOnly: true}
	s.repo.On("List", mock.Anything, filter, mock.MatchedBy(func(o domainSerial.QueryOptions) bool {
		return o.Offset == 20 && o.Limit == 20 && o.SortField == domainSerial.SortByName && o.SortAscending && o.NameKeyword == "lo"
	})).Return(items, int64(21), nil)

	res, err := s.svc.ListPatterns(s.ctx, &ListPatternsInput{
		Filter:     filter,
		Name:       "lo",
		SortBy:     domainSerial.SortByName,
		Ascending:  true,
		Pagination: common.Pagination{Page: 2},
	})

	s.Require().NoError(err)
	s.Equal(int64(21), res.Total)
	s.Equal(2, res.TotalPages)
	s.Equal(20, res.PageSize)
	s.Len(res.Items, 1)
}

func (s *PatternServiceTestSuite) TestListPatterns_InvalidPage() {
	_, err := s.svc.ListPatterns(s.ctx, &ListPatternsInput{Pagination: common.Pagination{Page: 1, PageSize: 1000}})
	s.Equal(errors.CodeInvalidParam, errors.GetCode(err))
}

func (s *PatternServiceTestSuite) TestDeletePattern() {
	existing := newPattern(s.T(), 4, "Lot", domainSerial.Regex("A"), nil)
	s.repo.On("GetByID", mock.Anything, int64(4)).Return(existing, nil)
	s.repo.On("Delete", mock.Anything, int64(4)).Return(nil)
	s.expectChanged(kafka.PatternDeleted)

	s.NoError(s.svc.DeletePattern(s.ctx, 4))
}

func (s *PatternServiceTestSuite) TestSetPatternActive() {
	existing := newPattern(s.T(), 4, "Lot", domainSerial.Regex("A"), nil)
	existing.Deactivate()
	s.repo.On("SetActive", mock.Anything, int64(4), false).Return(nil)
	s.repo.On("GetByID", mock.Anything, int64(4)).Return(existing, nil)
	s.expectChanged(kafka.PatternDeactivated)

	p, err := s.svc.SetPatternActive(s.ctx, 4, false)
	s.Require().NoError(err)
	s.False(p.IsActive)
}

func (s *PatternServiceTestSuite) TestImportPatterns_SkipsDuplicates() {
	doc := "version: 1\npatterns:\n" +
		"  - {name: Lot, type: regex, config: {regex: \"LOT-[0-9]+\"}}\n" +
		"  - {name: Widget, type: prefix_suffix, product_id: 3, config: {prefix: W, start: 1, end: 99}}\n"
	s.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *domainSerial.SerialPattern) bool { return p.Name == "Lot" })).
		Return(errors.New(errors.ErrCodePatternDuplicate, "exists"))
	s.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *domainSerial.SerialPattern) bool { return p.Name == "Widget" })).
		Return(nil)
	s.expectChanged(kafka.PatternsImported)

	res, err := s.svc.ImportPatterns(s.ctx, []byte(doc))
	s.Require().NoError(err)
	s.Equal(1, res.Created)
	s.Require().Len(res.Skipped, 1)
	s.Equal("Lot", res.Skipped[0].Name)
}

func (s *PatternServiceTestSuite) TestImportPatterns_InvalidFileCreatesNothing() {
	doc := "patterns:\n" +
		"  - {name: Lot, type: regex, config: {regex: \"A\"}}\n" +
		"  - {name: Bad, type: regex, config: {regex: \"[\"}}\n"

	_, err := s.svc.ImportPatterns(s.ctx, []byte(doc))
	s.Equal(errors.ErrCodePatternConfigInvalid, errors.GetCode(err))
	s.repo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *PatternServiceTestSuite) TestExportPatterns_PagesThroughStore() {
	first := make([]*domainSerial.SerialPattern, exportPageSize)
	for i := range first {
		first[i] = newPattern(s.T(), int64(i+1), fmt.Sprintf("P%03d", i), domainSerial.Regex("A"), nil)
	}
	last := []*domainSerial.SerialPattern{newPattern(s.T(), 999, "Tail", domainSerial.Regex("B"), nil)}
	s.repo.On("List", mock.Anything, domainSerial.PatternFilter{}, mock.MatchedBy(func(o domainSerial.QueryOptions) bool { return o.Offset == 0 })).
		Return(first, int64(exportPageSize+1), nil)
	s.repo.On("List", mock.Anything, domainSerial.PatternFilter{}, mock.MatchedBy(func(o domainSerial.QueryOptions) bool { return o.Offset == exportPageSize })).
		Return(last, int64(exportPageSize+1), nil)

	out, err := s.svc.ExportPatterns(s.ctx, domainSerial.PatternFilter{})
	s.Require().NoError(err)
	s.Contains(string(out), "name: Tail")
}

func (s *PatternServiceTestSuite) TestApplicablePatterns_CachesSnapshot() {
	pid := int64Ptr(12)
	patterns := []*domainSerial.SerialPattern{
		newPattern(s.T(), 1, "Widget", domainSerial.PrefixSuffix(domainSerial.PrefixSuffixConfig{Prefix: "SN-", Padding: 4, Start: 1, End: 9999}), pid),
		newPattern(s.T(), 2, "Lot", domainSerial.Regex("LOT-[0-9]+"), nil),
	}
	s.repo.On("ListApplicable", mock.Anything, pid).Return(patterns, nil).Once()

	first, err := s.svc.ApplicablePatterns(s.ctx, pid)
	s.Require().NoError(err)
	second, err := s.svc.ApplicablePatterns(s.ctx, pid)
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Require().Len(second, 2)
	s.Equal(*patterns[0].Config.PrefixSuffix, *second[0].Config.PrefixSuffix)
	s.Equal(patterns[1].CreatedAt, second[1].CreatedAt)
	s.True(s.redis.server.Exists("patterns:applicable:12"))
	s.Equal(float64(1), counterValue(s.T(), s.collector, "serial_pattern_cache_requests_total", map[string]string{"result": "miss"}))
	s.Equal(float64(1), counterValue(s.T(), s.collector, "serial_pattern_cache_requests_total", map[string]string{"result": "hit"}))
}

func (s *PatternServiceTestSuite) TestApplicablePatterns_KeepsUnusableConfig() {
	broken := &domainSerial.SerialPattern{ID: 5, Name: "Broken", Type: domainSerial.PatternTypeRegex,
		Config: domainSerial.PatternConfig{Regex: &domainSerial.RegexConfig{Regex: "SN-[0-9"}}, IsActive: true}
	s.repo.On("ListApplicable", mock.Anything, (*int64)(nil)).Return([]*domainSerial.SerialPattern{broken}, nil).Once()

	_, err := s.svc.ApplicablePatterns(s.ctx, nil)
	s.Require().NoError(err)
	cached, err := s.svc.ApplicablePatterns(s.ctx, nil)
	s.Require().NoError(err)

	s.Require().Len(cached, 1)
	s.Equal("Broken", cached[0].Name)
	s.Error(cached[0].Config.Validate(cached[0].Type))
}

func (s *PatternServiceTestSuite) TestApplicablePatterns_RepoError() {
	s.repo.On("ListApplicable", mock.Anything, (*int64)(nil)).Return(nil, errors.New(errors.ErrCodeDatabaseError, "down"))

	_, err := s.svc.ApplicablePatterns(s.ctx, nil)
	s.Equal(errors.ErrCodeDatabaseError, errors.GetCode(err))
	s.False(s.redis.server.Exists("patterns:applicable:global"))
}

func (s *PatternServiceTestSuite) TestMutationInvalidatesSnapshots() {
	s.repo.On("ListApplicable", mock.Anything, (*int64)(nil)).Return([]*domainSerial.SerialPattern{}, nil).Twice()
	_, err := s.svc.ApplicablePatterns(s.ctx, nil)
	s.Require().NoError(err)
	s.True(s.redis.server.Exists("patterns:applicable:global"))

	s.repo.On("SetActive", mock.Anything, int64(4), true).Return(nil)
	s.repo.On("GetByID", mock.Anything, int64(4)).Return(newPattern(s.T(), 4, "Lot", domainSerial.Regex("A"), nil), nil)
	s.expectChanged(kafka.PatternActivated)
	_, err = s.svc.SetPatternActive(s.ctx, 4, true)
	s.Require().NoError(err)

	s.False(s.redis.server.Exists("patterns:applicable:global"))
	_, err = s.svc.ApplicablePatterns(s.ctx, nil)
	s.Require().NoError(err)
}

func (s *PatternServiceTestSuite) TestPublishFailureDoesNotFailMutation() {
	s.repo.On("Delete", mock.Anything, int64(4)).Return(nil)
	s.repo.On("GetByID", mock.Anything, int64(4)).Return(newPattern(s.T(), 4, "Lot", domainSerial.Regex("A"), nil), nil)
	s.publisher.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New(errors.ErrCodeMessageQueueError, "broker down"))

	s.NoError(s.svc.DeletePattern(s.ctx, 4))
	s.True(s.logger.HasMessage("warn", "Failed to publish event"))
}

func (s *PatternServiceTestSuite) TestHandlePatternChanged() {
	s.Require().NoError(s.redis.cache.Set(s.ctx, "patterns:applicable:7", []int{1}, 0))

	env, err := kafka.NewEventEnvelope(kafka.EventPatternChanged, kafka.SourceService,
		kafka.PatternChangedPayload{PatternID: 1, Action: kafka.PatternUpdated})
	s.Require().NoError(err)
	msg, err := env.ToMessage(kafka.TopicPatternChanged)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.HandlePatternChanged(s.ctx, &common.Message{Topic: msg.Topic, Value: msg.Value}))
	s.False(s.redis.server.Exists("patterns:applicable:7"))

	s.Error(s.svc.HandlePatternChanged(s.ctx, &common.Message{Topic: kafka.TopicPatternChanged}))
}

func TestPatternServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PatternServiceTestSuite))
}

func TestPatternService_WithoutCache(t *testing.T) {
	repo := new(MockPatternRepository)
	repo.On("ListApplicable", mock.Anything, (*int64)(nil)).Return([]*domainSerial.SerialPattern{}, nil).Twice()
	svc := NewPatternService(repo, nil, nil, nil, PatternServiceConfig{}, nil)

	for i := 0; i < 2; i++ {
		got, err := svc.ApplicablePatterns(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.NoError(t, svc.InvalidateCache(context.Background()))
	repo.AssertExpectations(t)
}

//Personal.AI order the ending
