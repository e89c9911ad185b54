package serial

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	domainSerial "github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/export"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
	"github.com/turtacn/Serial-Intelligence/pkg/types/common"
)

const (
	patternCachePrefix     = "patterns:"
	defaultPatternCacheTTL = 5 * time.Minute
	exportPageSize         = common.MaxPageSize
)

// PatternService administers serial patterns and serves the active-pattern
// snapshots used by extraction.
type PatternService interface {
	CreatePattern(ctx context.Context, input *CreatePatternInput) (*domainSerial.SerialPattern, error)
	UpdatePattern(ctx context.Context, input *UpdatePatternInput) (*domainSerial.SerialPattern, error)
	GetPattern(ctx context.Context, id int64) (*domainSerial.SerialPattern, error)
	ListPatterns(ctx context.Context, input *ListPatternsInput) (*PatternList, error)
	DeletePattern(ctx context.Context, id int64) error
	SetPatternActive(ctx context.Context, id int64, active bool) (*domainSerial.SerialPattern, error)
	ImportPatterns(ctx context.Context, data []byte) (*ImportResult, error)
	ExportPatterns(ctx context.Context, filter domainSerial.PatternFilter) ([]byte, error)
	ApplicablePatterns(ctx context.Context, productID *int64) ([]*domainSerial.SerialPattern, error)
	InvalidateCache(ctx context.Context) error
	HandlePatternChanged(ctx context.Context, msg *common.Message) error
}

// CreatePatternInput contains input for creating a pattern. Config is the raw
// pattern_config object; it is checked against the schema for Type.
type CreatePatternInput struct {
	Name      string
	Type      domainSerial.PatternType
	Config    json.RawMessage
	ProductID *int64
	IsActive  *bool
}

// UpdatePatternInput contains input for updating a pattern. Nil fields are
// left unchanged. Global moves the pattern to the global scope.
type UpdatePatternInput struct {
	ID        int64
	Name      *string
	Type      *domainSerial.PatternType
	Config    json.RawMessage
	ProductID *int64
	Global    bool
	IsActive  *bool
}

// ListPatternsInput contains input for listing patterns.
type ListPatternsInput struct {
	Filter     domainSerial.PatternFilter
	Name       string
	SortBy     string
	Ascending  bool
	Pagination common.Pagination
}

// PatternList is a page of patterns.
type PatternList = common.PageResponse[*domainSerial.SerialPattern]

// ImportSkip records a pattern that was not imported.
type ImportSkip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportResult summarises ImportPatterns.
type ImportResult struct {
	Created int          `json:"created"`
	Skipped []ImportSkip `json:"skipped"`
}

// PatternServiceConfig tunes the snapshot cache.
type PatternServiceConfig struct {
	CacheTTL time.Duration
}

type patternServiceImpl struct {
	repo      domainSerial.PatternRepository
	cache     redis.Cache
	publisher EventPublisher
	metrics   *prometheus.SerialMetrics
	cacheTTL  time.Duration
	logger    logging.Logger
}

// NewPatternService creates the pattern service. cache, publisher and
// metrics may be nil.
func NewPatternService(
	repo domainSerial.PatternRepository,
	cache redis.Cache,
	publisher EventPublisher,
	metrics *prometheus.SerialMetrics,
	cfg PatternServiceConfig,
	logger logging.Logger,
) PatternService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultPatternCacheTTL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &patternServiceImpl{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		cacheTTL:  cfg.CacheTTL,
		logger:    logger.Named("pattern_service"),
	}
}

func (s *patternServiceImpl) CreatePattern(ctx context.Context, input *CreatePatternInput) (*domainSerial.SerialPattern, error) {
	if input == nil {
		return nil, errors.Validation("pattern input is required")
	}
	if len(input.Config) == 0 {
		return nil, errors.New(errors.ErrCodePatternConfigInvalid, "pattern_config is required")
	}
	cfg, err := domainSerial.DecodeConfig(input.Type, input.Config)
	if err != nil {
		return nil, err
	}
	p, err := domainSerial.NewSerialPattern(input.Name, cfg, input.ProductID)
	if err != nil {
		return nil, err
	}
	if input.IsActive != nil && !*input.IsActive {
		p.Deactivate()
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Serial pattern created",
		logging.Int64("pattern_id", p.ID),
		logging.String("name", p.Name),
		logging.String("type", string(p.Type)))
	s.changed(ctx, p, kafka.PatternCreated)
	return p, nil
}

func (s *patternServiceImpl) UpdatePattern(ctx context.Context, input *UpdatePatternInput) (*domainSerial.SerialPattern, error) {
	if input == nil {
		return nil, errors.Validation("pattern input is required")
	}
	p, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		p.Name = *input.Name
	}
	switch {
	case input.Global:
		p.ProductID = nil
	case input.ProductID != nil:
		id := *input.ProductID
		p.ProductID = &id
	}
	if input.Type != nil && len(input.Config) == 0 && *input.Type != p.Type {
		return nil, errors.New(errors.ErrCodePatternConfigInvalid, "changing pattern_type requires a new pattern_config")
	}
	if len(input.Config) > 0 {
		t := p.Type
		if input.Type != nil {
			t = *input.Type
		}
		cfg, err := domainSerial.DecodeConfig(t, input.Config)
		if err != nil {
			return nil, err
		}
		p.Type, p.Config = t, cfg
	}
	if input.IsActive != nil {
		if *input.IsActive {
			p.Activate()
		} else {
			p.Deactivate()
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Serial pattern updated", logging.Int64("pattern_id", p.ID))
	s.changed(ctx, p, kafka.PatternUpdated)
	return p, nil
}

func (s *patternServiceImpl) GetPattern(ctx context.Context, id int64) (*domainSerial.SerialPattern, error) {
	if id <= 0 {
		return nil, errors.InvalidParam("pattern id must be positive")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *patternServiceImpl) ListPatterns(ctx context.Context, input *ListPatternsInput) (*PatternList, error) {
	if input == nil {
		input = &ListPatternsInput{}
	}
	page := input.Pagination
	if page.Page == 0 {
		page.Page = 1
	}
	if page.PageSize == 0 {
		page.PageSize = common.DefaultPageSize
	}
	if err := page.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}

	opts := []domainSerial.QueryOption{domainSerial.WithPagination(page.Offset(), page.PageSize)}
	if input.SortBy != "" {
		opts = append(opts, domainSerial.WithSortBy(input.SortBy, input.Ascending))
	}
	if input.Name != "" {
		opts = append(opts, domainSerial.WithNameFilter(input.Name))
	}
	items, total, err := s.repo.List(ctx, input.Filter, opts...)
	if err != nil {
		return nil, err
	}
	res := common.NewPageResponse(items, total, page)
	return &res, nil
}

func (s *patternServiceImpl) DeletePattern(ctx context.Context, id int64) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Serial pattern deleted", logging.Int64("pattern_id", id))
	s.changed(ctx, p, kafka.PatternDeleted)
	return nil
}

func (s *patternServiceImpl) SetPatternActive(ctx context.Context, id int64, active bool) (*domainSerial.SerialPattern, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	action := kafka.PatternDeactivated
	if active {
		action = kafka.PatternActivated
	}
	s.logger.Info("Serial pattern activation changed",
		logging.Int64("pattern_id", id),
		logging.Bool("active", active))
	s.changed(ctx, p, action)
	return p, nil
}

// ImportPatterns creates every pattern in a YAML pattern file. The file is
// validated as a whole first; patterns whose name already exists in their
// scope are skipped and reported.
func (s *patternServiceImpl) ImportPatterns(ctx context.Context, data []byte) (*ImportResult, error) {
	patterns, err := export.ParsePatternFile(data)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Skipped: []ImportSkip{}}
	for _, p := range patterns {
		if err := s.repo.Create(ctx, p); err != nil {
			if errors.IsConflict(err) {
				res.Skipped = append(res.Skipped, ImportSkip{Name: p.Name, Reason: "a pattern with this name already exists"})
				continue
			}
			if res.Created > 0 {
				s.changed(ctx, nil, kafka.PatternsImported)
			}
			return res, err
		}
		res.Created++
	}

	s.logger.Info("Serial patterns imported",
		logging.Int("created", res.Created),
		logging.Int("skipped", len(res.Skipped)))
	if res.Created > 0 {
		s.changed(ctx, nil, kafka.PatternsImported)
	}
	return res, nil
}

// ExportPatterns renders every pattern matching filter as a YAML pattern file.
func (s *patternServiceImpl) ExportPatterns(ctx context.Context, filter domainSerial.PatternFilter) ([]byte, error) {
	var all []*domainSerial.SerialPattern
	for offset := 0; ; offset += exportPageSize {
		page, total, err := s.repo.List(ctx, filter,
			domainSerial.WithPagination(offset, exportPageSize),
			domainSerial.WithSortBy(domainSerial.SortByID, true))
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < exportPageSize || int64(len(all)) >= total {
			break
		}
	}
	return export.EncodePatternFile(all)
}

// ---------------------------------------------------------------------------
// Snapshot cache
// ---------------------------------------------------------------------------

// snapshotPattern is the cached form of a pattern. Config stays raw so that a
// pattern with an unusable stored config survives the round trip and is
// still reported by the matcher.
type snapshotPattern struct {
	ID        int64                    `json:"id"`
	Name      string                   `json:"name"`
	Type      domainSerial.PatternType `json:"type"`
	Config    json.RawMessage          `json:"config,omitempty"`
	ProductID *int64                   `json:"product_id,omitempty"`
	IsActive  bool                     `json:"is_active"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

func toSnapshot(patterns []*domainSerial.SerialPattern) []snapshotPattern {
	out := make([]snapshotPattern, 0, len(patterns))
	for _, p := range patterns {
		sp := snapshotPattern{
			ID:        p.ID,
			Name:      p.Name,
			Type:      p.Type,
			ProductID: p.ProductID,
			IsActive:  p.IsActive,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		if raw, err := domainSerial.EncodeConfig(p.Config); err == nil {
			sp.Config = raw
		}
		out = append(out, sp)
	}
	return out
}

func fromSnapshot(snap []snapshotPattern) []*domainSerial.SerialPattern {
	out := make([]*domainSerial.SerialPattern, 0, len(snap))
	for _, sp := range snap {
		p := &domainSerial.SerialPattern{
			ID:        sp.ID,
			Name:      sp.Name,
			Type:      sp.Type,
			ProductID: sp.ProductID,
			IsActive:  sp.IsActive,
			CreatedAt: sp.CreatedAt,
			UpdatedAt: sp.UpdatedAt,
		}
		if len(sp.Config) > 0 {
			// Unusable configs are kept as decoded; the matcher skips them.
			p.Config, _ = domainSerial.DecodeStoredConfig(sp.Type, sp.Config)
		}
		out = append(out, p)
	}
	return out
}

func snapshotKey(productID *int64) string {
	if productID == nil {
		return patternCachePrefix + "applicable:global"
	}
	return patternCachePrefix + "applicable:" + strconv.FormatInt(*productID, 10)
}

// ApplicablePatterns returns the active patterns for productID, served from
// the snapshot cache when one is configured.
func (s *patternServiceImpl) ApplicablePatterns(ctx context.Context, productID *int64) ([]*domainSerial.SerialPattern, error) {
	if s.cache == nil {
		return s.repo.ListApplicable(ctx, productID)
	}

	loaded := false
	var snap []snapshotPattern
	err := s.cache.GetOrSet(ctx, snapshotKey(productID), &snap, s.cacheTTL, func(ctx context.Context) (interface{}, error) {
		loaded = true
		patterns, err := s.repo.ListApplicable(ctx, productID)
		if err != nil {
			return nil, err
		}
		return toSnapshot(patterns), nil
	})
	if err != nil {
		s.metrics.RecordCacheAccess(prometheus.CacheError)
		if !loaded {
			s.logger.Warn("Pattern snapshot unavailable from cache, reading store", logging.Err(err))
			return s.repo.ListApplicable(ctx, productID)
		}
		return nil, err
	}
	if loaded {
		s.metrics.RecordCacheAccess(prometheus.CacheMiss)
	} else {
		s.metrics.RecordCacheAccess(prometheus.CacheHit)
	}
	return fromSnapshot(snap), nil
}

// InvalidateCache drops every cached pattern snapshot.
func (s *patternServiceImpl) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	n, err := s.cache.DeleteByPrefix(ctx, patternCachePrefix)
	if err != nil {
		return err
	}
	s.logger.Debug("Pattern snapshots invalidated", logging.Int64("keys", n))
	return nil
}

// HandlePatternChanged is the consumer handler for TopicPatternChanged. It
// drops snapshots left behind when the publishing instance could not reach
// the cache.
func (s *patternServiceImpl) HandlePatternChanged(ctx context.Context, msg *common.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	var payload kafka.PatternChangedPayload
	if err := env.DecodePayload(&payload); err != nil {
		return err
	}
	s.logger.Debug("Pattern change received",
		logging.String("action", payload.Action),
		logging.Int64("pattern_id", payload.PatternID))
	return s.InvalidateCache(ctx)
}

// changed invalidates snapshots and announces the change. p is nil for bulk
// changes.
func (s *patternServiceImpl) changed(ctx context.Context, p *domainSerial.SerialPattern, action string) {
	if err := s.InvalidateCache(ctx); err != nil {
		s.logger.Warn("Failed to invalidate pattern snapshots", logging.Err(err))
	}
	payload := kafka.PatternChangedPayload{Action: action, ChangedAt: time.Now().UTC()}
	key := action
	if p != nil {
		payload.PatternID = p.ID
		payload.ProductID = p.ProductID
		key = fmt.Sprint(p.ID)
	}
	publish(ctx, s.publisher, s.logger, kafka.TopicPatternChanged, kafka.EventPatternChanged, key, payload)
}

//Personal.AI order the ending
