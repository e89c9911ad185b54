package serial

import (
	"context"
	"fmt"
	"time"

	domainSerial "github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/prometheus"
	extractor "github.com/turtacn/Serial-Intelligence/internal/intelligence/serial_extractor"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// ExtractionService recognises serials in text and generates serial ranges.
type ExtractionService interface {
	Extract(ctx context.Context, req *extractor.Request) (*extractor.ExtractionResult, error)
	GenerateRange(ctx context.Context, input *GenerateInput) (*GenerateOutput, error)
}

// GenerateInput selects a stored prefix_suffix pattern by PatternID, or an
// inline Config when PatternID is zero. Step defaults to 1.
type GenerateInput struct {
	PatternID int64
	Config    *domainSerial.PrefixSuffixConfig
	Start     int64
	End       int64
	Step      int64
}

// GenerateOutput is the generated range. Suggestions carries non-fatal
// warnings such as a range outside the pattern's own bounds.
type GenerateOutput struct {
	PatternID   int64    `json:"pattern_id,omitempty"`
	Serials     []string `json:"serials"`
	Count       int      `json:"count"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type extractionServiceImpl struct {
	engine    *extractor.Engine
	patterns  PatternSource
	publisher EventPublisher
	metrics   *prometheus.SerialMetrics
	logger    logging.Logger
}

// NewExtractionService creates the extraction service. publisher and metrics
// may be nil.
func NewExtractionService(
	engine *extractor.Engine,
	patterns PatternSource,
	publisher EventPublisher,
	metrics *prometheus.SerialMetrics,
	logger logging.Logger,
) ExtractionService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &extractionServiceImpl{
		engine:    engine,
		patterns:  patterns,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("extraction_service"),
	}
}

func (s *extractionServiceImpl) Extract(ctx context.Context, req *extractor.Request) (*extractor.ExtractionResult, error) {
	start := time.Now()
	if req == nil || !req.HasSource() {
		s.metrics.RecordExtraction(prometheus.StatusInvalid, 0, time.Since(start))
		return nil, errors.Validation("at least one of input_text, ocr_text or barcodes is required")
	}

	patterns, err := s.patterns.ApplicablePatterns(ctx, req.ProductID)
	if err != nil {
		s.metrics.RecordExtraction(prometheus.StatusError, 0, time.Since(start))
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to load serial patterns")
	}

	res, err := s.engine.Extract(ctx, req, patterns)
	if err != nil {
		s.metrics.RecordExtraction(statusOf(err), 0, time.Since(start))
		return nil, err
	}

	st := res.Statistics
	s.metrics.RecordExtraction(prometheus.StatusSuccess, st.TotalExtracted, time.Since(start))
	for _, f := range res.Failures {
		s.metrics.RecordPartialFailure(string(f.Kind))
	}
	s.logger.Info("Serials extracted",
		logging.Int("total", st.TotalExtracted),
		logging.Int("high_confidence", st.HighConfidenceCount),
		logging.Int("failures", len(res.Failures)),
		logging.Duration("elapsed", time.Since(start)))

	publish(ctx, s.publisher, s.logger, kafka.TopicSerialExtracted, kafka.EventSerialsExtracted, productKey(req.ProductID),
		kafka.SerialsExtractedPayload{
			ProductID:           req.ProductID,
			TotalExtracted:      st.TotalExtracted,
			HighConfidenceCount: st.HighConfidenceCount,
			PatternMatchedCount: st.PatternMatchedCount,
			AverageConfidence:   st.AverageConfidence,
			FailureCount:        len(res.Failures),
			ExtractedAt:         time.Now().UTC(),
		})
	return res, nil
}

func (s *extractionServiceImpl) GenerateRange(ctx context.Context, input *GenerateInput) (*GenerateOutput, error) {
	out, err := s.generate(ctx, input)
	if err != nil {
		s.metrics.RecordGeneration(statusOf(err), 0)
		return nil, err
	}
	s.metrics.RecordGeneration(prometheus.StatusSuccess, out.Count)
	return out, nil
}

func (s *extractionServiceImpl) generate(ctx context.Context, input *GenerateInput) (*GenerateOutput, error) {
	if input == nil {
		return nil, errors.Validation("generation input is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "generation cancelled")
	}
	step := input.Step
	if step == 0 {
		step = 1
	}

	if input.PatternID == 0 {
		if input.Config == nil {
			return nil, errors.Validation("pattern_id or an inline prefix_suffix config is required")
		}
		if err := domainSerial.PrefixSuffix(*input.Config).Validate(domainSerial.PatternTypePrefixSuffix); err != nil {
			return nil, err
		}
		res, err := s.engine.Generate(*input.Config, input.Start, input.End, step)
		if err != nil {
			return nil, err
		}
		return &GenerateOutput{Serials: res.Serials, Count: res.Count}, nil
	}

	p, err := s.patterns.GetPattern(ctx, input.PatternID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive || p.Type != domainSerial.PatternTypePrefixSuffix || p.Config.PrefixSuffix == nil {
		return nil, errors.Newf(errors.ErrCodePatternNotFound,
			"pattern %d is not an active prefix_suffix pattern", input.PatternID)
	}

	res, err := s.engine.GenerateRange(p, input.Start, input.End, step)
	if err != nil {
		return nil, err
	}
	out := &GenerateOutput{PatternID: p.ID, Serials: res.Serials, Count: res.Count}
	if warning, ok := extractor.OutOfBounds(*p.Config.PrefixSuffix, input.Start, input.End); ok {
		out.Suggestions = append(out.Suggestions, warning)
	}

	s.logger.Info("Serial range generated",
		logging.Int64("pattern_id", p.ID),
		logging.Int("count", out.Count))
	publish(ctx, s.publisher, s.logger, kafka.TopicSerialGenerated, kafka.EventSerialsGenerated, fmt.Sprint(p.ID),
		kafka.SerialsGeneratedPayload{
			PatternID:   p.ID,
			Start:       input.Start,
			End:         input.End,
			Step:        step,
			Count:       out.Count,
			GeneratedAt: time.Now().UTC(),
		})
	return out, nil
}

func statusOf(err error) string {
	if errors.IsValidation(err) || errors.IsNotFound(err) {
		return prometheus.StatusInvalid
	}
	return prometheus.StatusError
}

func productKey(productID *int64) string {
	if productID == nil {
		return "global"
	}
	return fmt.Sprint(*productID)
}

//Personal.AI order the ending
