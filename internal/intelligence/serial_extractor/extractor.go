package serial_extractor

import (
	"context"
	"fmt"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// EngineConfig holds the tunable parameters of the pipeline.
type EngineConfig struct {
	MaxRangeSize int64
	Thresholds   Thresholds
	Order        PatternOrder
}

// DefaultEngineConfig returns production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxRangeSize: DefaultMaxRangeSize,
		Thresholds:   DefaultThresholds(),
		Order:        OrderCreatedDesc,
	}
}

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

// Engine composes tokenizer, range expander, matcher, scorer and aggregator.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	expander  *RangeExpander
	scorer    *Scorer
	generator *Generator
	order     PatternOrder
	logger    logging.Logger
}

// NewEngine builds an Engine. A nil logger discards output.
func NewEngine(cfg EngineConfig, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Order == nil {
		cfg.Order = OrderCreatedDesc
	}
	return &Engine{
		expander:  NewRangeExpander(cfg.MaxRangeSize),
		scorer:    NewScorer(cfg.Thresholds),
		generator: NewGenerator(cfg.MaxRangeSize),
		order:     cfg.Order,
		logger:    logger.Named("serial_extractor"),
	}
}

// MaxRangeSize returns the cap shared by expansion and generation.
func (e *Engine) MaxRangeSize() int64 { return e.expander.MaxSize() }

// Thresholds returns the scoring configuration.
func (e *Engine) Thresholds() Thresholds { return e.scorer.Thresholds() }

// PatternSet snapshots patterns for productID using the engine's order.
// Skipped patterns are logged at warn.
func (e *Engine) PatternSet(patterns []*serial.SerialPattern, productID *int64) *PatternSet {
	set := NewPatternSet(patterns, productID, e.order)
	for _, f := range set.skipped {
		e.logger.Warn("skipping pattern with invalid configuration",
			logging.String("pattern", f.Expression),
			logging.String("reason", f.Reason))
	}
	return set
}

// Extract recognises serials in req against patterns. It fails only when the
// request carries no source or ctx is done; partial problems are reported in
// the result's Failures.
func (e *Engine) Extract(ctx context.Context, req *Request, patterns []*serial.SerialPattern) (*ExtractionResult, error) {
	if req == nil || !req.HasSource() {
		return nil, errors.Validation("at least one of input_text, ocr_text or barcodes is required")
	}
	return e.ExtractWithSet(ctx, req, e.PatternSet(patterns, req.ProductID))
}

// ExtractWithSet is Extract with a prepared PatternSet.
func (e *Engine) ExtractWithSet(ctx context.Context, req *Request, set *PatternSet) (*ExtractionResult, error) {
	if req == nil || !req.HasSource() {
		return nil, errors.Validation("at least one of input_text, ocr_text or barcodes is required")
	}
	if set == nil {
		set = &PatternSet{}
	}
	agg := NewAggregator(e.scorer.Thresholds().High)

	if err := e.collectText(ctx, agg, set, req.InputText, SourceText, ""); err != nil {
		return nil, err
	}
	if err := e.collectText(ctx, agg, set, req.OCRText, SourceBarcode, OriginOCR); err != nil {
		return nil, err
	}
	for _, b := range req.Barcodes {
		value := Normalize(b.Value)
		if value == "" {
			continue
		}
		agg.Add(e.classify(set, value, SourceBarcode, OriginBarcode, "", b.Confidence))
	}

	for _, f := range set.skipped {
		agg.Fail(f)
	}
	res := agg.Result()
	e.logger.Debug("extraction complete",
		logging.Int("serials", res.Statistics.TotalExtracted),
		logging.Int("pattern_matched", res.Statistics.PatternMatchedCount),
		logging.Int("failures", len(res.Failures)))
	return res, nil
}

func (e *Engine) collectText(ctx context.Context, agg *Aggregator, set *PatternSet, text string, src Source, origin string) error {
	for _, tok := range Tokenize(text) {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCodeTimeout, "extraction cancelled")
		}
		if tok.Kind == TokenLiteral {
			agg.Add(e.classify(set, tok.Text, src, origin, "", nil))
			continue
		}
		values, failure := e.expander.Expand(tok.RangeStart, tok.RangeEnd)
		if failure != nil {
			e.logger.Debug("range expression rejected",
				logging.String("expression", failure.Expression),
				logging.String("reason", failure.Reason))
			agg.Fail(*failure)
			continue
		}
		for _, v := range values {
			agg.Add(e.classify(set, v, src, origin, tok.Text, nil))
		}
	}
	return nil
}

func (e *Engine) classify(set *PatternSet, value string, src Source, origin, rangeExpr string, reported *float64) ExtractedSerial {
	matched := set.Match(value)
	conf, heuristic := e.scorer.Score(value, matched, reported)
	es := ExtractedSerial{
		Serial:     value,
		Confidence: conf,
		Source:     src,
		Metadata:   map[string]string{MetaHeuristic: heuristic},
	}
	if matched != nil {
		es.Pattern = matched.DisplayName()
		es.PatternID = matched.ID
	}
	if origin != "" {
		es.Metadata[MetaOrigin] = origin
	}
	if rangeExpr != "" {
		es.Metadata[MetaRange] = rangeExpr
	}
	return es
}

// GenerateRange emits serials for a prefix_suffix pattern over start..end
// by step. Pattern lookup and activity checks belong to the caller.
func (e *Engine) GenerateRange(p *serial.SerialPattern, start, end, step int64) (*GenerationResult, error) {
	if p == nil || p.Type != serial.PatternTypePrefixSuffix || p.Config.PrefixSuffix == nil {
		return nil, errors.Validation("range generation requires a prefix_suffix pattern")
	}
	serials, err := e.generator.Generate(*p.Config.PrefixSuffix, start, end, step)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("range generated",
		logging.Int64("pattern_id", p.ID),
		logging.Int("count", len(serials)))
	return &GenerationResult{PatternID: p.ID, Serials: serials, Count: len(serials)}, nil
}

// Generate emits serials for an ad-hoc prefix/suffix configuration.
func (e *Engine) Generate(cfg serial.PrefixSuffixConfig, start, end, step int64) (*GenerationResult, error) {
	serials, err := e.generator.Generate(cfg, start, end, step)
	if err != nil {
		return nil, err
	}
	return &GenerationResult{Serials: serials, Count: len(serials)}, nil
}

// OutOfBounds reports whether start..end leaves the pattern's own range, and
// a human-readable warning when it does.
func OutOfBounds(cfg serial.PrefixSuffixConfig, start, end int64) (string, bool) {
	if start >= cfg.Start && end <= cfg.End {
		return "", false
	}
	return fmt.Sprintf("Requested range %d..%d lies outside the pattern's range %d..%d",
		start, end, cfg.Start, cfg.End), true
}

//Personal.AI order the ending
