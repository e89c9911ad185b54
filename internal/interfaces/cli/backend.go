package cli

import (
	"context"
	"fmt"
	"os"

	app "github.com/turtacn/Serial-Intelligence/internal/application/serial"
	"github.com/turtacn/Serial-Intelligence/internal/bootstrap"
	"github.com/turtacn/Serial-Intelligence/internal/config"
	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/export"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	extractor "github.com/turtacn/Serial-Intelligence/internal/intelligence/serial_extractor"
	"github.com/turtacn/Serial-Intelligence/pkg/client"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// Backend runs extraction and generation either in-process or remotely.
// Both speak the SDK's wire types so commands render one shape.
type Backend interface {
	Extract(ctx context.Context, req *client.ExtractRequest) (*client.ExtractionResult, error)
	Generate(ctx context.Context, req *client.GenerateRequest) (*client.GenerateResult, error)
}

// ---------------------------------------------------------------------------
// Remote
// ---------------------------------------------------------------------------

type remoteBackend struct {
	client *client.Client
}

func (b *remoteBackend) Extract(ctx context.Context, req *client.ExtractRequest) (*client.ExtractionResult, error) {
	return b.client.Serials().Extract(ctx, req)
}

func (b *remoteBackend) Generate(ctx context.Context, req *client.GenerateRequest) (*client.GenerateResult, error) {
	return b.client.Serials().Generate(ctx, req)
}

// ---------------------------------------------------------------------------
// Local
// ---------------------------------------------------------------------------

// filePatterns serves patterns read from a YAML file. IDs are the 1-based
// position in the file.
type filePatterns struct {
	patterns []*serial.SerialPattern
}

func loadFilePatterns(path string) (*filePatterns, error) {
	if path == "" {
		return &filePatterns{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeSerialValidation, "failed to read pattern file %s", path)
	}
	patterns, err := export.ParsePatternFile(data)
	if err != nil {
		return nil, err
	}
	for i, p := range patterns {
		p.ID = int64(i + 1)
	}
	return &filePatterns{patterns: patterns}, nil
}

func (f *filePatterns) GetPattern(_ context.Context, id int64) (*serial.SerialPattern, error) {
	if id < 1 || id > int64(len(f.patterns)) {
		return nil, errors.Newf(errors.ErrCodePatternNotFound, "pattern %d not found in pattern file", id)
	}
	return f.patterns[id-1], nil
}

func (f *filePatterns) ApplicablePatterns(_ context.Context, productID *int64) ([]*serial.SerialPattern, error) {
	out := make([]*serial.SerialPattern, 0, len(f.patterns))
	for _, p := range f.patterns {
		if p.IsActive && p.AppliesTo(productID) {
			out = append(out, p)
		}
	}
	return out, nil
}

type localBackend struct {
	svc      app.ExtractionService
	patterns *filePatterns
}

// newLocalBackend builds the engine from the engine config section. Events
// and metrics are not emitted locally.
func newLocalBackend(cfg *config.Config, patternFile string, logger logging.Logger) (*localBackend, error) {
	patterns, err := loadFilePatterns(patternFile)
	if err != nil {
		return nil, err
	}
	engineCfg := extractor.DefaultEngineConfig()
	if cfg != nil {
		if engineCfg, err = bootstrap.EngineConfigFrom(cfg.Engine); err != nil {
			return nil, err
		}
	}
	engine := extractor.NewEngine(engineCfg, logger)
	logger.Debug("Local engine ready",
		logging.String("pattern_file", patternFile),
		logging.Int("patterns", len(patterns.patterns)))
	return &localBackend{
		svc:      app.NewExtractionService(engine, patterns, nil, nil, logger),
		patterns: patterns,
	}, nil
}

func (b *localBackend) Extract(ctx context.Context, req *client.ExtractRequest) (*client.ExtractionResult, error) {
	if req == nil {
		return nil, errors.Validation("request is required")
	}
	in := &extractor.Request{
		InputText: req.InputText,
		OCRText:   req.OCRText,
		ProductID: req.ProductID,
	}
	for _, bc := range req.Barcodes {
		in.Barcodes = append(in.Barcodes, extractor.Barcode{Value: bc.Value, Confidence: bc.Confidence})
	}

	res, err := b.svc.Extract(ctx, in)
	if err != nil {
		return nil, err
	}
	return toClientResult(res), nil
}

func (b *localBackend) Generate(ctx context.Context, req *client.GenerateRequest) (*client.GenerateResult, error) {
	if req == nil {
		return nil, errors.Validation("request is required")
	}
	in := &app.GenerateInput{
		PatternID: req.PatternID,
		Start:     req.Start,
		End:       req.End,
		Step:      req.Step,
	}
	if req.Config != nil {
		in.Config = &serial.PrefixSuffixConfig{
			Prefix:  req.Config.Prefix,
			Suffix:  req.Config.Suffix,
			Padding: req.Config.Padding,
			Start:   req.Config.Start,
			End:     req.Config.End,
		}
	}

	out, err := b.svc.GenerateRange(ctx, in)
	if err != nil {
		return nil, err
	}
	return &client.GenerateResult{
		PatternID:   out.PatternID,
		Serials:     out.Serials,
		Count:       out.Count,
		Suggestions: out.Suggestions,
	}, nil
}

func toClientResult(res *extractor.ExtractionResult) *client.ExtractionResult {
	out := &client.ExtractionResult{
		ExtractedSerials: res.ExtractedSerials,
		DetailedResults:  make([]client.ExtractedSerial, len(res.DetailedResults)),
		Statistics: client.ExtractionStatistics{
			TotalExtracted:      res.Statistics.TotalExtracted,
			HighConfidenceCount: res.Statistics.HighConfidenceCount,
			PatternMatchedCount: res.Statistics.PatternMatchedCount,
			AverageConfidence:   res.Statistics.AverageConfidence,
		},
		Suggestions: res.Suggestions,
		Failures:    make([]client.ParseFailure, len(res.Failures)),
	}
	for i, d := range res.DetailedResults {
		out.DetailedResults[i] = client.ExtractedSerial{
			Serial:     d.Serial,
			Confidence: d.Confidence,
			Pattern:    d.Pattern,
			PatternID:  d.PatternID,
			Source:     string(d.Source),
			Metadata:   d.Metadata,
		}
	}
	for i, f := range res.Failures {
		out.Failures[i] = client.ParseFailure{Expression: f.Expression, Reason: f.Reason, Kind: string(f.Kind)}
	}
	return out
}

// describePattern is a one-line summary used in local listings.
func describePattern(p *serial.SerialPattern) string {
	if p.ProductID == nil {
		return fmt.Sprintf("%s (%s, global)", p.Name, p.Type)
	}
	return fmt.Sprintf("%s (%s, product %d)", p.Name, p.Type, *p.ProductID)
}

//Personal.AI order the ending
