package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Barcode is a decoded barcode value with an optional scanner confidence.
type Barcode struct {
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ExtractRequest carries the text sources to scan. At least one of the
// sources must be non-blank.
type ExtractRequest struct {
	InputText string    `json:"input_text,omitempty"`
	OCRText   string    `json:"ocr_text,omitempty"`
	Barcodes  []Barcode `json:"barcodes,omitempty"`
	ProductID *int64    `json:"product_id,omitempty"`
}

// ExtractedSerial is one serial with its confidence and provenance.
type ExtractedSerial struct {
	Serial     string            `json:"serial"`
	Confidence float64           `json:"confidence"`
	Pattern    string            `json:"pattern,omitempty"`
	PatternID  int64             `json:"pattern_id,omitempty"`
	Source     string            `json:"source"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type ExtractionStatistics struct {
	TotalExtracted      int     `json:"total_extracted"`
	HighConfidenceCount int     `json:"high_confidence_count"`
	PatternMatchedCount int     `json:"pattern_matched_count"`
	AverageConfidence   float64 `json:"average_confidence"`
}

// ParseFailure is a range expression the engine recognised but rejected.
type ParseFailure struct {
	Expression string `json:"expression"`
	Reason     string `json:"reason"`
	Kind       string `json:"kind"`
}

// ExtractionResult is the answer of Extract.
type ExtractionResult struct {
	ExtractedSerials []string             `json:"extracted_serials"`
	DetailedResults  []ExtractedSerial    `json:"detailed_results"`
	Statistics       ExtractionStatistics `json:"statistics"`
	Suggestions      []string             `json:"suggestions"`
	Failures         []ParseFailure       `json:"failures"`
}

// PrefixSuffixConfig describes a prefix/suffix/padding serial layout.
type PrefixSuffixConfig struct {
	Prefix  string `json:"prefix"`
	Suffix  string `json:"suffix"`
	Padding int    `json:"padding"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
}

// GenerateRequest asks for a bulk range. Set either PatternID or Config.
type GenerateRequest struct {
	PatternID int64               `json:"pattern_id,omitempty"`
	Config    *PrefixSuffixConfig `json:"config,omitempty"`
	Start     int64               `json:"start"`
	End       int64               `json:"end"`
	Step      int64               `json:"step,omitempty"`
}

type GenerateResult struct {
	PatternID   int64    `json:"pattern_id,omitempty"`
	Serials     []string `json:"serials"`
	Count       int      `json:"count"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ExportRequest renders Serials, or Results when set, to Format (csv or
// xlsx).
type ExportRequest struct {
	Format  string            `json:"format,omitempty"`
	Serials []string          `json:"serials,omitempty"`
	Results []ExtractedSerial `json:"results,omitempty"`
}

// ExportResult describes a completed synchronous export.
type ExportResult struct {
	ObjectKey string    `json:"object_key"`
	Format    string    `json:"format"`
	RowCount  int       `json:"row_count"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Export job states.
const (
	ExportPending   = "pending"
	ExportCompleted = "completed"
	ExportFailed    = "failed"
)

// ExportJob is an asynchronous export. URL is set once Status is completed.
type ExportJob struct {
	JobID       string     `json:"job_id"`
	Format      string     `json:"format"`
	Status      string     `json:"status"`
	RowCount    int        `json:"row_count"`
	ObjectKey   string     `json:"object_key,omitempty"`
	Error       string     `json:"error,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	URL         string     `json:"url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (j *ExportJob) Done() bool {
	return j.Status == ExportCompleted || j.Status == ExportFailed
}

// ---------------------------------------------------------------------------
// SerialsClient
// ---------------------------------------------------------------------------

// SerialsClient wraps the /api/v1/serials endpoints.
type SerialsClient struct {
	client *Client
}

// Extract finds serial numbers and range expressions in free text, OCR text
// and barcodes.
// POST /api/v1/serials/extract
func (sc *SerialsClient) Extract(ctx context.Context, req *ExtractRequest) (*ExtractionResult, error) {
	if req == nil {
		return nil, invalidArg("request is required")
	}
	if strings.TrimSpace(req.InputText) == "" && strings.TrimSpace(req.OCRText) == "" && !hasBarcode(req.Barcodes) {
		return nil, invalidArg("at least one of input_text, ocr_text or barcodes is required")
	}
	var result ExtractionResult
	if err := sc.client.doJSON(ctx, http.MethodPost, "/api/v1/serials/extract", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Generate expands a numeric range through a stored pattern or an inline
// prefix/suffix layout.
// POST /api/v1/serials/generate
func (sc *SerialsClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if req == nil {
		return nil, invalidArg("request is required")
	}
	if req.PatternID == 0 && req.Config == nil {
		return nil, invalidArg("pattern_id or config is required")
	}
	if req.Start < 0 || req.End < 0 {
		return nil, invalidArg("start and end must not be negative")
	}
	if req.End < req.Start {
		return nil, invalidArg("end must not be less than start")
	}
	if req.Step < 0 {
		return nil, invalidArg("step must not be negative")
	}
	var result GenerateResult
	if err := sc.client.doJSON(ctx, http.MethodPost, "/api/v1/serials/generate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Export renders the serials synchronously and returns a download link.
// POST /api/v1/serials/exports
func (sc *SerialsClient) Export(ctx context.Context, req *ExportRequest) (*ExportResult, error) {
	if err := validateExport(req); err != nil {
		return nil, err
	}
	var result ExportResult
	if err := sc.client.doJSON(ctx, http.MethodPost, "/api/v1/serials/exports", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExportAsync queues an export job for the worker.
// POST /api/v1/serials/exports?async=true
func (sc *SerialsClient) ExportAsync(ctx context.Context, req *ExportRequest) (*ExportJob, error) {
	if err := validateExport(req); err != nil {
		return nil, err
	}
	var job ExportJob
	if err := sc.client.doJSON(ctx, http.MethodPost, "/api/v1/serials/exports?async=true", req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetExportJob fetches the state of an export job.
// GET /api/v1/serials/exports/{jobID}
func (sc *SerialsClient) GetExportJob(ctx context.Context, jobID string) (*ExportJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, invalidArg("jobID is required")
	}
	var job ExportJob
	if err := sc.client.doJSON(ctx, http.MethodGet, "/api/v1/serials/exports/"+url.PathEscape(jobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// WaitExportJob polls GetExportJob every interval until the job is done or
// ctx ends.
func (sc *SerialsClient) WaitExportJob(ctx context.Context, jobID string, interval time.Duration) (*ExportJob, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := sc.GetExportJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func validateExport(req *ExportRequest) error {
	if req == nil {
		return invalidArg("request is required")
	}
	if len(req.Serials) == 0 && len(req.Results) == 0 {
		return invalidArg("serials or results are required")
	}
	switch strings.ToLower(req.Format) {
	case "", "csv", "xlsx":
	default:
		return invalidArg("format must be csv or xlsx")
	}
	return nil
}

func hasBarcode(barcodes []Barcode) bool {
	for _, b := range barcodes {
		if strings.TrimSpace(b.Value) != "" {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
