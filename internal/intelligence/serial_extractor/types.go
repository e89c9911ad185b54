// Package serial_extractor recognises serial numbers in free-form text and
// generates serial ranges from prefix/suffix patterns. It performs no I/O:
// patterns are handed in by the caller as an immutable snapshot.
package serial_extractor

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

// Source identifies where a serial was found. Text outranks barcode on ties.
type Source string

const (
	SourceText    Source = "text"
	SourceBarcode Source = "barcode"
)

// Metadata keys attached to ExtractedSerial.Metadata.
const (
	MetaHeuristic = "heuristic"
	MetaRange     = "range"
	MetaOrigin    = "origin"
)

// Origins recorded under MetaOrigin for the barcode/OCR source.
const (
	OriginOCR     = "ocr"
	OriginBarcode = "barcode"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// Barcode is a value already decoded by the caller's scanner.
type Barcode struct {
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Request is one extraction call. At least one of InputText, OCRText or
// Barcodes must carry content.
type Request struct {
	InputText string    `json:"input_text,omitempty"`
	OCRText   string    `json:"ocr_text,omitempty"`
	Barcodes  []Barcode `json:"barcodes,omitempty"`
	ProductID *int64    `json:"product_id,omitempty"`
}

// HasSource reports whether any text source yields at least one token or
// any barcode is non-blank. Text made only of separators is no source.
func (r *Request) HasSource() bool {
	if len(Tokenize(r.InputText)) > 0 || len(Tokenize(r.OCRText)) > 0 {
		return true
	}
	for _, b := range r.Barcodes {
		if Normalize(b.Value) != "" {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// ExtractedSerial is one recognised serial with its score.
type ExtractedSerial struct {
	Serial     string            `json:"serial"`
	Confidence float64           `json:"confidence"`
	Pattern    string            `json:"pattern,omitempty"`
	PatternID  int64             `json:"pattern_id,omitempty"`
	Source     Source            `json:"source"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// PatternMatched reports whether a configured pattern recognised the serial.
func (s *ExtractedSerial) PatternMatched() bool {
	return s.Pattern != ""
}

// Statistics summarises an ExtractionResult.
type Statistics struct {
	TotalExtracted      int     `json:"total_extracted"`
	HighConfidenceCount int     `json:"high_confidence_count"`
	PatternMatchedCount int     `json:"pattern_matched_count"`
	AverageConfidence   float64 `json:"average_confidence"`
}

// FailureKind classifies a ParseFailure.
type FailureKind string

const (
	FailureUnparseable    FailureKind = "unparseable"
	FailurePrefixMismatch FailureKind = "prefix_mismatch"
	FailureSuffixMismatch FailureKind = "suffix_mismatch"
	FailureReversed       FailureKind = "reversed"
	FailureCapacity       FailureKind = "capacity"
	FailurePatternConfig  FailureKind = "pattern_config"
)

// ParseFailure is a non-fatal problem with one expression or one stored
// pattern. For FailurePatternConfig, Expression holds the pattern name.
type ParseFailure struct {
	Expression string      `json:"expression"`
	Reason     string      `json:"reason"`
	Kind       FailureKind `json:"kind"`
}

// IsPatternFailure reports whether f describes a skipped pattern.
func (f ParseFailure) IsPatternFailure() bool {
	return f.Kind == FailurePatternConfig
}

// ExtractionResult is the outcome of Engine.Extract.
type ExtractionResult struct {
	ExtractedSerials []string          `json:"extracted_serials"`
	DetailedResults  []ExtractedSerial `json:"detailed_results"`
	Statistics       Statistics        `json:"statistics"`
	Suggestions      []string          `json:"suggestions"`
	Failures         []ParseFailure    `json:"failures"`
}

// GenerationResult is the outcome of a range generation.
type GenerationResult struct {
	PatternID int64    `json:"pattern_id,omitempty"`
	Serials   []string `json:"serials"`
	Count     int      `json:"count"`
}

//Personal.AI order the ending
