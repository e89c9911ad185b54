package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	app "github.com/turtacn/Serial-Intelligence/internal/application/serial"
	domainSerial "github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	extractor "github.com/turtacn/Serial-Intelligence/internal/intelligence/serial_extractor"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// SerialHandler serves extraction, range generation and exports.
type SerialHandler struct {
	extraction app.ExtractionService
	exports    app.ExportService
	logger     logging.Logger
}

// NewSerialHandler creates a SerialHandler. exports may be nil, in which case
// the export routes answer 503.
func NewSerialHandler(extraction app.ExtractionService, exports app.ExportService, logger logging.Logger) *SerialHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SerialHandler{
		extraction: extraction,
		exports:    exports,
		logger:     logger.Named("serial_handler"),
	}
}

// ExtractRequest is the body of POST /serials/extract.
type ExtractRequest struct {
	InputText string              `json:"input_text,omitempty"`
	OCRText   string              `json:"ocr_text,omitempty"`
	Barcodes  []extractor.Barcode `json:"barcodes,omitempty"`
	ProductID *int64              `json:"product_id,omitempty"`
}

// GenerateRequest is the body of POST /serials/generate. Config is used only
// when PatternID is zero.
type GenerateRequest struct {
	PatternID int64                            `json:"pattern_id,omitempty"`
	Config    *domainSerial.PrefixSuffixConfig `json:"config,omitempty"`
	Start     int64                            `json:"start"`
	End       int64                            `json:"end"`
	Step      int64                            `json:"step,omitempty"`
}

// ExportRequest is the body of POST /serials/exports.
type ExportRequest struct {
	Format  string                      `json:"format,omitempty"`
	Serials []string                    `json:"serials,omitempty"`
	Results []extractor.ExtractedSerial `json:"results,omitempty"`
}

// Extract handles POST /api/v1/serials/extract.
func (h *SerialHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	result, err := h.extraction.Extract(r.Context(), &extractor.Request{
		InputText: req.InputText,
		OCRText:   req.OCRText,
		Barcodes:  req.Barcodes,
		ProductID: req.ProductID,
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Generate handles POST /api/v1/serials/generate.
func (h *SerialHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	out, err := h.extraction.GenerateRange(r.Context(), &app.GenerateInput{
		PatternID: req.PatternID,
		Config:    req.Config,
		Start:     req.Start,
		End:       req.End,
		Step:      req.Step,
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Export handles POST /api/v1/serials/exports. With ?async=true the export
// is queued and 202 carries the job; otherwise the file is rendered inline
// and 201 carries its download link.
func (h *SerialHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		writeAppError(w, r, h.logger, errors.New(errors.ErrCodeServiceUnavailable, "exports are not configured"))
		return
	}

	async := false
	if v := r.URL.Query().Get("async"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeAppError(w, r, h.logger, errors.InvalidParam("invalid async").WithDetail("async="+v))
			return
		}
		async = b
	}

	var req ExportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	input := &app.ExportInput{Format: req.Format, Serials: req.Serials, Results: req.Results}

	if async {
		job, err := h.exports.RequestExport(r.Context(), input)
		if err != nil {
			writeAppError(w, r, h.logger, err)
			return
		}
		w.Header().Set("Location", "/api/v1/serials/exports/"+job.JobID.String())
		writeJSON(w, http.StatusAccepted, job)
		return
	}

	out, err := h.exports.ExportSerials(r.Context(), input)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// GetExportJob handles GET /api/v1/serials/exports/{jobID}.
func (h *SerialHandler) GetExportJob(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		writeAppError(w, r, h.logger, errors.New(errors.ErrCodeServiceUnavailable, "exports are not configured"))
		return
	}

	raw := chi.URLParam(r, "jobID")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeAppError(w, r, h.logger, errors.InvalidParam("invalid job id").WithDetail("job_id="+raw))
		return
	}

	view, err := h.exports.GetExportJob(r.Context(), id)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

//Personal.AI order the ending
