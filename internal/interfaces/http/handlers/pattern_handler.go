package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	app "github.com/turtacn/Serial-Intelligence/internal/application/serial"
	domainSerial "github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// maxPatternFileSize caps the body of POST /patterns/import.
const maxPatternFileSize = 1 << 20

// PatternHandler handles serial pattern administration.
type PatternHandler struct {
	svc    app.PatternService
	logger logging.Logger
}

// NewPatternHandler creates a PatternHandler.
func NewPatternHandler(svc app.PatternService, logger logging.Logger) *PatternHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PatternHandler{svc: svc, logger: logger.Named("pattern_handler")}
}

// CreatePatternRequest is the body of POST /patterns.
type CreatePatternRequest struct {
	Name          string                   `json:"name"`
	PatternType   domainSerial.PatternType `json:"pattern_type"`
	PatternConfig json.RawMessage          `json:"pattern_config"`
	ProductID     *int64                   `json:"product_id,omitempty"`
	IsActive      *bool                    `json:"is_active,omitempty"`
}

// UpdatePatternRequest is the body of PUT /patterns/{id}. Omitted fields keep
// their value; global=true clears product_id.
type UpdatePatternRequest struct {
	Name          *string                   `json:"name,omitempty"`
	PatternType   *domainSerial.PatternType `json:"pattern_type,omitempty"`
	PatternConfig json.RawMessage           `json:"pattern_config,omitempty"`
	ProductID     *int64                    `json:"product_id,omitempty"`
	Global        bool                      `json:"global,omitempty"`
	IsActive      *bool                     `json:"is_active,omitempty"`
}

// List handles GET /api/v1/patterns.
func (h *PatternHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePatternFilter(r)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	result, err := h.svc.ListPatterns(r.Context(), &app.ListPatternsInput{
		Filter:     filter,
		Name:       q.Get("name"),
		SortBy:     q.Get("sort_by"),
		Ascending:  strings.EqualFold(q.Get("order"), "asc"),
		Pagination: parsePagination(r),
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Create handles POST /api/v1/patterns.
func (h *PatternHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePatternRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	p, err := h.svc.CreatePattern(r.Context(), &app.CreatePatternInput{
		Name:      req.Name,
		Type:      req.PatternType,
		Config:    req.PatternConfig,
		ProductID: req.ProductID,
		IsActive:  req.IsActive,
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/v1/patterns/"+strconv.FormatInt(p.ID, 10))
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/v1/patterns/{id}.
func (h *PatternHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	p, err := h.svc.GetPattern(r.Context(), id)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update handles PUT /api/v1/patterns/{id}.
func (h *PatternHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	var req UpdatePatternRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	p, err := h.svc.UpdatePattern(r.Context(), &app.UpdatePatternInput{
		ID:        id,
		Name:      req.Name,
		Type:      req.PatternType,
		Config:    req.PatternConfig,
		ProductID: req.ProductID,
		Global:    req.Global,
		IsActive:  req.IsActive,
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/v1/patterns/{id}.
func (h *PatternHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if err := h.svc.DeletePattern(r.Context(), id); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activate handles POST /api/v1/patterns/{id}/activate.
func (h *PatternHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Deactivate handles POST /api/v1/patterns/{id}/deactivate.
func (h *PatternHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *PatternHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	p, err := h.svc.SetPatternActive(r.Context(), id, active)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Import handles POST /api/v1/patterns/import. The body is a YAML pattern file.
func (h *PatternHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPatternFileSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeAppError(w, r, h.logger, errors.InvalidParam("pattern file too large"))
			return
		}
		writeAppError(w, r, h.logger, errors.InvalidParam("failed to read pattern file"))
		return
	}
	if len(data) == 0 {
		writeAppError(w, r, h.logger, errors.InvalidParam("pattern file is required"))
		return
	}

	res, err := h.svc.ImportPatterns(r.Context(), data)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Export handles GET /api/v1/patterns/export and answers a YAML pattern file.
// It accepts the same filters as List.
func (h *PatternHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePatternFilter(r)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	data, err := h.svc.ExportPatterns(r.Context(), filter)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="patterns.yaml"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// parsePatternFilter reads product_id, active and type.
func parsePatternFilter(r *http.Request) (domainSerial.PatternFilter, error) {
	var f domainSerial.PatternFilter

	productID, err := parseOptionalInt64(r, "product_id")
	if err != nil {
		return f, err
	}
	f.ProductID = productID

	q := r.URL.Query()
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.InvalidParam("invalid active").WithDetail("active=" + v)
		}
		f.ActiveOnly = active
	}
	if v := q.Get("type"); v != "" {
		t := domainSerial.PatternType(strings.ToLower(v))
		if !t.IsValid() {
			return f, errors.InvalidParam("invalid type").WithDetail("type=" + v)
		}
		f.Type = t
	}
	return f, nil
}

//Personal.AI order the ending
