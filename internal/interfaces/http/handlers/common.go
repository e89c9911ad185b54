// Common helper functions for HTTP handlers.

package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
	"github.com/turtacn/Serial-Intelligence/pkg/types/common"
)

// parsePagination extracts page and page_size from query parameters.
// Missing or malformed values fall back to the defaults.
func parsePagination(r *http.Request) common.Pagination {
	p := common.Pagination{Page: 1, PageSize: common.DefaultPageSize}

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= common.MaxPageSize {
			p.PageSize = n
		}
	}
	return p
}

// parseIDParam reads a positive int64 path parameter.
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.InvalidParam("invalid " + name).WithDetail(name + "=" + raw)
	}
	return id, nil
}

// parseOptionalInt64 reads an optional int64 query parameter.
func parseOptionalInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.InvalidParam("invalid " + name).WithDetail(name + "=" + raw)
	}
	return &v, nil
}

// decodeJSON reads a JSON request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.InvalidParam("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return errors.InvalidParam("request body too large")
		case stderrors.Is(err, io.EOF):
			return errors.InvalidParam("request body is required")
		default:
			return errors.InvalidParam("invalid request body").WithDetail(err.Error())
		}
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeAppError renders err with the status bound to its code. Server-side
// failures are logged on the request-scoped logger when one is present and
// masked in the response.
func writeAppError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var ae *errors.AppError
	if !stderrors.As(err, &ae) {
		ae = errors.Wrap(err, errors.CodeInternal, errors.DefaultMessageForCode(errors.CodeInternal))
	}

	status := ae.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context(), logger).Error("Request failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.String("code", ae.Code.String()),
			logging.Err(err),
		)
		writeJSON(w, status, ErrorResponse{
			Code:    ae.Code.String(),
			Message: errors.DefaultMessageForCode(ae.Code),
		})
		return
	}

	writeJSON(w, status, ErrorResponse{
		Code:    ae.Code.String(),
		Message: ae.Message,
		Detail:  ae.Detail,
	})
}

//Personal.AI order the ending
