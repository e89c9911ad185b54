package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Pattern types accepted by the API.
const (
	PatternTypePrefixSuffix = "prefix_suffix"
	PatternTypeRegex        = "regex"
	PatternTypeSequential   = "sequential"
	PatternTypeAlphanumeric = "alphanumeric"
)

// DefaultPageSize and MaxPageSize bound list requests.
const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Pattern is a stored serial pattern. Config holds the type-specific JSON
// document.
type Pattern struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"pattern_type"`
	Config    json.RawMessage `json:"pattern_config"`
	ProductID *int64          `json:"product_id,omitempty"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreatePatternRequest creates a pattern. IsActive defaults to true on the
// server when nil.
type CreatePatternRequest struct {
	Name      string          `json:"name"`
	Type      string          `json:"pattern_type"`
	Config    json.RawMessage `json:"pattern_config"`
	ProductID *int64          `json:"product_id,omitempty"`
	IsActive  *bool           `json:"is_active,omitempty"`
}

// UpdatePatternRequest changes only the fields that are set. Global clears
// the product scope.
type UpdatePatternRequest struct {
	Name      *string         `json:"name,omitempty"`
	Type      *string         `json:"pattern_type,omitempty"`
	Config    json.RawMessage `json:"pattern_config,omitempty"`
	ProductID *int64          `json:"product_id,omitempty"`
	Global    bool            `json:"global,omitempty"`
	IsActive  *bool           `json:"is_active,omitempty"`
}

// ListPatternsOptions filters and pages List. Zero values are omitted.
type ListPatternsOptions struct {
	ProductID  *int64
	ActiveOnly bool
	Type       string
	Name       string
	SortBy     string
	Ascending  bool
	Page       int
	PageSize   int
}

type PatternList struct {
	Items      []Pattern `json:"items"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// ImportSkip names a pattern the import left alone and why.
type ImportSkip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created int          `json:"created"`
	Skipped []ImportSkip `json:"skipped"`
}

// ---------------------------------------------------------------------------
// PatternsClient
// ---------------------------------------------------------------------------

// PatternsClient wraps the /api/v1/patterns endpoints.
type PatternsClient struct {
	client *Client
}

// List returns a page of patterns.
// GET /api/v1/patterns
func (pc *PatternsClient) List(ctx context.Context, opts *ListPatternsOptions) (*PatternList, error) {
	if opts == nil {
		opts = &ListPatternsOptions{}
	}
	q := url.Values{}
	if opts.ProductID != nil {
		q.Set("product_id", strconv.FormatInt(*opts.ProductID, 10))
	}
	if opts.ActiveOnly {
		q.Set("active", "true")
	}
	if opts.Type != "" {
		if !validPatternType(opts.Type) {
			return nil, invalidArg(fmt.Sprintf("unknown pattern type %q", opts.Type))
		}
		q.Set("type", opts.Type)
	}
	if opts.Name != "" {
		q.Set("name", opts.Name)
	}
	if opts.SortBy != "" {
		q.Set("sort_by", opts.SortBy)
		if opts.Ascending {
			q.Set("order", "asc")
		}
	}
	page, size := opts.Page, opts.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(size))

	var list PatternList
	if err := pc.client.doJSON(ctx, http.MethodGet, "/api/v1/patterns?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Get retrieves a pattern by ID.
// GET /api/v1/patterns/{id}
func (pc *PatternsClient) Get(ctx context.Context, id int64) (*Pattern, error) {
	if id <= 0 {
		return nil, invalidArg("id must be positive")
	}
	var p Pattern
	if err := pc.client.doJSON(ctx, http.MethodGet, patternPath(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create stores a new pattern.
// POST /api/v1/patterns
func (pc *PatternsClient) Create(ctx context.Context, req *CreatePatternRequest) (*Pattern, error) {
	if req == nil {
		return nil, invalidArg("request is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalidArg("name is required")
	}
	if !validPatternType(req.Type) {
		return nil, invalidArg(fmt.Sprintf("unknown pattern type %q", req.Type))
	}
	if len(req.Config) == 0 {
		return nil, invalidArg("config is required")
	}
	var p Pattern
	if err := pc.client.doJSON(ctx, http.MethodPost, "/api/v1/patterns", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies a partial update.
// PUT /api/v1/patterns/{id}
func (pc *PatternsClient) Update(ctx context.Context, id int64, req *UpdatePatternRequest) (*Pattern, error) {
	if id <= 0 {
		return nil, invalidArg("id must be positive")
	}
	if req == nil {
		return nil, invalidArg("request is required")
	}
	if req.Type != nil && !validPatternType(*req.Type) {
		return nil, invalidArg(fmt.Sprintf("unknown pattern type %q", *req.Type))
	}
	var p Pattern
	if err := pc.client.doJSON(ctx, http.MethodPut, patternPath(id), req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a pattern.
// DELETE /api/v1/patterns/{id}
func (pc *PatternsClient) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalidArg("id must be positive")
	}
	return pc.client.doJSON(ctx, http.MethodDelete, patternPath(id), nil, nil)
}

// Activate makes a pattern eligible for extraction.
// POST /api/v1/patterns/{id}/activate
func (pc *PatternsClient) Activate(ctx context.Context, id int64) (*Pattern, error) {
	return pc.setActive(ctx, id, "activate")
}

// Deactivate hides a pattern from extraction without deleting it.
// POST /api/v1/patterns/{id}/deactivate
func (pc *PatternsClient) Deactivate(ctx context.Context, id int64) (*Pattern, error) {
	return pc.setActive(ctx, id, "deactivate")
}

func (pc *PatternsClient) setActive(ctx context.Context, id int64, action string) (*Pattern, error) {
	if id <= 0 {
		return nil, invalidArg("id must be positive")
	}
	var p Pattern
	if err := pc.client.doJSON(ctx, http.MethodPost, patternPath(id)+"/"+action, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Import uploads a YAML pattern file. Names that already exist are skipped.
// POST /api/v1/patterns/import
func (pc *PatternsClient) Import(ctx context.Context, file []byte) (*ImportResult, error) {
	if len(file) == 0 {
		return nil, invalidArg("pattern file is empty")
	}
	body, err := pc.client.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/v1/patterns/import",
		body:        file,
		contentType: "application/yaml",
	})
	if err != nil {
		return nil, err
	}
	var result ImportResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// Export downloads the matching patterns as a YAML file accepted by Import.
// GET /api/v1/patterns/export
func (pc *PatternsClient) Export(ctx context.Context, opts *ListPatternsOptions) ([]byte, error) {
	q := url.Values{}
	if opts != nil {
		if opts.ProductID != nil {
			q.Set("product_id", strconv.FormatInt(*opts.ProductID, 10))
		}
		if opts.ActiveOnly {
			q.Set("active", "true")
		}
		if opts.Type != "" {
			q.Set("type", opts.Type)
		}
	}
	path := "/api/v1/patterns/export"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return pc.client.do(ctx, request{method: http.MethodGet, path: path, accept: "application/yaml"})
}

func patternPath(id int64) string {
	return "/api/v1/patterns/" + strconv.FormatInt(id, 10)
}

func validPatternType(t string) bool {
	switch t {
	case PatternTypePrefixSuffix, PatternTypeRegex, PatternTypeSequential, PatternTypeAlphanumeric:
		return true
	}
	return false
}

//Personal.AI order the ending
