package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/turtacn/Serial-Intelligence/internal/application/serial"
	domainSerial "github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/prometheus"
	extractor "github.com/turtacn/Serial-Intelligence/internal/intelligence/serial_extractor"
	"github.com/turtacn/Serial-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/Serial-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/Serial-Intelligence/pkg/types/common"
)

// Stubs embed the service interfaces; methods a test does not override
// panic and surface as 500 through the recoverer.

type stubExtraction struct{ app.ExtractionService }

func (stubExtraction) Extract(context.Context, *extractor.Request) (*extractor.ExtractionResult, error) {
	return &extractor.ExtractionResult{ExtractedSerials: []string{"SN-1"}}, nil
}

type stubPatterns struct{ app.PatternService }

func (stubPatterns) ListPatterns(context.Context, *app.ListPatternsInput) (*app.PatternList, error) {
	page := common.NewPageResponse[*domainSerial.SerialPattern](nil, 0, common.Pagination{Page: 1, PageSize: 20})
	return &page, nil
}

func newTestRouter(t *testing.T, mutate func(*RouterConfig)) (http.Handler, prometheus.MetricsCollector) {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "serial"}, logging.NewNopLogger())
	require.NoError(t, err)
	metrics := prometheus.NewSerialMetrics(collector)

	cfg := RouterConfig{
		SerialHandler:     handlers.NewSerialHandler(stubExtraction{}, nil, nil),
		PatternHandler:    handlers.NewPatternHandler(stubPatterns{}, nil),
		HealthHandler:     handlers.NewHealthHandler("test"),
		LoggingMiddleware: middleware.NewLoggingMiddleware(nil, metrics, middleware.DefaultLoggingConfig()),
		Logger:            logging.NewNopLogger(),
		MetricsCollector:  collector,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewRouter(cfg), collector
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_Probes(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		assert.Equal(t, http.StatusOK, do(router, http.MethodGet, path, "").Code, path)
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	do(router, http.MethodPost, "/api/v1/serials/extract", `{"input_text":"SN-1"}`)
	rec := do(router, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `serial_http_requests_total{method="POST",route="/api/v1/serials/extract",status_code="200"} 1`)
}

func TestNewRouter_RoutesRegistered(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/serials/extract"},
		{http.MethodPost, "/api/v1/serials/generate"},
		{http.MethodPost, "/api/v1/serials/exports"},
		{http.MethodGet, "/api/v1/serials/exports/0b6d1d5e-4c5f-4b0e-9a53-0d6f0c1d2e3f"},
		{http.MethodGet, "/api/v1/patterns"},
		{http.MethodPost, "/api/v1/patterns"},
		{http.MethodPost, "/api/v1/patterns/import"},
		{http.MethodGet, "/api/v1/patterns/export"},
		{http.MethodGet, "/api/v1/patterns/1"},
		{http.MethodPut, "/api/v1/patterns/1"},
		{http.MethodDelete, "/api/v1/patterns/1"},
		{http.MethodPost, "/api/v1/patterns/1/activate"},
		{http.MethodPost, "/api/v1/patterns/1/deactivate"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			code := do(router, rt.method, rt.path, "{}").Code
			assert.NotEqual(t, http.StatusNotFound, code)
			assert.NotEqual(t, http.StatusMethodNotAllowed, code)
		})
	}
}

func TestNewRouter_WrongMethod(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	assert.Equal(t, http.StatusMethodNotAllowed, do(router, http.MethodGet, "/api/v1/serials/extract", "").Code)
}

func TestNewRouter_NilHandlers_NoPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		router := NewRouter(RouterConfig{})
		assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/healthz", "").Code)
		assert.Equal(t, http.StatusNotFound, do(router, http.MethodPost, "/api/v1/serials/extract", "{}").Code)
	})
}

func TestNewRouter_RateLimitOnlyOnSerials(t *testing.T) {
	limit := middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	defer limit.Stop()
	router, _ := newTestRouter(t, func(c *RouterConfig) { c.RateLimitMiddleware = limit })

	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/serials/extract", `{"input_text":"SN-1"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodPost, "/api/v1/serials/extract", `{"input_text":"SN-1"}`).Code)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/patterns", "").Code)
	}
}

func TestNewRouter_MaxBodySize(t *testing.T) {
	router, _ := newTestRouter(t, func(c *RouterConfig) { c.MaxBodySize = 16 })

	rec := do(router, http.MethodPost, "/api/v1/serials/extract", `{"input_text":"`+strings.Repeat("S", 64)+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body too large")
}

func TestNewRouter_CORS(t *testing.T) {
	router, _ := newTestRouter(t, func(c *RouterConfig) {
		c.CORSMiddleware = middleware.NewCORSMiddleware(middleware.DefaultCORSConfig("https://console.example.com"))
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/serials/extract", nil)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://console.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_APIKeyOnlyOnAPI(t *testing.T) {
	router, _ := newTestRouter(t, func(c *RouterConfig) {
		c.AuthMiddleware = middleware.NewAuthMiddleware(middleware.DefaultAuthConfig("k1"), nil)
	})

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/v1/patterns", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/healthz", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patterns", nil)
	req.Header.Set("Authorization", "Bearer k1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRouter_PanicRecovered(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	// stubExtraction does not implement GenerateRange.
	rec := do(router, http.MethodPost, "/api/v1/serials/generate", `{"pattern_id":1,"start":1,"end":2}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

//Personal.AI order the ending
