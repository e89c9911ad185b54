package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app "github.com/turtacn/Serial-Intelligence/internal/application/serial"
	domainSerial "github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	extractor "github.com/turtacn/Serial-Intelligence/internal/intelligence/serial_extractor"
	"github.com/turtacn/Serial-Intelligence/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Service mocks
// ---------------------------------------------------------------------------

type MockExtractionService struct{ mock.Mock }

func (m *MockExtractionService) Extract(ctx context.Context, req *extractor.Request) (*extractor.ExtractionResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*extractor.ExtractionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExtractionService) GenerateRange(ctx context.Context, input *app.GenerateInput) (*app.GenerateOutput, error) {
	args := m.Called(ctx, input)
	if r := args.Get(0); r != nil {
		return r.(*app.GenerateOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockExportService struct{ mock.Mock }

func (m *MockExportService) ExportSerials(ctx context.Context, input *app.ExportInput) (*app.ExportOutput, error) {
	args := m.Called(ctx, input)
	if r := args.Get(0); r != nil {
		return r.(*app.ExportOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExportService) RequestExport(ctx context.Context, input *app.ExportInput) (*domainSerial.ExportJob, error) {
	args := m.Called(ctx, input)
	if r := args.Get(0); r != nil {
		return r.(*domainSerial.ExportJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExportService) GetExportJob(ctx context.Context, id uuid.UUID) (*app.ExportJobView, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*app.ExportJobView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExportService) ProcessExportJob(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockExportService) HandleExportRequested(ctx context.Context, msg *common.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type MockPatternService struct{ mock.Mock }

func (m *MockPatternService) CreatePattern(ctx context.Context, input *app.CreatePatternInput) (*domainSerial.SerialPattern, error) {
	args := m.Called(ctx, input)
	if r := args.Get(0); r != nil {
		return r.(*domainSerial.SerialPattern), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatternService) UpdatePattern(ctx context.Context, input *app.UpdatePatternInput) (*domainSerial.SerialPattern, error) {
	args := m.Called(ctx, input)
	if r := args.Get(0); r != nil {
		return r.(*domainSerial.SerialPattern), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatternService) GetPattern(ctx context.Context, id int64) (*domainSerial.SerialPattern, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*domainSerial.SerialPattern), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatternService) ListPatterns(ctx context.Context, input *app.ListPatternsInput) (*app.PatternList, error) {
	args := m.Called(ctx, input)
	if r := args.Get(0); r != nil {
		return r.(*app.PatternList), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatternService) DeletePattern(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPatternService) SetPatternActive(ctx context.Context, id int64, active bool) (*domainSerial.SerialPattern, error) {
	args := m.Called(ctx, id, active)
	if r := args.Get(0); r != nil {
		return r.(*domainSerial.SerialPattern), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatternService) ImportPatterns(ctx context.Context, data []byte) (*app.ImportResult, error) {
	args := m.Called(ctx, data)
	if r := args.Get(0); r != nil {
		return r.(*app.ImportResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatternService) ExportPatterns(ctx context.Context, filter domainSerial.PatternFilter) ([]byte, error) {
	args := m.Called(ctx, filter)
	if r := args.Get(0); r != nil {
		return r.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatternService) ApplicablePatterns(ctx context.Context, productID *int64) ([]*domainSerial.SerialPattern, error) {
	args := m.Called(ctx, productID)
	if r := args.Get(0); r != nil {
		return r.([]*domainSerial.SerialPattern), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatternService) InvalidateCache(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPatternService) HandlePatternChanged(ctx context.Context, msg *common.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func serve(h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func int64Ptr(v int64) *int64 { return &v }

func boolPtr(v bool) *bool { return &v }

//Personal.AI order the ending
