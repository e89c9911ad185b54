package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Serial-Intelligence/pkg/types/common"
)

func okCheck(context.Context) error { return nil }

func failCheck(context.Context) error { return stderrors.New("dial tcp: connection refused") }

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler("1.2.0", NewChecker("postgres", failCheck))

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.0", resp.Version)
}

func TestHealthHandler_Readiness(t *testing.T) {
	cases := []struct {
		name     string
		checkers []HealthChecker
		code     int
		status   common.HealthStatus
	}{
		{"no dependencies", nil, http.StatusOK, common.HealthUp},
		{"all up", []HealthChecker{NewChecker("postgres", okCheck), NewChecker("redis", okCheck)}, http.StatusOK, common.HealthUp},
		{"one down", []HealthChecker{NewChecker("postgres", okCheck), NewChecker("redis", failCheck)}, http.StatusServiceUnavailable, common.HealthDown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler("dev", tc.checkers...)

			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tc.code, rec.Code)
			resp := decodeHealth(t, rec)
			assert.Equal(t, tc.status, resp.Status)
			assert.Len(t, resp.Components, len(tc.checkers))
		})
	}
}

func TestHealthHandler_DetailedReportsComponents(t *testing.T) {
	h := NewHealthHandler("dev",
		NewChecker("postgres", okCheck),
		NewChecker("redis", failCheck),
		NewChecker("kafka", okCheck),
	)

	rec := httptest.NewRecorder()
	h.Detailed(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeHealth(t, rec)
	assert.Equal(t, common.HealthDegraded, resp.Status)
	assert.Equal(t, "dev", resp.Version)
	require.Len(t, resp.Components, 3)
	assert.Equal(t, "postgres", resp.Components[0].Name)
	assert.Equal(t, common.HealthUp, resp.Components[0].Status)
	assert.Equal(t, "redis", resp.Components[1].Name)
	assert.Equal(t, common.HealthDown, resp.Components[1].Status)
	assert.Contains(t, resp.Components[1].Message, "connection refused")
}

func TestHealthHandler_CheckersSeeDeadline(t *testing.T) {
	var hasDeadline bool
	h := NewHealthHandler("dev", NewChecker("minio", func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	}))

	h.Readiness(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.True(t, hasDeadline)
}

//Personal.AI order the ending
