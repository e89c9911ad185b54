package prometheus

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
)

func newSerialMetrics(t *testing.T) (*SerialMetrics, MetricsCollector) {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "serial"}, logging.NewNopLogger())
	require.NoError(t, err)
	return NewSerialMetrics(c), c
}

func TestNewSerialMetrics_Names(t *testing.T) {
	m, c := newSerialMetrics(t)
	m.RecordExtraction(StatusSuccess, 3, 2*time.Millisecond)
	m.RecordGeneration(StatusSuccess, 4)
	m.RecordPartialFailure("range_prefix_mismatch")
	m.RecordCacheAccess(CacheHit)
	m.RecordExport("xlsx", StatusSuccess)
	m.RecordMessage("serial.export.requested", true)
	m.RecordHTTPRequest(http.MethodPost, "/api/v1/serials/extract", 200, time.Millisecond)

	n, err := testutil.GatherAndCount(c.Gatherer(),
		"serial_extractions_total",
		"serial_extracted_serials",
		"serial_extraction_duration_seconds",
		"serial_generations_total",
		"serial_generated_serials",
		"serial_partial_failures_total",
		"serial_pattern_cache_requests_total",
		"serial_exports_total",
		"serial_messages_consumed_total",
		"serial_http_requests_total",
		"serial_http_request_duration_seconds",
	)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func TestRecordExtraction_FailureSkipsSerialHistogram(t *testing.T) {
	m, c := newSerialMetrics(t)
	m.RecordExtraction(StatusInvalid, 99, time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `serial_extractions_total{status="invalid"} 1`)
	assert.Contains(t, output, "serial_extraction_duration_seconds_count 1")
	assert.NotContains(t, output, "serial_extracted_serials_count")
}

func TestRecordGeneration(t *testing.T) {
	m, c := newSerialMetrics(t)
	m.RecordGeneration(StatusSuccess, 4)
	m.RecordGeneration(StatusInvalid, 0)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `serial_generations_total{status="success"} 1`)
	assert.Contains(t, output, `serial_generations_total{status="invalid"} 1`)
	assert.Contains(t, output, "serial_generated_serials_sum 4")
}

func TestRecordLabels(t *testing.T) {
	m, c := newSerialMetrics(t)
	m.RecordCacheAccess(CacheMiss)
	m.RecordCacheAccess(CacheMiss)
	m.RecordExport("csv", StatusError)
	m.RecordMessage("serial.export.requested", false)
	m.RecordHTTPRequest(http.MethodGet, "/api/v1/patterns/{id}", 404, time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `serial_pattern_cache_requests_total{result="miss"} 2`)
	assert.Contains(t, output, `serial_exports_total{format="csv",status="error"} 1`)
	assert.Contains(t, output, `serial_messages_consumed_total{status="error",topic="serial.export.requested"} 1`)
	assert.Contains(t, output, `serial_http_requests_total{method="GET",route="/api/v1/patterns/{id}",status_code="404"} 1`)
}

func TestTrackInFlight(t *testing.T) {
	m, c := newSerialMetrics(t)
	done := m.TrackInFlight()
	assert.Contains(t, scrapeMetrics(t, c), "serial_http_active_requests 1")
	done()
	assert.Contains(t, scrapeMetrics(t, c), "serial_http_active_requests 0")
}

func TestNilSerialMetrics(t *testing.T) {
	var m *SerialMetrics
	assert.NotPanics(t, func() {
		m.RecordExtraction(StatusSuccess, 1, time.Millisecond)
		m.RecordGeneration(StatusSuccess, 1)
		m.RecordPartialFailure("x")
		m.RecordCacheAccess(CacheHit)
		m.RecordExport("xlsx", StatusSuccess)
		m.RecordMessage("t", true)
		m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
		m.TrackInFlight()()
	})
}

func TestRegisteringTwiceReusesVectors(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "serial"}, logging.NewNopLogger())
	require.NoError(t, err)

	a := NewSerialMetrics(c)
	b := NewSerialMetrics(c)
	a.RecordPartialFailure("bad_bound")
	b.RecordPartialFailure("bad_bound")

	assert.Contains(t, scrapeMetrics(t, c), `serial_partial_failures_total{reason="bad_bound"} 2`)
}

//Personal.AI order the ending
