package prometheus

import (
	"strconv"
	"time"
)

// Label values shared by the serial metrics.
const (
	StatusSuccess = "success"
	StatusInvalid = "invalid"
	StatusError   = "error"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// SerialMetrics holds every metric the service records. All Record methods
// are safe on a nil receiver so components can run without metrics.
type SerialMetrics struct {
	ExtractionsTotal      CounterVec
	ExtractedSerials      HistogramVec
	ExtractionDuration    HistogramVec
	GenerationsTotal      CounterVec
	GeneratedSerials      HistogramVec
	PartialFailuresTotal  CounterVec
	PatternCacheRequests  CounterVec
	ExportsTotal          CounterVec
	MessagesConsumedTotal CounterVec

	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec
}

var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultEngineDurationBuckets = []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5}
	DefaultSerialCountBuckets    = []float64{0, 1, 5, 10, 50, 100, 1000, 10000, 100000}
)

// NewSerialMetrics registers the serial metrics on collector.
func NewSerialMetrics(collector MetricsCollector) *SerialMetrics {
	m := &SerialMetrics{}

	m.ExtractionsTotal = collector.RegisterCounter("extractions_total", "Extraction requests by outcome", "status")
	m.ExtractedSerials = collector.RegisterHistogram("extracted_serials", "Serials returned per extraction", DefaultSerialCountBuckets)
	m.ExtractionDuration = collector.RegisterHistogram("extraction_duration_seconds", "Extraction latency", DefaultEngineDurationBuckets)
	m.GenerationsTotal = collector.RegisterCounter("generations_total", "Range generation requests by outcome", "status")
	m.GeneratedSerials = collector.RegisterHistogram("generated_serials", "Serials produced per generation", DefaultSerialCountBuckets)
	m.PartialFailuresTotal = collector.RegisterCounter("partial_failures_total", "Tokens or ranges that could not be parsed", "reason")
	m.PatternCacheRequests = collector.RegisterCounter("pattern_cache_requests_total", "Pattern snapshot cache lookups", "result")
	m.ExportsTotal = collector.RegisterCounter("exports_total", "Serial exports", "format", "status")
	m.MessagesConsumedTotal = collector.RegisterCounter("messages_consumed_total", "Kafka messages handled by the worker", "topic", "status")

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests")

	return m
}

// RecordExtraction counts one extraction. serials is ignored unless status is
// StatusSuccess.
func (m *SerialMetrics) RecordExtraction(status string, serials int, d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(status).Inc()
	m.ExtractionDuration.WithLabelValues().Observe(d.Seconds())
	if status == StatusSuccess {
		m.ExtractedSerials.WithLabelValues().Observe(float64(serials))
	}
}

func (m *SerialMetrics) RecordGeneration(status string, serials int) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		m.GeneratedSerials.WithLabelValues().Observe(float64(serials))
	}
}

func (m *SerialMetrics) RecordPartialFailure(reason string) {
	if m == nil {
		return
	}
	m.PartialFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordCacheAccess takes CacheHit, CacheMiss or CacheError.
func (m *SerialMetrics) RecordCacheAccess(result string) {
	if m == nil {
		return
	}
	m.PatternCacheRequests.WithLabelValues(result).Inc()
}

func (m *SerialMetrics) RecordExport(format, status string) {
	if m == nil {
		return
	}
	m.ExportsTotal.WithLabelValues(format, status).Inc()
}

func (m *SerialMetrics) RecordMessage(topic string, ok bool) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if !ok {
		status = StatusError
	}
	m.MessagesConsumedTotal.WithLabelValues(topic, status).Inc()
}

func (m *SerialMetrics) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the decrement.
func (m *SerialMetrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	g := m.HTTPActiveRequests.WithLabelValues()
	g.Inc()
	return g.Dec
}

//Personal.AI order the ending
