package prometheus

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// MetricsCollector owns a private registry. Registration never fails from
// the caller's point of view: a clash is logged and a no-op vector returned.
type MetricsCollector interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
	Handler() http.Handler
	Gatherer() prometheus.Gatherer
}

type Counter interface {
	Inc()
	Add(delta float64)
}

type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
}

type Histogram interface {
	Observe(value float64)
}

type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
}

type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
}

// CollectorConfig configures NewMetricsCollector. Namespace is required.
type CollectorConfig struct {
	Namespace               string
	EnableProcessMetrics    bool
	EnableGoMetrics         bool
	DefaultHistogramBuckets []float64
	ConstLabels             map[string]string
}

type prometheusCollector struct {
	registry *prometheus.Registry
	config   CollectorConfig
	logger   logging.Logger

	mu     sync.Mutex
	byName map[string]prometheus.Collector
}

func NewMetricsCollector(cfg CollectorConfig, logger logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, errors.InvalidParam("metrics namespace is required")
	}
	if cfg.DefaultHistogramBuckets == nil {
		cfg.DefaultHistogramBuckets = prometheus.DefBuckets
	}

	reg := prometheus.NewRegistry()
	if cfg.EnableGoMetrics {
		reg.MustRegister(collectors.NewGoCollector())
	}
	if cfg.EnableProcessMetrics {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: cfg.Namespace}))
	}

	return &prometheusCollector{
		registry: reg,
		config:   cfg,
		logger:   logger,
		byName:   make(map[string]prometheus.Collector),
	}, nil
}

func (c *prometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *prometheusCollector) Gatherer() prometheus.Gatherer { return c.registry }

func (c *prometheusCollector) RegisterCounter(name, help string, labels ...string) CounterVec {
	fresh := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   c.config.Namespace,
		Name:        name,
		Help:        help,
		ConstLabels: c.config.ConstLabels,
	}, labels)
	if vec, ok := register(c, name, "counter", fresh); ok {
		return labelled[Counter]{func(lvs ...string) Counter { return vec.WithLabelValues(lvs...) }}
	}
	return labelled[Counter]{func(...string) Counter { return noopMetric{} }}
}

func (c *prometheusCollector) RegisterGauge(name, help string, labels ...string) GaugeVec {
	fresh := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   c.config.Namespace,
		Name:        name,
		Help:        help,
		ConstLabels: c.config.ConstLabels,
	}, labels)
	if vec, ok := register(c, name, "gauge", fresh); ok {
		return labelled[Gauge]{func(lvs ...string) Gauge { return vec.WithLabelValues(lvs...) }}
	}
	return labelled[Gauge]{func(...string) Gauge { return noopMetric{} }}
}

// RegisterHistogram uses the configured default buckets when buckets is nil.
func (c *prometheusCollector) RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = c.config.DefaultHistogramBuckets
	}
	fresh := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   c.config.Namespace,
		Name:        name,
		Help:        help,
		ConstLabels: c.config.ConstLabels,
		Buckets:     buckets,
	}, labels)
	if vec, ok := register(c, name, "histogram", fresh); ok {
		return labelled[Histogram]{func(lvs ...string) Histogram { return vec.WithLabelValues(lvs...) }}
	}
	return labelled[Histogram]{func(...string) Histogram { return noopMetric{} }}
}

// register returns the vector already known under name, or registers fresh.
// Several services register the same HTTP metrics, so a repeat with the same
// kind is expected; a repeat with a different kind is not.
func register[V prometheus.Collector](c *prometheusCollector, name, kind string, fresh V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fq := prometheus.BuildFQName(c.config.Namespace, "", name)
	if prev, ok := c.byName[fq]; ok {
		vec, same := prev.(V)
		if !same {
			c.logger.Warn("Metric type mismatch", logging.String("name", name), logging.String("type", kind))
		}
		return vec, same
	}
	if err := c.registry.Register(fresh); err != nil {
		c.logger.Error("Failed to register "+kind, logging.String("name", name), logging.Err(err))
		var zero V
		return zero, false
	}
	c.byName[fq] = fresh
	return fresh, true
}

// labelled adapts a concrete prometheus vector, or a no-op, to the narrow
// vector interfaces above.
type labelled[M any] struct {
	with func(lvs ...string) M
}

func (l labelled[M]) WithLabelValues(lvs ...string) M { return l.with(lvs...) }

type noopMetric struct{}

func (noopMetric) Inc()            {}
func (noopMetric) Dec()            {}
func (noopMetric) Add(float64)     {}
func (noopMetric) Set(float64)     {}
func (noopMetric) Observe(float64) {}

//Personal.AI order the ending
