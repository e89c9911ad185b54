// Package bootstrap assembles the process-wide dependencies shared by the API
// server, the export worker and the CLI: infrastructure clients opened from
// config, the recognition engine and the application services on top.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	app "github.com/turtacn/Serial-Intelligence/internal/application/serial"
	"github.com/turtacn/Serial-Intelligence/internal/config"
	domainSerial "github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/storage/minio"
	extractor "github.com/turtacn/Serial-Intelligence/internal/intelligence/serial_extractor"
)

const exportLockTTL = 2 * time.Minute

// NewLogger builds the process logger from the log section and installs it
// as logging.Default.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	log, err := logging.NewLogger(logging.LogConfig{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.OutputPaths,
	})
	if err != nil {
		return nil, err
	}
	logging.SetDefault(log)
	return log, nil
}

// EngineConfigFrom maps the engine section onto the extractor configuration.
// Zero thresholds keep their built-in values.
func EngineConfigFrom(cfg config.EngineConfig) (extractor.EngineConfig, error) {
	out := extractor.DefaultEngineConfig()
	if cfg.MaxRangeSize > 0 {
		out.MaxRangeSize = int64(cfg.MaxRangeSize)
	}
	if cfg.PatternOrder != "" {
		order, err := extractor.ParsePatternOrder(cfg.PatternOrder)
		if err != nil {
			return out, err
		}
		out.Order = order
	}

	th := &out.Thresholds
	override := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	override(&th.PatternMatch, cfg.Thresholds.PatternMatch)
	override(&th.RegexMatch, cfg.Thresholds.RegexMatch)
	override(&th.SerialLike, cfg.Thresholds.SerialLike)
	override(&th.Plain, cfg.Thresholds.Plain)
	override(&th.Other, cfg.Thresholds.Other)
	override(&th.ShortCap, cfg.Thresholds.ShortCap)
	override(&th.High, cfg.Thresholds.High)
	return out, nil
}

// ---------------------------------------------------------------------------
// Infrastructure
// ---------------------------------------------------------------------------

// Infrastructure holds the opened clients. Optional components are nil when
// disabled in config.
type Infrastructure struct {
	Postgres  *postgres.Connection
	Redis     *redis.Client
	MinIO     *minio.Client
	Producer  *kafka.Producer
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.SerialMetrics

	logger logging.Logger
}

// NewInfrastructure opens every enabled backend. Postgres is always required.
// On error whatever was opened is closed again.
func NewInfrastructure(ctx context.Context, cfg *config.Config, log logging.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{logger: log}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableProcessMetrics: cfg.Metrics.Enabled,
		EnableGoMetrics:      cfg.Metrics.Enabled,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	infra.Collector = collector
	infra.Metrics = prometheus.NewSerialMetrics(collector)

	pg, err := postgres.NewConnection(cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	infra.Postgres = pg

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(pg.DB(), cfg.Database.MigrationPath, log).Up(); err != nil {
			infra.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(&cfg.Redis, log)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		infra.Redis = rc
	}

	if cfg.MinIO.Enabled {
		mc, err := minio.NewClient(cfg.MinIO, cfg.Export, log)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("minio: %w", err)
		}
		infra.MinIO = mc
		if err := mc.EnsureBucket(ctx); err != nil {
			infra.Close()
			return nil, fmt.Errorf("minio bucket: %w", err)
		}
	}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), log)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("kafka: %w", err)
		}
		infra.Producer = producer
	}

	log.Info("Infrastructure initialized",
		logging.Bool("redis", infra.Redis != nil),
		logging.Bool("minio", infra.MinIO != nil),
		logging.Bool("kafka", infra.Producer != nil))
	return infra, nil
}

// Close releases the clients in reverse order of opening.
func (i *Infrastructure) Close() {
	if i.Producer != nil {
		if err := i.Producer.Close(); err != nil {
			i.logger.Warn("Failed to close kafka producer", logging.Err(err))
		}
	}
	if i.MinIO != nil {
		_ = i.MinIO.Close()
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.logger.Warn("Failed to close redis client", logging.Err(err))
		}
	}
	if i.Postgres != nil {
		if err := i.Postgres.Close(); err != nil {
			i.logger.Warn("Failed to close postgres connection", logging.Err(err))
		}
	}
}

// Probe is a named dependency check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Probes returns one check per opened backend. Kafka is left out: the
// producer connects lazily and a broker outage only delays events.
func (i *Infrastructure) Probes() []Probe {
	var probes []Probe
	if i.Postgres != nil {
		probes = append(probes, Probe{Name: "postgres", Check: i.Postgres.HealthCheck})
	}
	if i.Redis != nil {
		probes = append(probes, Probe{Name: "redis", Check: i.Redis.Ping})
	}
	if i.MinIO != nil {
		probes = append(probes, Probe{Name: "minio", Check: i.MinIO.HealthCheck})
	}
	return probes
}

// publisher returns the producer as an EventPublisher, or a nil interface
// when Kafka is disabled.
func (i *Infrastructure) publisher() app.EventPublisher {
	if i.Producer == nil {
		return nil
	}
	return i.Producer
}

// cache returns a Redis cache under the client's key prefix, or a nil
// interface when Redis is disabled.
func (i *Infrastructure) cache(ttl time.Duration) redis.Cache {
	if i.Redis == nil {
		return nil
	}
	var opts []redis.CacheOption
	if ttl > 0 {
		opts = append(opts, redis.WithDefaultTTL(ttl))
	}
	return redis.NewRedisCache(i.Redis, i.logger, opts...)
}

// ---------------------------------------------------------------------------
// Services
// ---------------------------------------------------------------------------

// Services groups the application services.
type Services struct {
	Engine     *extractor.Engine
	Extraction app.ExtractionService
	Patterns   app.PatternService
	Exports    app.ExportService
}

// NewServices wires the application layer on top of infra.
func NewServices(cfg *config.Config, infra *Infrastructure, log logging.Logger) (*Services, error) {
	engineCfg, err := EngineConfigFrom(cfg.Engine)
	if err != nil {
		return nil, err
	}
	engine := extractor.NewEngine(engineCfg, log)
	pub := infra.publisher()

	patternRepo := repositories.NewPostgresSerialPatternRepo(infra.Postgres, log)
	patterns := app.NewPatternService(
		patternRepo,
		infra.cache(cfg.Engine.PatternCacheTTL),
		pub,
		infra.Metrics,
		app.PatternServiceConfig{CacheTTL: cfg.Engine.PatternCacheTTL},
		log,
	)

	var (
		store app.ObjectStore
		jobs  domainSerial.ExportJobRepository
		locks app.Locker
	)
	if infra.MinIO != nil {
		store = minio.NewExportStore(infra.MinIO, log)
	}
	if pub != nil {
		jobs = repositories.NewPostgresExportJobRepo(infra.Postgres, log)
	}
	if infra.Redis != nil {
		locks = redis.NewLockFactory(infra.Redis, exportLockTTL)
	}
	exports := app.NewExportService(
		store,
		jobs,
		infra.cache(0),
		locks,
		pub,
		infra.Metrics,
		app.ExportServiceConfig{MaxRows: cfg.Export.MaxRows},
		log,
	)

	return &Services{
		Engine:     engine,
		Extraction: app.NewExtractionService(engine, patterns, pub, infra.Metrics, log),
		Patterns:   patterns,
		Exports:    exports,
	}, nil
}

//Personal.AI order the ending
