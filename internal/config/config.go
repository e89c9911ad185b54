// Package config defines all configuration structures for Serial-Intelligence.
// No I/O lives in this file, only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Sub-configuration structs
// ---------------------------------------------------------------------------

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
	// CORSAllowedOrigins enables CORS for the listed origins ("*" and
	// "*.example.com" forms are accepted). Empty disables CORS.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	// APIKeys, when non-empty, are required on /api/v1 as a bearer token or
	// X-API-Key header.
	APIKeys []string `mapstructure:"api_keys"`
}

// GRPCConfig holds the gRPC listener used for health probing.
type GRPCConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	Port             int  `mapstructure:"port"`
	EnableReflection bool `mapstructure:"enable_reflection"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the pattern store.
type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	MigrationPath    string        `mapstructure:"migration_path"`
	AutoMigrate      bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis connection parameters for the pattern cache.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Mode         string        `mapstructure:"mode"` // standalone | sentinel | cluster
	Addr         string        `mapstructure:"addr"`
	Addrs        []string      `mapstructure:"addrs"`
	MasterName   string        `mapstructure:"master_name"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka producer/consumer parameters.
type KafkaConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Brokers           []string      `mapstructure:"brokers"`
	GroupID           string        `mapstructure:"group_id"`
	ClientID          string        `mapstructure:"client_id"`
	AutoOffsetReset   string        `mapstructure:"auto_offset_reset"` // earliest | latest
	BatchSize         int           `mapstructure:"batch_size"`
	BatchTimeout      time.Duration `mapstructure:"batch_timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequiredAcks      string        `mapstructure:"required_acks"` // none | one | all
	Compression       string        `mapstructure:"compression"`   // none | gzip | snappy | lz4 | zstd
	DeadLetterTopic   string        `mapstructure:"dead_letter_topic"`
	WorkerConcurrency int           `mapstructure:"worker_concurrency"`
}

// MinIOConfig holds S3-compatible object storage parameters for exports.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // debug | info | warn | error
	Format      string   `mapstructure:"format"` // json | console
	OutputPaths []string `mapstructure:"output_paths"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ThresholdsConfig holds the tunable confidence scores of the engine.
type ThresholdsConfig struct {
	PatternMatch float64 `mapstructure:"pattern_match"`
	RegexMatch   float64 `mapstructure:"regex_match"`
	SerialLike   float64 `mapstructure:"serial_like"`
	Plain        float64 `mapstructure:"plain"`
	Other        float64 `mapstructure:"other"`
	ShortCap     float64 `mapstructure:"short_cap"`
	High         float64 `mapstructure:"high"`
}

// EngineConfig holds recognition and generation limits.
type EngineConfig struct {
	// MaxRangeSize caps both range expansion and bulk generation.
	MaxRangeSize int `mapstructure:"max_range_size"`
	// PatternOrder selects the tie-break order among equally specific
	// patterns: created_desc | created_asc | name_asc | id_asc.
	PatternOrder    string           `mapstructure:"pattern_order"`
	PatternCacheTTL time.Duration    `mapstructure:"pattern_cache_ttl"`
	Thresholds      ThresholdsConfig `mapstructure:"thresholds"`
}

// ExportConfig holds serial export parameters.
type ExportConfig struct {
	Bucket     string        `mapstructure:"bucket"`
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
	MaxRows    int           `mapstructure:"max_rows"`
}

// RateLimitConfig holds request throttling for the serial endpoints.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ---------------------------------------------------------------------------
// Root Config
// ---------------------------------------------------------------------------

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Export    ExportConfig    `mapstructure:"export"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// Pattern orders accepted by engine.pattern_order.
const (
	PatternOrderCreatedDesc = "created_desc"
	PatternOrderCreatedAsc  = "created_asc"
	PatternOrderNameAsc     = "name_asc"
	PatternOrderIDAsc       = "id_asc"
)

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate performs semantic validation of a fully-populated Config and
// returns the first error encountered.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.GRPC.Enabled && (c.GRPC.Port < 1 || c.GRPC.Port > 65535) {
		return fmt.Errorf("config: grpc.port %d is out of range [1, 65535]", c.GRPC.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("config: database.max_open_conns must be ≥ 1, got %d", c.Database.MaxOpenConns)
	}

	if c.Redis.Enabled {
		switch c.Redis.Mode {
		case "standalone":
			if c.Redis.Addr == "" {
				return fmt.Errorf("config: redis.addr is required")
			}
		case "sentinel", "cluster":
			if len(c.Redis.Addrs) == 0 {
				return fmt.Errorf("config: redis.addrs is required in %s mode", c.Redis.Mode)
			}
		default:
			return fmt.Errorf("config: redis.mode %q is invalid; expected standalone|sentinel|cluster", c.Redis.Mode)
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
		switch c.Kafka.RequiredAcks {
		case "", "none", "one", "all":
		default:
			return fmt.Errorf("config: kafka.required_acks must be none, one or all, got %q", c.Kafka.RequiredAcks)
		}
		switch c.Kafka.Compression {
		case "", "none", "gzip", "snappy", "lz4", "zstd":
		default:
			return fmt.Errorf("config: kafka.compression %q is not supported", c.Kafka.Compression)
		}
		if c.Kafka.WorkerConcurrency < 1 {
			return fmt.Errorf("config: kafka.worker_concurrency must be ≥ 1, got %d", c.Kafka.WorkerConcurrency)
		}
	}

	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required")
		}
		if c.Export.Bucket == "" {
			return fmt.Errorf("config: export.bucket is required when minio is enabled")
		}
	}

	if err := c.Engine.validate(); err != nil {
		return err
	}
	if c.Export.MaxRows < 1 {
		return fmt.Errorf("config: export.max_rows must be ≥ 1, got %d", c.Export.MaxRows)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("config: ratelimit requires requests_per_second > 0 and burst ≥ 1")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

func (e EngineConfig) validate() error {
	if e.MaxRangeSize < 1 {
		return fmt.Errorf("config: engine.max_range_size must be ≥ 1, got %d", e.MaxRangeSize)
	}
	switch e.PatternOrder {
	case PatternOrderCreatedDesc, PatternOrderCreatedAsc, PatternOrderNameAsc, PatternOrderIDAsc:
	default:
		return fmt.Errorf("config: engine.pattern_order %q is invalid", e.PatternOrder)
	}
	th := e.Thresholds
	scores := map[string]float64{
		"pattern_match": th.PatternMatch,
		"regex_match":   th.RegexMatch,
		"serial_like":   th.SerialLike,
		"plain":         th.Plain,
		"other":         th.Other,
		"short_cap":     th.ShortCap,
		"high":          th.High,
	}
	for name, v := range scores {
		if v < 0 || v > 1 {
			return fmt.Errorf("config: engine.thresholds.%s %.2f is out of range [0, 1]", name, v)
		}
	}
	if th.RegexMatch < th.PatternMatch {
		return fmt.Errorf("config: engine.thresholds.regex_match must be ≥ pattern_match")
	}
	return nil
}

//Personal.AI order the ending
