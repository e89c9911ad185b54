package config

import "time"

// ---------------------------------------------------------------------------
// Default value constants
// ---------------------------------------------------------------------------

const (
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxBodySize     = 8 << 20
	DefaultSlowThreshold   = time.Second

	DefaultGRPCPort = 9090

	DefaultDBHost           = "localhost"
	DefaultDBPort           = 5432
	DefaultDBUser           = "serial"
	DefaultDBName           = "serial_intelligence"
	DefaultDBSSLMode        = "disable"
	DefaultDBMaxOpenConns   = 25
	DefaultDBMaxIdleConns   = 10
	DefaultDBConnLifetime   = 30 * time.Minute
	DefaultDBConnIdleTime   = 5 * time.Minute
	DefaultStatementTimeout = 30 * time.Second
	DefaultMigrationPath    = "internal/infrastructure/database/postgres/migrations"

	DefaultRedisMode      = "standalone"
	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 10
	DefaultRedisKeyPrefix = "serial"

	DefaultKafkaBroker            = "localhost:9092"
	DefaultKafkaGroupID           = "serial-worker"
	DefaultKafkaClientID          = "serial-intelligence"
	DefaultKafkaBatchSize         = 100
	DefaultKafkaBatchTimeout      = 10 * time.Millisecond
	DefaultKafkaMaxRetries        = 3
	DefaultKafkaRequiredAcks      = "one"
	DefaultKafkaCompression       = "snappy"
	DefaultKafkaDeadLetterTopic   = "serial.dlq"
	DefaultKafkaWorkerConcurrency = 4

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIORegion   = "us-east-1"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "serial"
	DefaultMetricsPath      = "/metrics"

	DefaultMaxRangeSize    = 100000
	DefaultPatternOrder    = PatternOrderCreatedDesc
	DefaultPatternCacheTTL = 5 * time.Minute

	DefaultPatternMatchScore = 0.9
	DefaultRegexMatchScore   = 0.95
	DefaultSerialLikeScore   = 0.6
	DefaultPlainScore        = 0.4
	DefaultOtherScore        = 0.5
	DefaultShortCapScore     = 0.3
	DefaultHighConfidence    = 0.8

	DefaultExportBucket     = "serial-exports"
	DefaultExportPresignTTL = time.Hour
	DefaultExportMaxRows    = 100000

	DefaultRateLimitRPS   = 20
	DefaultRateLimitBurst = 40
)

// defaultValues lists every key with its default. It seeds viper so that
// AutomaticEnv can resolve keys absent from the config file.
func defaultValues() map[string]interface{} {
	return map[string]interface{}{
		"server.host":                 DefaultServerHost,
		"server.port":                 DefaultServerPort,
		"server.read_timeout":         DefaultReadTimeout,
		"server.write_timeout":        DefaultWriteTimeout,
		"server.idle_timeout":         DefaultIdleTimeout,
		"server.shutdown_timeout":     DefaultShutdownTimeout,
		"server.max_body_size":        DefaultMaxBodySize,
		"server.slow_threshold":       DefaultSlowThreshold,
		"server.cors_allowed_origins": []string{},
		"server.api_keys":             []string{},

		"grpc.enabled":           false,
		"grpc.port":              DefaultGRPCPort,
		"grpc.enable_reflection": false,

		"database.host":               DefaultDBHost,
		"database.port":               DefaultDBPort,
		"database.user":               DefaultDBUser,
		"database.password":           "",
		"database.db_name":            DefaultDBName,
		"database.ssl_mode":           DefaultDBSSLMode,
		"database.max_open_conns":     DefaultDBMaxOpenConns,
		"database.max_idle_conns":     DefaultDBMaxIdleConns,
		"database.conn_max_lifetime":  DefaultDBConnLifetime,
		"database.conn_max_idle_time": DefaultDBConnIdleTime,
		"database.statement_timeout":  DefaultStatementTimeout,
		"database.migration_path":     DefaultMigrationPath,
		"database.auto_migrate":       false,

		"redis.enabled":        false,
		"redis.mode":           DefaultRedisMode,
		"redis.addr":           DefaultRedisAddr,
		"redis.addrs":          []string{},
		"redis.master_name":    "",
		"redis.password":       "",
		"redis.db":             0,
		"redis.pool_size":      DefaultRedisPoolSize,
		"redis.min_idle_conns": 0,
		"redis.dial_timeout":   5 * time.Second,
		"redis.read_timeout":   3 * time.Second,
		"redis.write_timeout":  3 * time.Second,
		"redis.key_prefix":     DefaultRedisKeyPrefix,

		"kafka.enabled":            false,
		"kafka.brokers":            []string{DefaultKafkaBroker},
		"kafka.group_id":           DefaultKafkaGroupID,
		"kafka.client_id":          DefaultKafkaClientID,
		"kafka.auto_offset_reset":  "earliest",
		"kafka.batch_size":         DefaultKafkaBatchSize,
		"kafka.batch_timeout":      DefaultKafkaBatchTimeout,
		"kafka.max_retries":        DefaultKafkaMaxRetries,
		"kafka.required_acks":      DefaultKafkaRequiredAcks,
		"kafka.compression":        DefaultKafkaCompression,
		"kafka.dead_letter_topic":  DefaultKafkaDeadLetterTopic,
		"kafka.worker_concurrency": DefaultKafkaWorkerConcurrency,

		"minio.enabled":    false,
		"minio.endpoint":   DefaultMinIOEndpoint,
		"minio.access_key": "",
		"minio.secret_key": "",
		"minio.use_ssl":    false,
		"minio.region":     DefaultMinIORegion,

		"log.level":        DefaultLogLevel,
		"log.format":       DefaultLogFormat,
		"log.output_paths": []string{"stdout"},

		"metrics.enabled":   true,
		"metrics.namespace": DefaultMetricsNamespace,
		"metrics.path":      DefaultMetricsPath,

		"engine.max_range_size":           DefaultMaxRangeSize,
		"engine.pattern_order":            DefaultPatternOrder,
		"engine.pattern_cache_ttl":        DefaultPatternCacheTTL,
		"engine.thresholds.pattern_match": DefaultPatternMatchScore,
		"engine.thresholds.regex_match":   DefaultRegexMatchScore,
		"engine.thresholds.serial_like":   DefaultSerialLikeScore,
		"engine.thresholds.plain":         DefaultPlainScore,
		"engine.thresholds.other":         DefaultOtherScore,
		"engine.thresholds.short_cap":     DefaultShortCapScore,
		"engine.thresholds.high":          DefaultHighConfidence,

		"export.bucket":      DefaultExportBucket,
		"export.presign_ttl": DefaultExportPresignTTL,
		"export.max_rows":    DefaultExportMaxRows,

		"ratelimit.enabled":             false,
		"ratelimit.requests_per_second": DefaultRateLimitRPS,
		"ratelimit.burst":               DefaultRateLimitBurst,
	}
}

// ApplyDefaults fills zero-value fields in cfg with defaults. Explicitly set
// fields are left unchanged. It serves configs built in code (tests, the CLI
// local mode); file and env loading already start from defaultValues.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// --- Server ---
	setString(&cfg.Server.Host, DefaultServerHost)
	setInt(&cfg.Server.Port, DefaultServerPort)
	setDuration(&cfg.Server.ReadTimeout, DefaultReadTimeout)
	setDuration(&cfg.Server.WriteTimeout, DefaultWriteTimeout)
	setDuration(&cfg.Server.IdleTimeout, DefaultIdleTimeout)
	setDuration(&cfg.Server.ShutdownTimeout, DefaultShutdownTimeout)
	setDuration(&cfg.Server.SlowThreshold, DefaultSlowThreshold)
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	setInt(&cfg.GRPC.Port, DefaultGRPCPort)

	// --- Database ---
	setString(&cfg.Database.Host, DefaultDBHost)
	setInt(&cfg.Database.Port, DefaultDBPort)
	setString(&cfg.Database.User, DefaultDBUser)
	setString(&cfg.Database.DBName, DefaultDBName)
	setString(&cfg.Database.SSLMode, DefaultDBSSLMode)
	setInt(&cfg.Database.MaxOpenConns, DefaultDBMaxOpenConns)
	setInt(&cfg.Database.MaxIdleConns, DefaultDBMaxIdleConns)
	setDuration(&cfg.Database.ConnMaxLifetime, DefaultDBConnLifetime)
	setDuration(&cfg.Database.ConnMaxIdleTime, DefaultDBConnIdleTime)
	setDuration(&cfg.Database.StatementTimeout, DefaultStatementTimeout)
	setString(&cfg.Database.MigrationPath, DefaultMigrationPath)

	// --- Redis ---
	setString(&cfg.Redis.Mode, DefaultRedisMode)
	setString(&cfg.Redis.Addr, DefaultRedisAddr)
	setInt(&cfg.Redis.PoolSize, DefaultRedisPoolSize)
	setString(&cfg.Redis.KeyPrefix, DefaultRedisKeyPrefix)

	// --- Kafka ---
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	setString(&cfg.Kafka.GroupID, DefaultKafkaGroupID)
	setString(&cfg.Kafka.ClientID, DefaultKafkaClientID)
	setString(&cfg.Kafka.AutoOffsetReset, "earliest")
	setInt(&cfg.Kafka.BatchSize, DefaultKafkaBatchSize)
	setDuration(&cfg.Kafka.BatchTimeout, DefaultKafkaBatchTimeout)
	setInt(&cfg.Kafka.MaxRetries, DefaultKafkaMaxRetries)
	setString(&cfg.Kafka.RequiredAcks, DefaultKafkaRequiredAcks)
	setString(&cfg.Kafka.Compression, DefaultKafkaCompression)
	setString(&cfg.Kafka.DeadLetterTopic, DefaultKafkaDeadLetterTopic)
	setInt(&cfg.Kafka.WorkerConcurrency, DefaultKafkaWorkerConcurrency)

	// --- MinIO ---
	setString(&cfg.MinIO.Endpoint, DefaultMinIOEndpoint)
	setString(&cfg.MinIO.Region, DefaultMinIORegion)

	// --- Log / Metrics ---
	setString(&cfg.Log.Level, DefaultLogLevel)
	setString(&cfg.Log.Format, DefaultLogFormat)
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}
	setString(&cfg.Metrics.Namespace, DefaultMetricsNamespace)
	setString(&cfg.Metrics.Path, DefaultMetricsPath)

	// --- Engine ---
	setInt(&cfg.Engine.MaxRangeSize, DefaultMaxRangeSize)
	setString(&cfg.Engine.PatternOrder, DefaultPatternOrder)
	setDuration(&cfg.Engine.PatternCacheTTL, DefaultPatternCacheTTL)
	th := &cfg.Engine.Thresholds
	// An all-zero block means "not configured"; partial blocks are kept as set.
	if *th == (ThresholdsConfig{}) {
		*th = ThresholdsConfig{
			PatternMatch: DefaultPatternMatchScore,
			RegexMatch:   DefaultRegexMatchScore,
			SerialLike:   DefaultSerialLikeScore,
			Plain:        DefaultPlainScore,
			Other:        DefaultOtherScore,
			ShortCap:     DefaultShortCapScore,
			High:         DefaultHighConfidence,
		}
	}

	// --- Export / RateLimit ---
	setString(&cfg.Export.Bucket, DefaultExportBucket)
	setDuration(&cfg.Export.PresignTTL, DefaultExportPresignTTL)
	setInt(&cfg.Export.MaxRows, DefaultExportMaxRows)
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	setInt(&cfg.RateLimit.Burst, DefaultRateLimitBurst)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}

//Personal.AI order the ending
