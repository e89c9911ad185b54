// API server entry point for Serial-Intelligence.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/turtacn/Serial-Intelligence/internal/bootstrap"
	"github.com/turtacn/Serial-Intelligence/internal/config"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	grpcserver "github.com/turtacn/Serial-Intelligence/internal/interfaces/grpc"
	httpserver "github.com/turtacn/Serial-Intelligence/internal/interfaces/http"
	"github.com/turtacn/Serial-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/Serial-Intelligence/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: search ./configs and .)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	grpcPort := flag.Int("grpc-port", 0, "gRPC server port (overrides config)")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(*configPath, *httpPort, *grpcPort); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort, grpcPort int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}
	if grpcPort > 0 {
		cfg.GRPC.Port = grpcPort
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger = logger.Named("apiserver")
	logger.Info("Starting Serial-Intelligence API server",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("build_date", buildDate),
		logging.Int("http_port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.NewInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	svc, err := bootstrap.NewServices(cfg, infra, logger)
	if err != nil {
		return err
	}

	if configPath != "" {
		watchConfig(configPath, logger)
	}

	probes := infra.Probes()
	checkers := make([]handlers.HealthChecker, 0, len(probes))
	for _, p := range probes {
		checkers = append(checkers, handlers.NewChecker(p.Name, p.Check))
	}

	routerCfg := httpserver.RouterConfig{
		SerialHandler:     handlers.NewSerialHandler(svc.Extraction, svc.Exports, logger),
		PatternHandler:    handlers.NewPatternHandler(svc.Patterns, logger),
		HealthHandler:     handlers.NewHealthHandler(version, checkers...),
		AuthMiddleware:    middleware.NewAuthMiddleware(middleware.DefaultAuthConfig(cfg.Server.APIKeys...), logger),
		LoggingMiddleware: middleware.NewLoggingMiddleware(logger, infra.Metrics, loggingConfig(cfg.Server)),
		MaxBodySize:       cfg.Server.MaxBodySize,
		Logger:            logger,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsCollector = infra.Collector
	}
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		routerCfg.CORSMiddleware = middleware.NewCORSMiddleware(middleware.DefaultCORSConfig(cfg.Server.CORSAllowedOrigins...))
	}
	if cfg.RateLimit.Enabled {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.BurstSize = cfg.RateLimit.Burst
		limiter := middleware.NewRateLimitMiddleware(rl)
		defer limiter.Stop()
		routerCfg.RateLimitMiddleware = limiter
	}
	if len(cfg.Server.APIKeys) == 0 {
		logger.Warn("No API keys configured, /api/v1 is unauthenticated")
	}

	httpSrv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.Start() }()

	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		opts := []grpcserver.Option{grpcserver.WithLogger(logger)}
		for _, p := range probes {
			opts = append(opts, grpcserver.WithProbe(p.Name, p.Check))
		}
		grpcSrv, err = grpcserver.NewServer(cfg.GRPC, opts...)
		if err != nil {
			return err
		}
		go func() { errCh <- grpcSrv.Start() }()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", logging.Err(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", logging.Err(err))
	}
	if grpcSrv != nil {
		if err := grpcSrv.Stop(shutdownCtx); err != nil {
			logger.Error("gRPC shutdown error", logging.Err(err))
		}
	}
	logger.Info("API server stopped")
	return nil
}

// loadConfig reads an explicit file, else the first config.yaml under
// ./configs or ., else defaults and SERIAL_* variables.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	cfg, err := config.Load(config.WithSearchPaths("configs", "."))
	if stderrors.Is(err, config.ErrConfigFileNotFound) {
		return config.Load()
	}
	return cfg, err
}

func loggingConfig(server config.ServerConfig) middleware.LoggingConfig {
	lc := middleware.DefaultLoggingConfig()
	if server.SlowThreshold > 0 {
		lc.SlowThreshold = server.SlowThreshold
	}
	return lc
}

// watchConfig applies log level changes without a restart.
func watchConfig(path string, logger logging.Logger) {
	err := config.Watch(path, func(cfg *config.Config) {
		logging.SetLevel(cfg.Log.Level)
		logger.Info("Configuration reloaded", logging.String("log_level", cfg.Log.Level))
	}, func(err error) {
		logger.Warn("Ignoring invalid configuration change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("Config watch disabled", logging.Err(err))
	}
}

//Personal.AI order the ending
