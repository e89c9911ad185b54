// Background worker for Serial-Intelligence. It consumes export requests and
// pattern change events from Kafka and serves liveness, readiness and
// metrics on a small side port.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/turtacn/Serial-Intelligence/internal/bootstrap"
	"github.com/turtacn/Serial-Intelligence/internal/config"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/Serial-Intelligence/pkg/types/common"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const (
	defaultHealthAddr = ":8081"
	topicSetupTimeout = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: search ./configs and .)")
	healthAddr := flag.String("health-addr", defaultHealthAddr, "listen address for /healthz, /readyz and /metrics")
	topics := flag.String("topics", "", "comma-separated topics to consume (default: all worker topics)")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(*configPath, *healthAddr, *topics); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, healthAddr, topicFilter string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return stderrors.New("kafka is disabled in config, nothing to consume")
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger = logger.Named("worker")
	logger.Info("Starting Serial-Intelligence worker",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("build_date", buildDate))

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

	routes, err := selectRoutes(map[string]common.MessageHandler{
		kafka.TopicExportRequested: svc.Exports.HandleExportRequested,
		kafka.TopicPatternChanged:  svc.Patterns.HandlePatternChanged,
	}, topicFilter)
	if err != nil {
		return err
	}

	if err := ensureTopics(ctx, cfg.Kafka.Brokers, logger); err != nil {
		logger.Warn("Topic setup failed, relying on broker auto-create", logging.Err(err))
	}

	names := make([]string, 0, len(routes))
	for topic := range routes {
		names = append(names, topic)
	}
	consumerCfg := kafka.ConsumerConfigFrom(cfg.Kafka, names...)
	consumerCfg.OnResult = infra.Metrics.RecordMessage
	consumer, err := kafka.NewConsumer(consumerCfg, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()
	for topic, h := range routes {
		consumer.Subscribe(topic, h)
	}

	healthSrv := startHealthServer(healthAddr, infra, logger)

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	logger.Info("Worker consuming",
		logging.String("topics", strings.Join(names, ",")),
		logging.String("group_id", cfg.Kafka.GroupID))

	<-ctx.Done()
	logger.Info("Shutdown signal received",
		logging.Int64("processed", consumer.Processed()),
		logging.Int64("failed", consumer.Failed()),
		logging.Int64("dead_lettered", consumer.DeadLettered()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health server shutdown error", logging.Err(err))
	}
	logger.Info("Worker stopped")
	return nil
}

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

// selectRoutes narrows handlers to the comma-separated filter. An empty
// filter keeps every route.
func selectRoutes(all map[string]common.MessageHandler, filter string) (map[string]common.MessageHandler, error) {
	if strings.TrimSpace(filter) == "" {
		return all, nil
	}
	out := make(map[string]common.MessageHandler)
	for _, t := range strings.Split(filter, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		h, ok := all[t]
		if !ok {
			return nil, fmt.Errorf("no handler for topic %q", t)
		}
		out[t] = h
	}
	if len(out) == 0 {
		return nil, stderrors.New("topic filter selected nothing")
	}
	return out, nil
}

func ensureTopics(ctx context.Context, brokers []string, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(brokers, logger)
	if err != nil {
		return err
	}
	defer tm.Close()

	ctx, cancel := context.WithTimeout(ctx, topicSetupTimeout)
	defer cancel()
	return tm.EnsureTopics(ctx, kafka.DefaultTopics())
}

// healthRouter serves the probes and, when enabled, the metrics endpoint.
func healthRouter(infra *bootstrap.Infrastructure) http.Handler {
	probes := infra.Probes()
	checkers := make([]handlers.HealthChecker, 0, len(probes))
	for _, p := range probes {
		checkers = append(checkers, handlers.NewChecker(p.Name, p.Check))
	}
	health := handlers.NewHealthHandler(version, checkers...)

	r := chi.NewRouter()
	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)
	r.Get("/health", health.Detailed)
	if infra.Collector != nil {
		r.Handle("/metrics", infra.Collector.Handler())
	}
	return r
}

func startHealthServer(addr string, infra *bootstrap.Infrastructure, logger logging.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           healthRouter(infra),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Health server listening", logging.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server error", logging.Err(err))
		}
	}()
	return srv
}

//Personal.AI order the ending
