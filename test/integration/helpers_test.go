//go:build integration

// Package integration runs the HTTP API against real PostgreSQL, Redis and
// MinIO containers. Tests require Docker and are gated behind the
// "integration" build tag.
package integration

import (
	"context"
	"net"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/Serial-Intelligence/internal/bootstrap"
	"github.com/turtacn/Serial-Intelligence/internal/config"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/Serial-Intelligence/internal/interfaces/http"
	"github.com/turtacn/Serial-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/Serial-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/Serial-Intelligence/pkg/client"
)

const (
	testAPIKey    = "integration-key"
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
)

// ---------------------------------------------------------------------------
// Containers
// ---------------------------------------------------------------------------

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) (string, int) {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return host, mapped.Int()
}

func startPostgres(t *testing.T) (string, int) {
	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "serial",
			"POSTGRES_PASSWORD": "serial",
			"POSTGRES_DB":       "serial_it",
		},
		// initdb restarts the server once; the second line is the real one.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}, "5432")
}

func startRedis(t *testing.T) string {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}, "6379")
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func startMinIO(t *testing.T) string {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}, "9000")
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ---------------------------------------------------------------------------
// Stack
// ---------------------------------------------------------------------------

// stack is a running API server on top of real backends.
type stack struct {
	cfg    *config.Config
	infra  *bootstrap.Infrastructure
	server *httptest.Server
	client *client.Client
}

func newStack(t *testing.T) *stack {
	t.Helper()
	pgHost, pgPort := startPostgres(t)
	redisAddr := startRedis(t)
	minioAddr := startMinIO(t)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Database.Host = pgHost
	cfg.Database.Port = pgPort
	cfg.Database.User = "serial"
	cfg.Database.Password = "serial"
	cfg.Database.DBName = "serial_it"
	cfg.Database.SSLMode = "disable"
	cfg.Database.AutoMigrate = true
	cfg.Database.MigrationPath = ""
	cfg.Redis.Enabled = true
	cfg.Redis.Mode = "standalone"
	cfg.Redis.Addr = redisAddr
	cfg.MinIO.Enabled = true
	cfg.MinIO.Endpoint = minioAddr
	cfg.MinIO.AccessKey = minioUser
	cfg.MinIO.SecretKey = minioPassword
	cfg.MinIO.UseSSL = false
	cfg.Kafka.Enabled = false
	cfg.Server.APIKeys = []string{testAPIKey}

	log := logging.NewNopLogger()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	infra, err := bootstrap.NewInfrastructure(ctx, cfg, log)
	require.NoError(t, err)
	t.Cleanup(infra.Close)

	svc, err := bootstrap.NewServices(cfg, infra, log)
	require.NoError(t, err)

	var checkers []handlers.HealthChecker
	for _, p := range infra.Probes() {
		checkers = append(checkers, handlers.NewChecker(p.Name, p.Check))
	}
	router := httpserver.NewRouter(httpserver.RouterConfig{
		SerialHandler:     handlers.NewSerialHandler(svc.Extraction, svc.Exports, log),
		PatternHandler:    handlers.NewPatternHandler(svc.Patterns, log),
		HealthHandler:     handlers.NewHealthHandler("integration", checkers...),
		AuthMiddleware:    middleware.NewAuthMiddleware(middleware.DefaultAuthConfig(testAPIKey), log),
		LoggingMiddleware: middleware.NewLoggingMiddleware(log, infra.Metrics, middleware.DefaultLoggingConfig()),
		MaxBodySize:       cfg.Server.MaxBodySize,
		Logger:            log,
		MetricsCollector:  infra.Collector,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	c, err := client.NewClient(srv.URL, testAPIKey, client.WithRetryMax(0))
	require.NoError(t, err)

	return &stack{cfg: cfg, infra: infra, server: srv, client: c}
}

//Personal.AI order the ending
