// Package middleware holds the chi middleware mounted by the HTTP router:
// request logging with metrics, API-key auth, rate limiting and CORS.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/prometheus"
)

type LoggingConfig struct {
	// SkipPaths are counted in metrics but not logged.
	SkipPaths []string
	// SlowThreshold promotes slow successful requests to warn. Zero disables.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig keeps probe and scrape traffic out of the log.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/health", "/healthz", "/readyz", "/metrics"},
		SlowThreshold: time.Second,
	}
}

// routeLabel returns the matched chi pattern so /patterns/7 and /patterns/8
// share one series. Requests that matched nothing are "unmatched".
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}

// RequestLogging logs one line per request and records the HTTP metrics.
// Handlers get a logger tagged with the request id through the context.
// metrics may be nil.
func RequestLogging(logger logging.Logger, metrics *prometheus.SerialMetrics, cfg LoggingConfig) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer metrics.TrackInFlight()()

			reqLog := logger
			if id := chimw.GetReqID(r.Context()); id != "" {
				reqLog = logger.With(logging.String("request_id", id))
			}
			r = r.WithContext(logging.NewContext(r.Context(), reqLog))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.RecordHTTPRequest(r.Method, routeLabel(r), status, elapsed)
			if _, ok := skip[r.URL.Path]; ok {
				return
			}

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Duration("latency", elapsed),
				logging.Int("bytes", ww.BytesWritten()),
				logging.String("remote_addr", r.RemoteAddr),
			}
			if ua := r.UserAgent(); ua != "" {
				fields = append(fields, logging.String("user_agent", ua))
			}

			switch {
			case status >= http.StatusInternalServerError:
				reqLog.Error("HTTP request completed with server error", fields...)
			case status >= http.StatusBadRequest:
				reqLog.Warn("HTTP request completed with client error", fields...)
			case cfg.SlowThreshold > 0 && elapsed >= cfg.SlowThreshold:
				reqLog.Warn("HTTP request completed (slow)", fields...)
			default:
				reqLog.Info("HTTP request completed", fields...)
			}
		})
	}
}

// LoggingMiddleware is the RouterConfig form of RequestLogging.
type LoggingMiddleware struct {
	handler func(http.Handler) http.Handler
}

func NewLoggingMiddleware(logger logging.Logger, metrics *prometheus.SerialMetrics, cfg LoggingConfig) *LoggingMiddleware {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LoggingMiddleware{handler: RequestLogging(logger.Named("http"), metrics, cfg)}
}

func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return m.handler(next)
}

//Personal.AI order the ending
