package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// APIKeyHeader is the alternative to "Authorization: Bearer <key>".
const APIKeyHeader = "X-API-Key"

// AuthConfig holds the accepted API keys.
type AuthConfig struct {
	APIKeys []string
	// SkipPaths bypass authentication (probes and metrics).
	SkipPaths []string
}

// DefaultAuthConfig accepts keys and skips the probe and metrics paths.
func DefaultAuthConfig(keys ...string) AuthConfig {
	return AuthConfig{
		APIKeys:   keys,
		SkipPaths: []string{"/health", "/healthz", "/readyz", "/metrics"},
	}
}

// AuthMiddleware rejects requests that do not carry one of the configured
// API keys.
type AuthMiddleware struct {
	digests [][sha256.Size]byte
	skip    map[string]bool
	logger  logging.Logger
}

// NewAuthMiddleware creates the middleware. Keys are kept only as SHA-256
// digests and compared in constant time.
func NewAuthMiddleware(cfg AuthConfig, logger logging.Logger) *AuthMiddleware {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := &AuthMiddleware{skip: make(map[string]bool, len(cfg.SkipPaths)), logger: logger}
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			m.digests = append(m.digests, sha256.Sum256([]byte(k)))
		}
	}
	for _, p := range cfg.SkipPaths {
		m.skip[p] = true
	}
	return m
}

// Enabled reports whether any key is configured.
func (m *AuthMiddleware) Enabled() bool { return len(m.digests) > 0 }

// Handler enforces the key check. With no keys configured every request
// passes.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() || m.skip[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		key := extractAPIKey(r)
		if key == "" {
			writeUnauthorized(w, "missing API key")
			return
		}
		if !m.valid(key) {
			m.logger.Warn("Rejected request with invalid API key",
				logging.String("path", r.URL.Path),
				logging.String("remote_addr", r.RemoteAddr))
			writeUnauthorized(w, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) valid(key string) bool {
	sum := sha256.Sum256([]byte(key))
	ok := 0
	for i := range m.digests {
		ok |= subtle.ConstantTimeCompare(sum[:], m.digests[i][:])
	}
	return ok == 1
}

// extractAPIKey reads the bearer token, falling back to X-API-Key.
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		const prefix = "bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			return strings.TrimSpace(auth[len(prefix):])
		}
	}
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="serial"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    errors.CodeUnauthorized.String(),
		"message": msg,
	})
}

//Personal.AI order the ending
