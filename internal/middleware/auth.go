package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"media-pipe/internal/logging"
	"media-pipe/internal/metrics"
)

// AuthConfig holds configuration for the bearer token middleware
type AuthConfig struct {
	// TokenHash is the bcrypt hash of the access token. Empty disables
	// authentication entirely (for trusted-network deployments).
	TokenHash string
	// SkipPaths are served without authentication (health probes and
	// the metrics endpoint).
	SkipPaths []string
}

// DefaultAuthConfig returns the default auth configuration for the
// given token hash.
func DefaultAuthConfig(tokenHash string) AuthConfig {
	return AuthConfig{
		TokenHash: tokenHash,
		SkipPaths: []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
	}
}

// Auth returns middleware that checks the Authorization bearer token
// against the configured bcrypt hash. Use cmd/hashtoken to generate the
// hash.
func Auth(config AuthConfig) func(http.Handler) http.Handler {
	if config.TokenHash == "" {
		logging.Warn("Authentication disabled: no access token hash configured")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.TokenHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			token := bearerToken(r)
			if token == "" {
				metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
				w.Header().Set("WWW-Authenticate", `Bearer realm="media-pipe"`)
				http.Error(w, "authorization required", http.StatusUnauthorized)
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(config.TokenHash), []byte(token)); err != nil {
				metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
				logging.Warn("Rejected request to %s from %s: invalid token", r.URL.Path, getClientIP(r))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
