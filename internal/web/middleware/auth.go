package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/lpcsv/internal/config"
	"github.com/JonMunkholm/lpcsv/internal/core"
)

// apiKey is one accepted key. Keys configured as "key=42" act as user 42
// when scales are created during an import.
type apiKey struct {
	key   []byte
	actor int64
}

func parseAPIKeys(raw []string) []apiKey {
	keys := make([]apiKey, 0, len(raw))
	for _, entry := range raw {
		key, actor, hasActor := strings.Cut(strings.TrimSpace(entry), "=")
		if key == "" {
			continue
		}
		k := apiKey{key: []byte(key)}
		if hasActor {
			id, err := strconv.ParseInt(actor, 10, 64)
			if err != nil {
				slog.Warn("auth: ignoring non-numeric actor for API key", "actor", actor)
			} else {
				k.actor = id
			}
		}
		keys = append(keys, k)
	}
	return keys
}

// APIKeyAuth returns middleware that validates the X-API-Key header.
// If RequireAPIKey is false, all requests pass through.
// If RequireAPIKey is true but no keys are configured, all requests are rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	keys := parseAPIKeys(cfg.APIKeys)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get("X-API-Key")
			if presented == "" {
				slog.Warn("auth: missing API key", "path", r.URL.Path, "method", r.Method, "remote_addr", r.RemoteAddr)
				writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH_MISSING_KEY")
				return
			}

			match, ok := matchAPIKey(presented, keys)
			if !ok {
				slog.Warn("auth: invalid API key", "path", r.URL.Path, "method", r.Method, "remote_addr", r.RemoteAddr)
				writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
				return
			}

			ctx := r.Context()
			if match.actor != 0 {
				ctx = core.ContextWithActor(ctx, match.actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// matchAPIKey compares against every key in constant time per key, so the
// time taken does not depend on which key matched.
func matchAPIKey(presented string, keys []apiKey) (apiKey, bool) {
	var (
		found apiKey
		ok    bool
	)
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(presented), k.key) == 1 {
			found, ok = k, true
		}
	}
	return found, ok
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `","code":"` + code + `"}`))
}
