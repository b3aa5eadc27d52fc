package auth

import (
	"context"
	"encoding/json"
	"infragen/internal/models"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// contextKey is a private type for request context values set by this package.
type contextKey struct{}

var identityKey contextKey

// IdentityFromContext returns the verified identity set by Middleware.
func IdentityFromContext(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(identityKey).(string)
	return identity, ok && identity != ""
}

// WithIdentity returns a context carrying the given identity. Exposed for
// handler tests that bypass the middleware.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Middleware enforces bearer-token authentication. On success the verified
// identity is stored in the request context; on any failure the request is
// rejected with a 401 and a generic message.
func Middleware(verifier *Verifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if authHeader == "" || !strings.HasPrefix(authHeader, prefix) {
				writeUnauthorized(w, "missing or malformed authorization header")
				return
			}

			identity, err := verifier.Verify(authHeader[len(prefix):])
			if err != nil {
				slog.Debug("token verification failed", "path", r.URL.Path)
				writeUnauthorized(w, ErrInvalidToken.Error())
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.NewErrorResponse(message, models.ErrorCodeUnauthorized))
}
