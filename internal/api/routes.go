package api

import (
	"encoding/json"
	"infragen/internal/auth"
	"infragen/internal/models"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/" && r.URL.Path != "/health"
			}),
		))
	}
}

// WithRateLimiter adds rate limiting middleware to the router.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(r *mux.Router) {
		r.Use(middleware)
	}
}

// SetupRoutes configures the HTTP routes for the gateway.
func SetupRoutes(handlers *Handlers, verifier *auth.Verifier, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	for _, opt := range opts {
		opt(router)
	}

	router.HandleFunc("/", handlers.Root).Methods("GET")
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")

	// Authenticated surface. The auth middleware verifies the bearer token
	// and stores the identity in the request context.
	authed := router.PathPrefix("").Subrouter()
	authed.Use(auth.Middleware(verifier))
	authed.HandleFunc("/user/limits", handlers.UserLimits).Methods("GET")
	authed.HandleFunc("/generate-infra/", handlers.GenerateInfra).Methods("POST")

	// Debug surface - token minting and quota reset for test environments.
	// Never registered unless explicitly enabled.
	if config.Security.EnableDebugEndpoints {
		router.HandleFunc("/test/generate-token", handlers.GenerateToken).Methods("POST")
		router.HandleFunc("/admin/reset-counts", handlers.ResetCounts).Methods("POST")
	}

	router.PathPrefix("").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}).Methods("OPTIONS")

	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
	}

	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		errorResp := models.NewErrorResponse("Method not allowed", models.ErrorCodeInvalidRequest)
		json.NewEncoder(w).Encode(errorResp)
	})

	return router
}
