package api

import (
	"encoding/json"
	"errors"
	"infragen/internal/auth"
	"infragen/internal/generate"
	"infragen/internal/models"
	"log/slog"
	"net/http"
)

// Handlers contains the HTTP handlers for the gateway API.
type Handlers struct {
	service generate.ServiceInterface
	minter  *auth.Minter
}

// HandlerOption configures optional handler collaborators.
type HandlerOption func(*Handlers)

// WithMinter provides the token minter backing the debug token endpoint.
func WithMinter(m *auth.Minter) HandlerOption {
	return func(h *Handlers) { h.minter = m }
}

// NewHandlers creates a new handlers instance.
func NewHandlers(service generate.ServiceInterface, opts ...HandlerOption) *Handlers {
	h := &Handlers{service: service}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Root handles liveness probes from the frontend.
// GET /
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Backend is running!"})
}

// GenerateInfra handles generation requests.
// POST /generate-infra/
// Requires authentication; consumes one quota unit per dispatched request.
func (h *Handlers) GenerateInfra(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "missing or malformed authorization header")
		return
	}

	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	response, err := h.service.Generate(r.Context(), identity, &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// UserLimits reports the caller's current quota state.
// GET /user/limits
func (h *Handlers) UserLimits(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "missing or malformed authorization header")
		return
	}

	response, err := h.service.Limits(r.Context(), identity)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// HealthCheck reports service and component health.
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.AddComponent("quota", models.StatusHealthy, "Quota ledger is operational")
	response.AddComponent("api", models.StatusHealthy, "API is operational")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// writeServiceError maps a service error to its HTTP representation.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *generate.ServiceError
	if errors.As(err, &svcErr) {
		h.writeErrorResponse(w, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}
	slog.Error("unexpected service error", "error", err)
	h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
}

// writeJSONResponse writes a JSON response.
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing to send but a log line.
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes an error response.
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.writeJSONResponse(w, statusCode, models.NewErrorResponse(message, errorCode))
}
