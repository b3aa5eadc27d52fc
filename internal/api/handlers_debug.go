package api

import (
	"encoding/json"
	"infragen/internal/models"
	"log/slog"
	"net/http"
)

// Debug-only handlers. These are registered only when
// security.enable_debug_endpoints is set and must never be active in a
// production deployment: GenerateToken mints valid credentials for any
// user ID and ResetCounts wipes the entire quota ledger.

// GenerateToken mints a bearer token for the given user ID.
// POST /test/generate-token
func (h *Handlers) GenerateToken(w http.ResponseWriter, r *http.Request) {
	if h.minter == nil {
		h.writeErrorResponse(w, http.StatusNotFound, models.ErrorCodeNotFound, "Not found")
		return
	}

	var req models.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, err.Error())
		return
	}

	token, err := h.minter.Mint(req.UserID)
	if err != nil {
		slog.Error("token minting failed", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Failed to generate token")
		return
	}

	slog.Warn("debug token minted", "user_id", req.UserID)
	h.writeJSONResponse(w, http.StatusOK, models.TokenResponse{Token: token})
}

// ResetCounts zeroes the quota ledger for all identities.
// POST /admin/reset-counts
func (h *Handlers) ResetCounts(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetUsage(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}

	slog.Warn("quota counts reset via debug endpoint")
	h.writeJSONResponse(w, http.StatusOK, models.MessageResponse{Message: "All usage counts reset"})
}
