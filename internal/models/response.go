// Package models - API response types and error handling.
//
// All endpoints share one JSON error envelope with a machine-readable code,
// a human-readable message, and a timestamp. Upstream provider failures are
// deliberately NOT part of the error envelope: they travel as the text
// payload of a successful generation response, so a failed generation still
// consumes a quota unit and the client contract stays a single shape.
package models

import (
	"encoding/json"
	"time"
)

// GenerateResponse is the success body of POST /generate-infra/.
//
// The wire format keys the generated text by the selected model name:
//
//	{"gemini": "...", "remaining_messages": 3, "max_messages": 4}
type GenerateResponse struct {
	Model             string `json:"-"`
	Text              string `json:"-"`
	RemainingMessages int    `json:"remaining_messages"`
	MaxMessages       int    `json:"max_messages"`
}

// MarshalJSON emits the generated text under the dynamic model-name key.
func (r GenerateResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		r.Model:              r.Text,
		"remaining_messages": r.RemainingMessages,
		"max_messages":       r.MaxMessages,
	})
}

// LimitsResponse is the body of GET /user/limits.
type LimitsResponse struct {
	RemainingMessages int  `json:"remaining_messages"`
	MaxMessages       int  `json:"max_messages"`
	HasAccess         bool `json:"has_access"`
}

// TokenResponse is the body of the debug-only token minting endpoint.
type TokenResponse struct {
	Token string `json:"token"`
}

// MessageResponse is a plain informational body ("/" and admin reset).
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse provides structured error information.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheckResponse reports overall and per-component service health.
type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health status constants
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// Machine-readable error codes
const (
	ErrorCodeUnauthorized   = "UNAUTHORIZED"        // 401: missing/invalid/expired credential
	ErrorCodeQuotaExceeded  = "QUOTA_EXCEEDED"      // 429: rolling-window quota used up
	ErrorCodeBadRequest     = "BAD_REQUEST"         // 400: malformed body or unknown provider
	ErrorCodeInvalidRequest = "INVALID_REQUEST"     // 400/405: invalid request shape
	ErrorCodeRateLimited    = "RATE_LIMIT_EXCEEDED" // 429: transport-level abuse guard
	ErrorCodeNotFound       = "NOT_FOUND"           // 404
	ErrorCodeInternalError  = "INTERNAL_ERROR"      // 500
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}
