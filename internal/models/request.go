// Package models - incoming API request types and validation.
package models

import (
	"fmt"
	"strings"
)

// GenerateRequest is the body of POST /generate-infra/.
type GenerateRequest struct {
	// Prompt is the free-text description of the infrastructure to generate.
	Prompt string `json:"prompt"`

	// Model selects the upstream backend: "deepseek" or "gemini".
	Model string `json:"model"`
}

// Validate checks the request fields. The model selector is validated here so
// an unrecognized provider is rejected before any quota or upstream activity.
func (r *GenerateRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt is required")
	}
	switch r.Model {
	case ProviderDeepSeek, ProviderGemini:
		return nil
	default:
		return fmt.Errorf("invalid model selected: choose '%s' or '%s'", ProviderDeepSeek, ProviderGemini)
	}
}

// TokenRequest is the body of the debug-only POST /test/generate-token.
type TokenRequest struct {
	UserID string `json:"user_id"`
}

// Validate checks that a quota subject was supplied.
func (r *TokenRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("user_id is required")
	}
	return nil
}
