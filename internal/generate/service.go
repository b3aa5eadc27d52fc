// Package generate orchestrates the authenticated, quota-enforced request
// gate: selector validation, atomic quota admission, upstream dispatch, and
// response shaping. Authentication happens upstream in the HTTP middleware;
// this package receives an already-verified identity.
package generate

import (
	"context"
	"fmt"
	"infragen/internal/models"
	"infragen/internal/provider"
	"infragen/internal/quota"
	"log/slog"
)

// Compile-time interface check.
var _ ServiceInterface = (*Service)(nil)

// Service is the request gate implementation.
type Service struct {
	ledger    *quota.Ledger
	providers map[string]provider.Generator
}

// NewService creates a gate over the given ledger and generators. Generators
// are keyed by their Name.
func NewService(ledger *quota.Ledger, generators ...provider.Generator) *Service {
	providers := make(map[string]provider.Generator, len(generators))
	for _, g := range generators {
		providers[g.Name()] = g
	}
	return &Service{
		ledger:    ledger,
		providers: providers,
	}
}

// Generate runs one request through the gate.
//
// The quota unit is consumed atomically BEFORE dispatch. The original
// check-then-record split allowed two concurrent requests to both observe
// one free unit; fusing admission and increment closes that race. Since
// upstream failures are returned as payload text rather than errors, a
// failed generation costs the unit either way, so the observable contract
// is unchanged.
func (s *Service) Generate(ctx context.Context, identity string, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, NewBadRequestError(err.Error(), nil)
	}

	gen, ok := s.providers[req.Model]
	if !ok {
		// Validate covers known selectors; a registered-provider gap is a
		// wiring bug, not client error.
		return nil, NewInternalError(fmt.Sprintf("provider %s is not configured", req.Model), nil)
	}

	remaining, allowed, err := s.ledger.TryConsume(ctx, identity)
	if err != nil {
		return nil, NewInternalError("failed to check quota", err)
	}
	if !allowed {
		slog.Info("quota exceeded", "identity", identity, "limit", s.ledger.Limit())
		return nil, NewQuotaExceededError(s.ledger.Limit())
	}

	text := gen.Generate(ctx, req.Prompt)

	slog.Info("generation dispatched",
		"identity", identity,
		"provider", req.Model,
		"remaining", remaining,
	)

	return &models.GenerateResponse{
		Model:             req.Model,
		Text:              text,
		RemainingMessages: remaining,
		MaxMessages:       s.ledger.Limit(),
	}, nil
}

// Limits reports remaining quota for the identity. has_access reflects
// whether at least one unit is currently available.
func (s *Service) Limits(ctx context.Context, identity string) (*models.LimitsResponse, error) {
	remaining, err := s.ledger.Remaining(ctx, identity)
	if err != nil {
		return nil, NewInternalError("failed to read quota", err)
	}
	return &models.LimitsResponse{
		RemainingMessages: remaining,
		MaxMessages:       s.ledger.Limit(),
		HasAccess:         remaining > 0,
	}, nil
}

// ResetUsage zeroes the ledger for all identities.
func (s *Service) ResetUsage(ctx context.Context) error {
	if err := s.ledger.Reset(ctx); err != nil {
		return NewInternalError("failed to reset usage", err)
	}
	slog.Info("usage counts reset")
	return nil
}
