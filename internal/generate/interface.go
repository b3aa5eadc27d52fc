package generate

import (
	"context"
	"infragen/internal/models"
)

// ServiceInterface defines the operations of the generation gate. Handlers
// depend on this interface so tests can substitute fakes.
type ServiceInterface interface {
	// Generate runs the full gate for one authenticated request:
	// validate the provider selector, consume a quota unit, dispatch to
	// the upstream backend, and shape the response.
	Generate(ctx context.Context, identity string, req *models.GenerateRequest) (*models.GenerateResponse, error)

	// Limits reports the identity's current quota state without
	// consuming anything.
	Limits(ctx context.Context, identity string) (*models.LimitsResponse, error)

	// ResetUsage zeroes the whole ledger. Test environments only.
	ResetUsage(ctx context.Context) error
}
