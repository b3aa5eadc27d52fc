// Package provider implements the two upstream text-generation backends.
//
// Providers never return Go errors to their caller: any upstream failure is
// reported as the returned text itself, so the gateway can keep its single
// response shape and a failed generation still costs a quota unit. The
// messages are fixed strings so no upstream detail leaks to clients.
package provider

import (
	"context"
	"net/http"
	"time"
)

// Generator produces infrastructure-as-code text for a prompt. The returned
// string is either generated content or a human-readable failure message;
// callers cannot and should not distinguish the two.
type Generator interface {
	// Name returns the provider selector this generator serves.
	Name() string

	// Generate wraps the prompt in the provider's template, invokes the
	// upstream API, and returns the text outcome.
	Generate(ctx context.Context, prompt string) string
}

// Option configures optional provider behavior.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient sets a custom HTTP client, used by tests to point at fakes.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func applyOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
