package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"infragen/internal/models"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	geminiTemplate = "Generate infrastructure as code (Terraform, Kubernetes YAMLs, Helm Charts) for: %s. Return only the code, no explanations."

	geminiMissingKeyMsg = "Missing GEMINI_API_KEY. Set it in environment variables."
	geminiTimeoutMsg    = "Gemini API timed out after multiple attempts. Try again later."
	geminiNoResponseMsg = "No response"
)

// Compile-time interface check.
var _ Generator = (*Gemini)(nil)

// Gemini calls the generateContent API with per-attempt timeouts and bounded
// retry. Only timeouts are retried; every other failure short-circuits with a
// descriptive message. The retry backoff waits on a timer select so a client
// disconnect aborts the wait instead of parking a goroutine to no purpose.
type Gemini struct {
	cfg        models.GeminiConfig
	httpClient *http.Client
}

// NewGemini creates the Gemini generator.
func NewGemini(cfg models.GeminiConfig, opts ...Option) *Gemini {
	o := applyOptions(opts)
	return &Gemini{
		cfg:        cfg,
		httpClient: o.httpClient,
	}
}

func (g *Gemini) Name() string { return models.ProviderGemini }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate invokes the Gemini API. Each attempt is bounded by the configured
// attempt timeout; a timed-out attempt is retried after the configured
// backoff, up to MaxAttempts total attempts.
func (g *Gemini) Generate(ctx context.Context, prompt string) string {
	if g.cfg.APIKey == "" {
		return geminiMissingKeyMsg
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: fmt.Sprintf(geminiTemplate, prompt)}}},
		},
	})
	if err != nil {
		return fmt.Sprintf("Error communicating with Gemini API: %v", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.cfg.BaseURL, "/"), g.cfg.Model, g.cfg.APIKey)

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		text, err := g.attempt(ctx, url, body)
		if err == nil {
			return text
		}

		if !isTimeout(err) || ctx.Err() != nil {
			slog.Error("Gemini API error", "error", err)
			return fmt.Sprintf("Error communicating with Gemini API: %v", err)
		}

		slog.Warn("Gemini API timeout", "attempt", attempt, "max_attempts", g.cfg.MaxAttempts)
		if attempt == g.cfg.MaxAttempts {
			return geminiTimeoutMsg
		}
		if !g.backoff(ctx) {
			return geminiTimeoutMsg
		}
	}

	return geminiTimeoutMsg
}

// attempt performs one bounded generateContent call.
func (g *Gemini) attempt(ctx context.Context, url string, body []byte) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return geminiNoResponseMsg, nil
	}
	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return geminiNoResponseMsg, nil
	}
	return text, nil
}

// backoff pauses between timed-out attempts. Returns false if the request
// context was cancelled while waiting.
func (g *Gemini) backoff(ctx context.Context) bool {
	timer := time.NewTimer(g.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// isTimeout reports whether err is an attempt timeout rather than a fatal
// transport failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
