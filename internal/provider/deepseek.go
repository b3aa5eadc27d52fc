package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"infragen/internal/models"
	"log/slog"
	"net/http"
	"strings"
)

const (
	deepseekTemplate = "Generate infrastructure as code (e.g., Terraform, CloudFormation) for the following request: %s. Please return only the code, no extra details."

	deepseekMissingKeyMsg = "Missing OPENROUTER_API_KEY. Set it in environment variables."
	deepseekErrorMsg      = "Error communicating with OpenRouter API"
)

// Compile-time interface check.
var _ Generator = (*DeepSeek)(nil)

// DeepSeek calls the DeepSeek model through OpenRouter's chat-completions
// API. A single attempt is made; every failure collapses to one generic
// message with the detail kept in the logs.
type DeepSeek struct {
	cfg        models.OpenRouterConfig
	httpClient *http.Client
}

// NewDeepSeek creates the OpenRouter-backed DeepSeek generator.
func NewDeepSeek(cfg models.OpenRouterConfig, opts ...Option) *DeepSeek {
	o := applyOptions(opts)
	return &DeepSeek{
		cfg:        cfg,
		httpClient: o.httpClient,
	}
}

func (d *DeepSeek) Name() string { return models.ProviderDeepSeek }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate performs one chat-completion call and returns the generated text,
// or the fixed error message on any failure.
func (d *DeepSeek) Generate(ctx context.Context, prompt string) string {
	if d.cfg.APIKey == "" {
		return deepseekMissingKeyMsg
	}

	body, err := json.Marshal(chatRequest{
		Model: d.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(deepseekTemplate, prompt)},
		},
	})
	if err != nil {
		slog.Error("OpenRouter request encoding failed", "error", err)
		return deepseekErrorMsg
	}

	url := strings.TrimRight(d.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		slog.Error("OpenRouter request creation failed", "error", err)
		return deepseekErrorMsg
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	req.Header.Set("HTTP-Referer", d.cfg.Referer)
	req.Header.Set("X-Title", d.cfg.Title)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		slog.Error("OpenRouter API error", "error", err)
		return deepseekErrorMsg
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("OpenRouter API returned non-success status", "status", resp.StatusCode)
		return deepseekErrorMsg
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		slog.Error("OpenRouter response decoding failed", "error", err)
		return deepseekErrorMsg
	}
	if len(parsed.Choices) == 0 {
		slog.Error("OpenRouter response contained no choices")
		return deepseekErrorMsg
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content)
}
