// Package analysis talks to the generative model that produces loan
// analyses and reports, and turns its replies into domain types.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 60 * time.Second

// Gateway sends a prompt to a generative model and returns its text reply.
type Gateway interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGateway implements Gateway using the Gemini API.
type GeminiGateway struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiGateway creates a gateway. An empty model or zero timeout falls
// back to the defaults.
func NewGeminiGateway(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGeminiGateway: api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGateway: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GeminiGateway{client: client, model: model, timeout: timeout}, nil
}

// Model returns the configured model name.
func (g *GeminiGateway) Model() string {
	return g.model
}

// Generate implements Gateway. Timeouts, transport failures and empty
// replies are reported as domain.ErrExternalService.
func (g *GeminiGateway) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("GeminiGateway.Generate: timed out after %s: %w", g.timeout, domain.ErrExternalService)
		}
		return "", fmt.Errorf("GeminiGateway.Generate: %w: %w", domain.ErrExternalService, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GeminiGateway.Generate: empty response from model: %w", domain.ErrExternalService)
	}
	return text, nil
}

// Unavailable is the Gateway used when no model is configured. Every call
// fails with domain.ErrExternalService.
type Unavailable struct{}

// Generate implements Gateway.
func (Unavailable) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("no AI model configured: %w", domain.ErrExternalService)
}
