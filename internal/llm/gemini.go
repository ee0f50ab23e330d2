package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"wotc/internal/config"
)

// Gemini calls the Gemini API directly.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg config.Config) (*Gemini, error) {
	if err := cfg.Require("GEMINI_API_KEY", cfg.GeminiAPIKey); err != nil {
		return nil, err
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.GeminiBaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.GeminiBaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	// OpenRouter model ids carry a vendor prefix the Gemini API does not use.
	model := strings.TrimPrefix(cfg.LLMModel, "google/")
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: g.Name(), StatusCode: apiErr.Code, Err: err}
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
			return "", &StatusError{Provider: g.Name(), StatusCode: apiErrPtr.Code, Err: err}
		}
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}
