// Package llm asks a hosted model to classify pages the rule-based
// classifier could not place.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wotc/internal/config"
)

var ErrEmptyResponse = errors.New("llm returned an empty response")

// Provider sends a single prompt and returns the model's text reply.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// StatusError carries the HTTP status of a failed provider call.
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func NewProvider(ctx context.Context, cfg config.Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "openrouter":
		return NewOpenRouter(cfg)
	case "gemini":
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER: %s", cfg.LLMProvider)
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// isRetryable treats transport failures and throttling or server statuses
// as transient. Cancellation and client errors are final.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return isRetryableStatus(statusErr.StatusCode)
	}
	return true
}
