package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"wotc/internal/config"
)

// OpenRouter talks to the OpenAI-compatible chat completions endpoint.
type OpenRouter struct {
	client *openai.Client
	model  string
}

func NewOpenRouter(cfg config.Config) (*OpenRouter, error) {
	if err := cfg.Require("OPENROUTER_API_KEY", cfg.OpenRouterAPIKey); err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(cfg.OpenRouterAPIKey)
	if strings.TrimSpace(cfg.OpenRouterBaseURL) != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.OpenRouterBaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: time.Duration(cfg.LLMTimeoutMs) * time.Millisecond,
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": cfg.AppURL,
				"X-Title":      cfg.AppTitle,
			},
		},
	}

	return &OpenRouter{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.LLMModel,
	}, nil
}

func (o *OpenRouter) Name() string {
	return "openrouter"
}

func (o *OpenRouter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: o.Name(), StatusCode: apiErr.HTTPStatusCode, Err: err}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", &StatusError{Provider: o.Name(), StatusCode: reqErr.HTTPStatusCode, Err: err}
		}
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
