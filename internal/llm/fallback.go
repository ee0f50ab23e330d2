package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"wotc/internal"
	"wotc/internal/catalog"
	"wotc/internal/config"
)

var ErrUnknownFormType = errors.New("llm named a form type outside the catalog")

// FallbackClassifier asks a Provider to place a page and maps the answer
// back onto the catalog.
type FallbackClassifier struct {
	provider      Provider
	limiter       *RateLimiter
	maxAttempts   int
	minConfidence float64
	backoff       func(attempt int) time.Duration
	now           func() time.Time
}

func NewFallbackClassifier(provider Provider, cfg config.Config) *FallbackClassifier {
	attempts := cfg.LLMMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &FallbackClassifier{
		provider:      provider,
		limiter:       NewRateLimiter(cfg.LLMRateLimitRPS),
		maxAttempts:   attempts,
		minConfidence: cfg.LLMMinConfidence,
		backoff:       jitteredBackoff,
		now:           time.Now,
	}
}

// Classify returns nil without error when the model's confidence is below
// the configured minimum.
func (f *FallbackClassifier) Classify(ctx context.Context, text string, idx *catalog.Index) (*internal.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" || idx == nil || len(idx.Definitions) == 0 {
		return nil, nil
	}

	reply, err := f.complete(ctx, BuildPrompt(text, idx.Definitions))
	if err != nil {
		return nil, err
	}

	analysis, err := ParseAnalysis(reply)
	if err != nil {
		return nil, err
	}

	def, ok := idx.ByName(analysis.FormType)
	if !ok {
		return nil, fmt.Errorf("%q: %w", analysis.FormType, ErrUnknownFormType)
	}

	confidence := clamp01(analysis.Confidence)
	if confidence < f.minConfidence {
		log.Debug().
			Str("provider", f.provider.Name()).
			Str("form_type", def.Name).
			Float64("score", confidence).
			Msg("llm answer below minimum confidence")
		return nil, nil
	}

	metadata := NormalizeMetadata(analysis.Metadata)
	validation := ValidateMetadata(def.Name, metadata, f.now())
	lower := strings.ToLower(text)

	return &internal.ClassificationResult{
		FormTypeID:      def.ID,
		FormTypeName:    def.Name,
		ConfidenceScore: confidence,
		ExtractedData: internal.ExtractedData{
			Source:          internal.SourceLLM,
			MatchedKeywords: present(lower, def.Keywords),
			MatchedFields:   present(lower, def.RequiredFields),
			Metadata:        metadata,
			Validation:      &validation,
		},
	}, nil
}

func (f *FallbackClassifier) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}

		reply, err := f.provider.Complete(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == f.maxAttempts {
			break
		}

		log.Warn().
			Err(err).
			Str("provider", f.provider.Name()).
			Int("attempt", attempt).
			Msg("llm call failed, retrying")
		if err := sleep(ctx, f.backoff(attempt)); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: %w", f.provider.Name(), lastErr)
}

func jitteredBackoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
}

func present(text string, phrases []string) []string {
	out := []string{}
	for _, p := range phrases {
		if p != "" && strings.Contains(text, p) {
			out = append(out, p)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
