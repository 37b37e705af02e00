package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/clausewise/internal/cache"
	"github.com/ppiankov/clausewise/internal/llm"
	"github.com/ppiankov/clausewise/internal/metrics"
	"github.com/ppiankov/clausewise/internal/model"
)

// ModelStrategy classifies with an LLM provider, memoizing answers by clause text
type ModelStrategy struct {
	provider  llm.Provider
	modelName string
	cache     cache.Cache
	metrics   *metrics.Manager
}

// NewModelStrategy wraps provider. modelName scopes cached answers to the
// configured model. Cache and metrics may be nil.
func NewModelStrategy(provider llm.Provider, modelName string, c cache.Cache, m *metrics.Manager) *ModelStrategy {
	return &ModelStrategy{provider: provider, modelName: modelName, cache: c, metrics: m}
}

// Name returns "model:<provider>"
func (s *ModelStrategy) Name() string {
	return "model:" + s.provider.Name()
}

// Classify asks the provider for a label
func (s *ModelStrategy) Classify(ctx context.Context, text string) (model.ClauseType, float64, error) {
	key := cache.Key("classify", s.provider.Name(), s.modelName, text)

	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			s.metrics.RecordCacheLookup(true)
			if c, err := llm.ParseClassification(string(raw)); err == nil {
				return c.Type, c.Confidence, nil
			}
		} else {
			s.metrics.RecordCacheLookup(false)
		}
	}

	resp, err := s.provider.Complete(ctx, llm.BuildClassificationPrompt(text))
	if err != nil {
		return "", 0, err
	}

	c, err := llm.ParseClassification(resp.Text)
	if err != nil {
		if errors.Is(err, llm.ErrMalformedResponse) {
			return "", 0, fmt.Errorf("%w: %v", ErrInvalidLabel, err)
		}
		return "", 0, err
	}

	if s.cache != nil {
		_ = s.cache.Set(key, []byte(resp.Text), 0)
	}
	return c.Type, c.Confidence, nil
}

// ProviderLoader returns a Loader that builds the provider from cfg, checks
// it is reachable, and wraps it in a ModelStrategy
func ProviderLoader(cfg llm.Config, waiter llm.Waiter, c cache.Cache, m *metrics.Manager) Loader {
	return func(ctx context.Context) (Strategy, error) {
		p, err := llm.NewProvider(cfg)
		if err != nil || p == nil {
			return nil, err
		}
		if !p.IsAvailable(ctx) {
			return nil, fmt.Errorf("%s provider not reachable", p.Name())
		}
		return NewModelStrategy(llm.WithRateLimit(p, waiter, p.Name()), cfg.Model, c, m), nil
	}
}
