package score

import (
	"context"
	"fmt"

	"github.com/ppiankov/clausewise/internal/cache"
	"github.com/ppiankov/clausewise/internal/llm"
	"github.com/ppiankov/clausewise/internal/metrics"
)

// Verdict is a statistical risk judgement for one clause
type Verdict struct {
	Label      string // llm.VerdictHigh, llm.VerdictMedium or llm.VerdictLow
	Confidence float64
}

// Signal is an optional statistical risk assessor
type Signal interface {
	Assess(ctx context.Context, text string) (Verdict, error)
}

// SignalFunc adapts a function to Signal
type SignalFunc func(ctx context.Context, text string) (Verdict, error)

// Assess calls f
func (f SignalFunc) Assess(ctx context.Context, text string) (Verdict, error) {
	return f(ctx, text)
}

// ModelSignal asks an LLM provider for a risk verdict
type ModelSignal struct {
	provider  llm.Provider
	modelName string
	cache     cache.Cache
	metrics   *metrics.Manager
}

// NewModelSignal wraps provider. Verdicts are cached per modelName.
// Cache and metrics may be nil.
func NewModelSignal(provider llm.Provider, modelName string, c cache.Cache, m *metrics.Manager) *ModelSignal {
	return &ModelSignal{provider: provider, modelName: modelName, cache: c, metrics: m}
}

// Assess returns the provider's verdict for text
func (s *ModelSignal) Assess(ctx context.Context, text string) (Verdict, error) {
	key := cache.Key("risk", s.provider.Name(), s.modelName, text)
	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			s.metrics.RecordCacheLookup(true)
			if v, err := llm.ParseRiskVerdict(string(raw)); err == nil {
				return Verdict(v), nil
			}
		} else {
			s.metrics.RecordCacheLookup(false)
		}
	}

	resp, err := s.provider.Complete(ctx, llm.BuildRiskPrompt(text))
	if err != nil {
		return Verdict{}, fmt.Errorf("risk signal: %w", err)
	}

	v, err := llm.ParseRiskVerdict(resp.Text)
	if err != nil {
		return Verdict{}, fmt.Errorf("risk signal: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.Set(key, []byte(resp.Text), 0)
	}
	return Verdict(v), nil
}
