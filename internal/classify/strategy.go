package classify

import (
	"context"

	"github.com/ppiankov/clausewise/internal/model"
)

// Strategy assigns a clause type and a confidence in [0,1] to a segment of text
type Strategy interface {
	// Name identifies the strategy in logs, metrics and results
	Name() string

	// Classify labels text. Implementations may block on model inference
	// and must honor ctx cancellation.
	Classify(ctx context.Context, text string) (model.ClauseType, float64, error)
}

// StrategyFunc adapts a function to the Strategy interface
type StrategyFunc struct {
	Label string
	Fn    func(ctx context.Context, text string) (model.ClauseType, float64, error)
}

// Name returns the configured label
func (s StrategyFunc) Name() string { return s.Label }

// Classify calls Fn
func (s StrategyFunc) Classify(ctx context.Context, text string) (model.ClauseType, float64, error) {
	return s.Fn(ctx, text)
}
