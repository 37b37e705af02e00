package llm

import (
	"context"
	"fmt"
)

// Waiter blocks until a call for key is allowed
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

type rateLimitedProvider struct {
	Provider
	waiter Waiter
	key    string
}

// WithRateLimit throttles Complete calls through w, keyed by key.
// A nil waiter returns p unchanged.
func WithRateLimit(p Provider, w Waiter, key string) Provider {
	if p == nil || w == nil {
		return p
	}
	if key == "" {
		key = p.Name()
	}
	return &rateLimitedProvider{Provider: p, waiter: w, key: key}
}

func (r *rateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.waiter.Wait(ctx, r.key); err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", r.key, err)
	}
	return r.Provider.Complete(ctx, req)
}
