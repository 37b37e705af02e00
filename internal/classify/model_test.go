package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clausewise/internal/cache"
	"github.com/ppiankov/clausewise/internal/llm"
	"github.com/ppiankov/clausewise/internal/model"
)

type fakeProvider struct {
	answer string
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Text: f.answer}, nil
}

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return f.err == nil }

func TestModelStrategy_ParsesAndCaches(t *testing.T) {
	p := &fakeProvider{answer: `{"type": "termination", "confidence": 0.88}`}
	s := NewModelStrategy(p, "fake-1", cache.NewMemoryCache(time.Minute, time.Minute), nil)

	for i := 0; i < 2; i++ {
		typ, conf, err := s.Classify(context.Background(), "Either party may end this Agreement on notice.")
		require.NoError(t, err)
		assert.Equal(t, model.ClauseTermination, typ)
		assert.Equal(t, 0.88, conf)
	}
	assert.Equal(t, 1, p.calls, "second call served from cache")
	assert.Equal(t, "model:fake", s.Name())
}

func TestModelStrategy_CacheScopedByModel(t *testing.T) {
	shared := cache.NewMemoryCache(time.Minute, time.Minute)
	text := "Either party may end this Agreement on notice."

	old := &fakeProvider{answer: `{"type": "right", "confidence": 0.6}`}
	_, _, err := NewModelStrategy(old, "fake-1", shared, nil).Classify(context.Background(), text)
	require.NoError(t, err)

	upgraded := &fakeProvider{answer: `{"type": "termination", "confidence": 0.9}`}
	typ, _, err := NewModelStrategy(upgraded, "fake-2", shared, nil).Classify(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, model.ClauseTermination, typ)
	assert.Equal(t, 1, upgraded.calls, "a new model does not reuse the old model's answer")
}

func TestModelStrategy_InvalidLabel(t *testing.T) {
	s := NewModelStrategy(&fakeProvider{answer: "payments"}, "", nil, nil)

	_, _, err := s.Classify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInvalidLabel)
}

func TestModelStrategy_ProviderError(t *testing.T) {
	boom := errors.New("503")
	s := NewModelStrategy(&fakeProvider{err: boom}, "", nil, nil)

	_, _, err := s.Classify(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestProviderLoader_Disabled(t *testing.T) {
	load := ProviderLoader(llm.Config{}, nil, nil, nil)
	s, err := load(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, s)
}
