package classify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clausewise/internal/model"
)

func TestLazy_LoadsOnceAndDelegates(t *testing.T) {
	var loads int32
	l := NewLazy("stat", func(ctx context.Context) (Strategy, error) {
		atomic.AddInt32(&loads, 1)
		return fixed("stat", model.ClauseWarranty, 0.8, nil), nil
	}, time.Minute, nil, nil)

	assert.False(t, l.Loaded())
	for i := 0; i < 3; i++ {
		typ, conf, err := l.Classify(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, model.ClauseWarranty, typ)
		assert.Equal(t, 0.8, conf)
	}
	assert.True(t, l.Loaded())
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestLazy_ConcurrentFirstUse(t *testing.T) {
	l := NewLazy("stat", func(ctx context.Context) (Strategy, error) {
		time.Sleep(5 * time.Millisecond)
		return fixed("stat", model.ClauseRight, 0.6, nil), nil
	}, 0, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			typ, _, err := l.Classify(context.Background(), "x")
			assert.NoError(t, err)
			assert.Equal(t, model.ClauseRight, typ)
		}()
	}
	wg.Wait()
	assert.True(t, l.Loaded())
}

func TestLazy_FailureCoolDown(t *testing.T) {
	var loads int32
	now := time.Unix(1_700_000_000, 0)

	l := NewLazy("stat", func(ctx context.Context) (Strategy, error) {
		if atomic.AddInt32(&loads, 1) == 1 {
			return nil, errors.New("weights missing")
		}
		return fixed("stat", model.ClauseRenewal, 0.7, nil), nil
	}, time.Minute, nil, nil)
	l.now = func() time.Time { return now }

	_, _, err := l.Classify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, _, err = l.Classify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads), "no reload during cool-down")

	now = now.Add(2 * time.Minute)
	require.NoError(t, l.Warm(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestLazy_NotConfigured(t *testing.T) {
	l := NewLazy("stat", func(ctx context.Context) (Strategy, error) { return nil, nil }, 0, nil, nil)

	err := l.Warm(context.Background())
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.False(t, l.Loaded())
}

func TestClassifier_LazyUnavailableFallsBack(t *testing.T) {
	l := NewLazy("stat", func(ctx context.Context) (Strategy, error) {
		return nil, errors.New("no model")
	}, time.Minute, nil, nil)

	res := New(WithPrimary(l)).Classify(context.Background(), "Licensee is entitled to updates.")
	assert.Equal(t, model.ClauseRight, res.Type)
	assert.Equal(t, SourceRules, res.Source)
}
