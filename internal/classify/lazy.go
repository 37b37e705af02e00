package classify

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ppiankov/clausewise/internal/logger"
	"github.com/ppiankov/clausewise/internal/metrics"
	"github.com/ppiankov/clausewise/internal/model"
)

// Loader builds the backing strategy on first use. Returning (nil, nil)
// means the model is not configured.
type Loader func(ctx context.Context) (Strategy, error)

// Lazy defers loading an expensive strategy until the first classification.
// Concurrent first calls may each run the loader; the last one stored wins.
// After a failed load, calls fail fast with ErrModelUnavailable until the
// retry interval has passed.
type Lazy struct {
	name       string
	load       Loader
	retryAfter time.Duration
	log        logger.Logger
	metrics    *metrics.Manager

	loaded   atomic.Pointer[Strategy]
	failedAt atomic.Int64 // unix nanos of the last failed load, 0 if none
	now      func() time.Time
}

// NewLazy wraps load. A zero retryAfter retries on every call.
func NewLazy(name string, load Loader, retryAfter time.Duration, log logger.Logger, m *metrics.Manager) *Lazy {
	if log == nil {
		log = logger.Nop()
	}
	return &Lazy{
		name:       name,
		load:       load,
		retryAfter: retryAfter,
		log:        log,
		metrics:    m,
		now:        time.Now,
	}
}

// Name returns the wrapped strategy's name
func (l *Lazy) Name() string { return l.name }

// Loaded reports whether the backing strategy is ready
func (l *Lazy) Loaded() bool { return l.loaded.Load() != nil }

// Warm loads the backing strategy ahead of the first request
func (l *Lazy) Warm(ctx context.Context) error {
	_, err := l.get(ctx)
	return err
}

// Classify loads the strategy if needed and delegates to it
func (l *Lazy) Classify(ctx context.Context, text string) (model.ClauseType, float64, error) {
	s, err := l.get(ctx)
	if err != nil {
		return "", 0, err
	}
	return s.Classify(ctx, text)
}

func (l *Lazy) get(ctx context.Context) (Strategy, error) {
	if p := l.loaded.Load(); p != nil {
		return *p, nil
	}

	if failed := l.failedAt.Load(); failed != 0 && l.now().Sub(time.Unix(0, failed)) < l.retryAfter {
		return nil, fmt.Errorf("%w: %s load failed recently", ErrModelUnavailable, l.name)
	}

	s, err := l.load(ctx)
	if err == nil && s == nil {
		err = fmt.Errorf("%s not configured", l.name)
	}
	if err != nil {
		l.failedAt.Store(l.now().UnixNano())
		l.metrics.RecordModelLoad(false)
		l.log.Warn(ctx, "model load failed", logger.String("strategy", l.name), logger.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	l.loaded.Store(&s)
	l.failedAt.Store(0)
	l.metrics.RecordModelLoad(true)
	l.log.Info(ctx, "model loaded", logger.String("strategy", l.name))
	return s, nil
}
