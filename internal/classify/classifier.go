package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/clausewise/internal/llm"
	"github.com/ppiankov/clausewise/internal/logger"
	"github.com/ppiankov/clausewise/internal/metrics"
	"github.com/ppiankov/clausewise/internal/model"
	"github.com/ppiankov/clausewise/internal/worker"
)

// Result sources that are not strategy names
const (
	SourceHeader = "header"
	SourceRules  = "rules"
)

// Fallback reasons reported to metrics
const (
	ReasonTimeout      = "timeout"
	ReasonCanceled     = "canceled"
	ReasonUnavailable  = "unavailable"
	ReasonInvalidLabel = "invalid_label"
	ReasonPanic        = "panic"
	ReasonThrottled    = "throttled"
	ReasonError        = "error"
)

// DefaultCallTimeout bounds a single primary strategy call
const DefaultCallTimeout = 10 * time.Second

// Result is the outcome of classifying one segment
type Result struct {
	Type       model.ClauseType
	Confidence float64
	Source     string // "header", "rules", or the primary strategy's name
}

// Classifier runs header detection, then the primary strategy, then the rule table.
// It is safe for concurrent use.
type Classifier struct {
	primary        Strategy
	rules          *RuleStrategy
	timeout        time.Duration
	maxHeaderWords int
	log            logger.Logger
	metrics        *metrics.Manager
}

// Option configures a Classifier
type Option func(*Classifier)

// WithPrimary sets the strategy consulted before the rule table
func WithPrimary(s Strategy) Option {
	return func(c *Classifier) { c.primary = s }
}

// WithTimeout bounds each primary strategy call
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for degradation events
func WithLogger(l logger.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Classifier) { c.metrics = m }
}

// WithMaxHeaderWords sets how many title words may follow a structural marker
func WithMaxHeaderWords(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxHeaderWords = n
		}
	}
}

// WithRules replaces the keyword table
func WithRules(rules []Rule) Option {
	return func(c *Classifier) { c.rules = NewRuleStrategy(rules) }
}

// New creates a classifier. Without WithPrimary it is rule-only.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		rules:          NewRuleStrategy(nil),
		timeout:        DefaultCallTimeout,
		maxHeaderWords: DefaultMaxHeaderWords,
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify labels a segment. It always returns a taxonomy label and never fails.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	if isHeader(text, c.maxHeaderWords) {
		return c.record(Result{Type: model.ClauseHeader, Confidence: HeaderConfidence, Source: SourceHeader})
	}

	if c.primary != nil {
		t, conf, err := c.callPrimary(ctx, text)
		if err == nil {
			return c.record(Result{Type: t, Confidence: conf, Source: c.primary.Name()})
		}

		reason := fallbackReason(ctx, err)
		c.log.Warn(ctx, "primary classifier failed, using rules",
			logger.String("strategy", c.primary.Name()),
			logger.String("reason", reason),
			logger.Error(err),
		)
		c.metrics.RecordClassifierFallback(reason)
	}

	t, conf := c.rules.Match(text)
	return c.record(Result{Type: t, Confidence: conf, Source: SourceRules})
}

// ClassifyAll labels texts with at most workers concurrent calls.
// Results are positional. When ctx ends early the remaining entries are
// filled from the rule table so every text still gets a label.
func (c *Classifier) ClassifyAll(ctx context.Context, texts []string, workers int) []Result {
	results := make([]Result, len(texts))
	done := make([]bool, len(texts))

	_ = worker.ForEach(ctx, workers, len(texts), func(ctx context.Context, i int) {
		results[i] = c.Classify(ctx, texts[i])
		done[i] = true
	})

	for i := range texts {
		if !done[i] {
			results[i] = c.ruleResult(texts[i])
		}
	}
	return results
}

func (c *Classifier) ruleResult(text string) Result {
	if isHeader(text, c.maxHeaderWords) {
		return Result{Type: model.ClauseHeader, Confidence: HeaderConfidence, Source: SourceHeader}
	}
	t, conf := c.rules.Match(text)
	return Result{Type: t, Confidence: conf, Source: SourceRules}
}

// callPrimary runs the primary strategy under a deadline and converts
// panics and out-of-taxonomy answers into errors
func (c *Classifier) callPrimary(ctx context.Context, text string) (model.ClauseType, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type outcome struct {
		t    model.ClauseType
		conf float64
		err  error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("%w: %v", ErrStrategyPanic, r)}
			}
		}()
		t, conf, err := c.primary.Classify(callCtx, text)
		ch <- outcome{t: t, conf: conf, err: err}
	}()

	select {
	case <-callCtx.Done():
		return "", 0, callCtx.Err()
	case out := <-ch:
		if out.err != nil {
			return "", 0, out.err
		}
		if !out.t.IsValid() {
			return "", 0, fmt.Errorf("%w: %q", ErrInvalidLabel, out.t)
		}
		return out.t, clampConfidence(out.conf), nil
	}
}

func (c *Classifier) record(r Result) Result {
	c.metrics.RecordClassification(r.Source, string(r.Type))
	return r
}

func fallbackReason(ctx context.Context, err error) string {
	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		return ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, ErrModelUnavailable):
		return ReasonUnavailable
	case errors.Is(err, ErrInvalidLabel):
		return ReasonInvalidLabel
	case errors.Is(err, ErrStrategyPanic):
		return ReasonPanic
	case llm.IsTemporary(err):
		return ReasonThrottled
	default:
		return ReasonError
	}
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
