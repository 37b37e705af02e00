// Package pipeline wires segmentation, classification, reference resolution,
// risk scoring and obligation mapping into one analysis.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/clausewise/internal/cache"
	"github.com/ppiankov/clausewise/internal/classify"
	"github.com/ppiankov/clausewise/internal/extract"
	"github.com/ppiankov/clausewise/internal/ingest"
	"github.com/ppiankov/clausewise/internal/llm"
	"github.com/ppiankov/clausewise/internal/logger"
	"github.com/ppiankov/clausewise/internal/metrics"
	"github.com/ppiankov/clausewise/internal/model"
	"github.com/ppiankov/clausewise/internal/obligation"
	"github.com/ppiankov/clausewise/internal/score"
	"github.com/ppiankov/clausewise/internal/worker"
)

// Analyzer is the long-lived service context shared by all requests.
// Each call builds its own clauses; nothing request-scoped is stored here.
type Analyzer struct {
	cfg        *model.Config
	segmenter  *extract.Segmenter
	classifier *classify.Classifier
	resolver   *extract.Resolver
	scorer     *score.Scorer
	mapper     *obligation.Mapper
	loader     *ingest.Loader
	lazy       *classify.Lazy // Model strategy, nil when rule-only
	cache      cache.Cache
	limiter    *worker.Limiter
	log        logger.Logger
	metrics    *metrics.Manager
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger shared by every stage
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithMetrics sets the metrics sink shared by every stage
func WithMetrics(m *metrics.Manager) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithClassifier replaces the classifier built from configuration
func WithClassifier(c *classify.Classifier) Option {
	return func(a *Analyzer) { a.classifier = c }
}

// WithScorer replaces the scorer built from configuration
func WithScorer(s *score.Scorer) Option {
	return func(a *Analyzer) { a.scorer = s }
}

// WithLoader replaces the document loader built from configuration
func WithLoader(l *ingest.Loader) Option {
	return func(a *Analyzer) { a.loader = l }
}

// NewAnalyzer builds every stage from cfg unless injected through options
func NewAnalyzer(cfg *model.Config, opts ...Option) *Analyzer {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	a := &Analyzer{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Nop()
	}

	a.segmenter = extract.NewSegmenter()
	a.resolver = extract.NewResolver(a.log.Named("resolver"), a.metrics)
	a.mapper = obligation.NewMapper()
	a.cache = cache.New(cfg.Cache)
	a.limiter = worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	llmCfg := llm.ConfigFromModel(cfg)
	modelEnabled := llmCfg.Provider != "" && llmCfg.Provider != "none"

	if a.classifier == nil {
		copts := []classify.Option{
			classify.WithTimeout(cfg.Classifier.CallTimeout),
			classify.WithMaxHeaderWords(cfg.Classifier.MaxHeaderWords),
			classify.WithLogger(a.log.Named("classifier")),
			classify.WithMetrics(a.metrics),
		}
		if modelEnabled && cfg.Classifier.UseModel {
			a.lazy = classify.NewLazy("model:"+llmCfg.Provider,
				classify.ProviderLoader(llmCfg, a.limiter, a.cache, a.metrics),
				cfg.Classifier.RetryAfter, a.log.Named("classifier"), a.metrics)
			copts = append(copts, classify.WithPrimary(a.lazy))
		}
		a.classifier = classify.New(copts...)
	}

	if a.scorer == nil {
		sopts := []score.Option{
			score.WithSignalTimeout(cfg.Classifier.CallTimeout),
			score.WithWorkers(cfg.Concurrency.ClauseWorkers),
			score.WithLogger(a.log.Named("scorer")),
			score.WithMetrics(a.metrics),
		}
		if modelEnabled && cfg.Classifier.RiskSignal {
			p, err := llm.NewProvider(llmCfg)
			if err != nil {
				a.log.Warn(context.Background(), "Risk signal disabled, provider setup failed",
					logger.String("provider", llmCfg.Provider),
					logger.Error(err))
			} else if p != nil {
				signal := score.NewModelSignal(llm.WithRateLimit(p, a.limiter, p.Name()), llmCfg.Model, a.cache, a.metrics)
				sopts = append(sopts, score.WithSignal(signal))
			}
		}
		a.scorer = score.NewScorer(cfg.Risk, sopts...)
	}

	if a.loader == nil {
		fetcher := ingest.NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
			cfg.HTTP.RespectRobots, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy).
			WithLimiter(a.limiter)
		a.loader = ingest.NewLoader(ingest.NewRegistry(), fetcher, cfg.HTTP.MaxBodyBytes, a.log, a.metrics)
	}

	return a
}

// Warm loads the model strategy ahead of the first request. It is a no-op
// for rule-only configurations.
func (a *Analyzer) Warm(ctx context.Context) error {
	if a.lazy == nil {
		return nil
	}
	return a.lazy.Warm(ctx)
}

// ExtractClauses segments, classifies and cross-links contract text
func (a *Analyzer) ExtractClauses(ctx context.Context, text string) ([]model.Clause, error) {
	clauses, _, err := a.extractClauses(ctx, text)
	return clauses, err
}

func (a *Analyzer) extractClauses(ctx context.Context, text string) ([]model.Clause, []classify.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrEmptyText
	}

	segments := a.segmenter.Segment(text)
	if len(segments) == 0 {
		return nil, nil, ErrEmptyText
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	results := a.classifier.ClassifyAll(ctx, texts, a.cfg.Concurrency.ClauseWorkers)

	clauses := make([]model.Clause, len(segments))
	for i, seg := range segments {
		c := model.NewClause(i, seg.Text)
		c.Marker = seg.Marker
		c.Type = results[i].Type
		c.PrecisionScore = results[i].Confidence
		clauses[i] = c
	}

	a.resolver.BuildGraph(ctx, clauses)
	return clauses, results, nil
}

// MapObligations lists the duties and entitlements stated by the clauses
func (a *Analyzer) MapObligations(clauses []model.Clause) ([]model.Obligation, []model.Right) {
	return a.mapper.Map(clauses)
}

// ScoreClauses scores clauses and aggregates a report calibrated for contractType.
// An empty contractType uses the configured default.
func (a *Analyzer) ScoreClauses(ctx context.Context, clauses []model.Clause, contractType string) (*model.RiskReport, error) {
	return a.scorer.ScoreClauses(ctx, clauses, a.contractType(contractType))
}

// Metadata extracts document metadata from text
func (a *Analyzer) Metadata(text string) model.DocumentMetadata {
	return extract.ExtractMetadata(text)
}

// Analyze runs the full pipeline over contract text
func (a *Analyzer) Analyze(ctx context.Context, text, contractType string) (analysis *model.Analysis, err error) {
	start := time.Now()
	requestID := uuid.NewString()
	log := a.log.Named("pipeline")

	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "Analysis panicked",
				logger.String("request_id", requestID),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())))
			analysis, err = nil, ErrInternal
		}
		a.metrics.RecordAnalysis(time.Since(start), err)
	}()

	contractType = a.contractType(contractType)

	clauses, results, err := a.extractClauses(ctx, text)
	if err != nil {
		return nil, err
	}

	report, err := a.scorer.ScoreClauses(ctx, clauses, contractType)
	if err != nil {
		return nil, fmt.Errorf("score clauses: %w", err)
	}

	obligations, rights := a.mapper.Map(clauses)

	analysis = &model.Analysis{
		RequestID:   requestID,
		Contract:    model.NewContract("", text, extract.ExtractMetadata(text)),
		Clauses:     clauses,
		Risk:        report,
		RiskItems:   score.RiskItems(clauses, report, a.cfg.Risk.SuggestionThreshold, a.cfg.Risk.ClauseAlertThreshold),
		Obligations: obligations,
		Rights:      rights,
		Sources:     make(map[string]int),
		AnalyzedAt:  start.UTC(),
	}

	fallbacks := 0
	for _, r := range results {
		analysis.Sources[r.Source]++
		if a.lazy != nil && r.Source == classify.SourceRules {
			fallbacks++
		}
	}
	if fallbacks > 0 {
		analysis.Warnings = append(analysis.Warnings, fmt.Sprintf(
			"model classifier unavailable for %d of %d clauses; rule-based labels used", fallbacks, len(results)))
	}

	analysis.Duration = time.Since(start)

	log.Info(ctx, "Analysis complete",
		logger.String("request_id", requestID),
		logger.String("contract_type", contractType),
		logger.Int("clauses", len(clauses)),
		logger.Float64("overall_score", report.OverallScore),
		logger.Int("obligations", len(obligations)),
		logger.Int("rights", len(rights)),
		logger.Any("duration", analysis.Duration))

	return analysis, nil
}

// AnalyzeDocument loads a local file or URL and analyzes its text
func (a *Analyzer) AnalyzeDocument(ctx context.Context, source, contractType string) (*model.Analysis, error) {
	doc, err := a.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	analysis, err := a.Analyze(ctx, doc.Text, contractType)
	if err != nil {
		return nil, err
	}
	analysis.Contract.Filename = doc.Name
	return analysis, nil
}

// Load reads a local file or URL into a Document
func (a *Analyzer) Load(ctx context.Context, source string) (*ingest.Document, error) {
	return a.loader.Load(ctx, source)
}

func (a *Analyzer) contractType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if t == "" {
		t = strings.ToUpper(a.cfg.Risk.DefaultContractType)
	}
	return t
}
