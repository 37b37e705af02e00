package score

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/clausewise/internal/llm"
	"github.com/ppiankov/clausewise/internal/logger"
	"github.com/ppiankov/clausewise/internal/metrics"
	"github.com/ppiankov/clausewise/internal/model"
	"github.com/ppiankov/clausewise/internal/worker"
)

// Contribution weights
const (
	indemnityBase  = 0.4
	limitationBase = 0.3
	highKeyword    = 0.5
	mediumKeyword  = 0.2
	autoRenewal    = 0.3
	forceMajeure   = 0.4
	securityBreach = 0.5
	dataPrivacy    = 0.6

	mediumSignalWeight = 0.5
	maxClauseScore     = 1.0

	compliantScore    = 0.8
	nonCompliantScore = 0.4
)

var (
	highRiskPattern   = wordsPattern("sole discretion", "unilateral", "without notice", "absolute discretion", "indemnify", "hold harmless")
	mediumRiskPattern = wordsPattern("commercially reasonable", "material adverse", "best efforts", "reasonable", "may")

	autoRenewalPattern  = regexp.MustCompile(`(?i)\b(?:auto(?:matic(?:ally)?)?[\s-]*renew(?:s|ed|al|als)?|renews?\s+automatically|evergreen)\b`)
	forceMajeurePattern = regexp.MustCompile(`(?i)\b(?:force\s+majeure|acts?\s+of\s+god)\b`)
	securityPattern     = regexp.MustCompile(`(?i)\b(?:security\s+(?:incidents?|breach(?:es)?|events?|vulnerabilit(?:y|ies))|(?:data|privacy)\s+breach(?:es)?|unauthori[sz]ed\s+(?:access|disclosure)|cyber[\s-]?attacks?)\b`)
	privacyPattern      = regexp.MustCompile(`(?i)\b(?:personal\s+(?:data|information)|personally\s+identifiable|PII|GDPR|CCPA|HIPAA|data\s+(?:protection|privacy)|privacy)\b`)
)

// Scorer computes per-clause risk and the contract-level report.
// It is safe for concurrent use.
type Scorer struct {
	cfg           model.RiskConfig
	signal        Signal
	signalTimeout time.Duration
	workers       int
	log           logger.Logger
	metrics       *metrics.Manager
}

// Option configures a Scorer
type Option func(*Scorer)

// WithSignal enables the statistical risk tier
func WithSignal(s Signal) Option {
	return func(sc *Scorer) { sc.signal = s }
}

// WithSignalTimeout bounds each signal call
func WithSignalTimeout(d time.Duration) Option {
	return func(sc *Scorer) {
		if d > 0 {
			sc.signalTimeout = d
		}
	}
}

// WithWorkers bounds concurrent clause scoring
func WithWorkers(n int) Option {
	return func(sc *Scorer) {
		if n > 0 {
			sc.workers = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(sc *Scorer) {
		if l != nil {
			sc.log = l
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Manager) Option {
	return func(sc *Scorer) { sc.metrics = m }
}

// NewScorer creates a scorer with the given thresholds and calibrations
func NewScorer(cfg model.RiskConfig, opts ...Option) *Scorer {
	s := &Scorer{
		cfg:           cfg,
		signalTimeout: 10 * time.Second,
		workers:       1,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreClauses scores every clause, writes clause.RiskScore and aggregates
// the report. On cancellation the report covers only the clauses whose
// scoring completed and ctx.Err() is returned with it.
func (s *Scorer) ScoreClauses(ctx context.Context, clauses []model.Clause, contractType string) (*model.RiskReport, error) {
	risks := make([]model.ClauseRisk, len(clauses))
	done := make([]bool, len(clauses))

	err := worker.ForEach(ctx, s.workers, len(clauses), func(ctx context.Context, i int) {
		if ctx.Err() != nil {
			return
		}
		risks[i] = s.ScoreClause(ctx, clauses[i])
		done[i] = true
	})

	report := &model.RiskReport{
		ContractType:      contractType,
		ClauseRisks:       make(map[int]model.ClauseRisk, len(clauses)),
		Suggestions:       []string{},
		NegotiationPoints: []string{},
	}

	var sum float64
	for i := range clauses {
		if !done[i] {
			continue
		}
		clauses[i].RiskScore = risks[i].Score
		report.ClauseRisks[clauses[i].ID] = risks[i]
		sum += risks[i].Score
		for _, f := range risks[i].Factors {
			if f.Kind.Sensitive() {
				report.SensitiveData = true
			}
		}
	}

	if n := len(report.ClauseRisks); n > 0 {
		report.RawScore = sum / float64(n)
	}
	report.OverallScore = report.RawScore
	if cal, ok := s.cfg.CalibrationFor(contractType); ok {
		report.OverallScore = cal.Apply(report.RawScore)
		report.Calibrated = true
	}

	report.ComplianceScore = compliantScore
	if report.RawScore > s.cfg.ComplianceThreshold && report.SensitiveData {
		report.ComplianceScore = nonCompliantScore
	}

	for i := range clauses {
		if done[i] && risks[i].Score > s.cfg.ClauseAlertThreshold {
			report.Suggestions = append(report.Suggestions, fmt.Sprintf(
				"High risk in clause %d (%s): %s", clauses[i].ID, clauses[i].Type, snippet(clauses[i].Text, 60)))
		}
	}
	if report.RawScore > s.cfg.SuggestionThreshold {
		report.Suggestions = append(report.Suggestions, fmt.Sprintf(
			"Overall contract risk is elevated (%.2f); review the flagged clauses before signing", report.RawScore))
	}

	report.NegotiationPoints = NegotiationPoints(clauses)

	return report, err
}

// ScoreClause computes one clause's score and the factors behind it
func (s *Scorer) ScoreClause(ctx context.Context, c model.Clause) model.ClauseRisk {
	acc := &accumulator{}

	switch c.Type {
	case model.ClauseIndemnity:
		acc.add(model.FactorClauseType, string(c.Type), indemnityBase)
	case model.ClauseLimitation:
		acc.add(model.FactorClauseType, string(c.Type), limitationBase)
	}

	if !s.applySignal(ctx, c, acc) {
		if kw := highRiskPattern.FindString(c.Text); kw != "" {
			acc.add(model.FactorHighKeyword, strings.ToLower(kw), highKeyword)
		}
		if kw := mediumRiskPattern.FindString(c.Text); kw != "" {
			acc.add(model.FactorMediumKeyword, strings.ToLower(kw), mediumKeyword)
		}
	}

	patterns := []struct {
		kind    model.FactorKind
		pattern *regexp.Regexp
		weight  float64
	}{
		{model.FactorAutoRenewal, autoRenewalPattern, autoRenewal},
		{model.FactorForceMajeure, forceMajeurePattern, forceMajeure},
		{model.FactorSecurity, securityPattern, securityBreach},
		{model.FactorDataPrivacy, privacyPattern, dataPrivacy},
	}
	for _, p := range patterns {
		if m := p.pattern.FindString(c.Text); m != "" {
			acc.add(p.kind, strings.ToLower(m), p.weight)
		}
	}

	return model.ClauseRisk{Score: acc.total, Factors: acc.factors}
}

// applySignal consults the statistical tier. It returns false when the tier
// is absent or failed, which enables the keyword tier.
func (s *Scorer) applySignal(ctx context.Context, c model.Clause, acc *accumulator) bool {
	if s.signal == nil {
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, s.signalTimeout)
	defer cancel()

	v, err := s.signal.Assess(callCtx, c.Text)
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		case errors.Is(err, context.Canceled):
			reason = "canceled"
		case llm.IsTemporary(err):
			reason = "throttled"
		}
		s.log.Warn(ctx, "risk signal failed, using keyword tier",
			logger.Int("clause_id", c.ID),
			logger.String("reason", reason),
			logger.Error(err),
		)
		s.metrics.RecordRiskSignalFallback(reason)
		return false
	}

	conf := math.Max(0, math.Min(1, v.Confidence))
	switch v.Label {
	case llm.VerdictHigh:
		acc.add(model.FactorSignal, v.Label, conf)
	case llm.VerdictMedium:
		acc.add(model.FactorSignal, v.Label, conf*mediumSignalWeight)
	}
	return true
}

// accumulator keeps a running clause score capped at 1.0
type accumulator struct {
	total   float64
	factors []model.RiskFactor
}

func (a *accumulator) add(kind model.FactorKind, match string, amount float64) {
	applied := math.Min(amount, maxClauseScore-a.total)
	if applied < 0 {
		applied = 0
	}
	a.total += applied
	a.factors = append(a.factors, model.RiskFactor{Kind: kind, Match: match, Contribution: applied})
}

// wordsPattern matches any phrase on word boundaries, case-insensitively.
// Longer phrases should come first so they win over their substrings.
func wordsPattern(phrases ...string) *regexp.Regexp {
	alts := make([]string, len(phrases))
	for i, p := range phrases {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

func snippet(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
