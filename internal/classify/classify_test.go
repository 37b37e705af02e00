package classify

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clausewise/internal/llm"
	"github.com/ppiankov/clausewise/internal/metrics"
	"github.com/ppiankov/clausewise/internal/model"
)

func fixed(name string, t model.ClauseType, conf float64, err error) Strategy {
	return StrategyFunc{Label: name, Fn: func(ctx context.Context, text string) (model.ClauseType, float64, error) {
		return t, conf, err
	}}
}

func TestRuleStrategy_Order(t *testing.T) {
	rules := NewRuleStrategy(nil)

	tests := []struct {
		text string
		want model.ClauseType
	}{
		{"The Company shall maintain confidentiality.", model.ClauseObligation},
		{"The Licensee may terminate on notice.", model.ClauseRight},
		{`"Affiliate" means any entity controlling a Party.`, model.ClauseDefinition},
		{"Supplier warrants the goods are fit for purpose.", model.ClauseWarranty},
		{"Customer will indemnify Supplier against claims.", model.ClauseIndemnity},
		{"In no event is either party liable for lost profits.", model.ClauseLimitation},
		{"This Agreement is governed by the laws of Delaware.", model.ClauseGoverningLaw},
		{"Any dispute goes to binding arbitration.", model.ClauseDisputeResolution},
		{"Neither party is responsible for Acts of God.", model.ClauseForceMajeure},
		{"Neither party can assign this Agreement.", model.ClauseAssignment},
		{"Recipient keeps all Confidential Information secret.", model.ClauseConfidentiality},
		{"Licensor grants a license to the software.", model.ClauseIPLicense},
		{"Either party can terminate for convenience.", model.ClauseTermination},
		{"The term will renew each year.", model.ClauseRenewal},
		{"Distributor acts exclusively in France.", model.ClauseExclusivity},
		{"Employee will not compete with the Company.", model.ClauseNonCompete},
		{"Payment is due in thirty days.", model.ClauseUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, conf := rules.Match(tt.text)
			assert.Equal(t, tt.want, got)
			if tt.want == model.ClauseUnknown {
				assert.Equal(t, UnknownConfidence, conf)
			} else {
				assert.Equal(t, RuleConfidence, conf)
			}
		})
	}
}

func TestRuleStrategy_WholeWordsOnly(t *testing.T) {
	rules := NewRuleStrategy(nil)

	got, _ := rules.Match("Mayor Smith attended the meeting.")
	assert.Equal(t, model.ClauseUnknown, got, "\"may\" inside \"Mayor\" is not a keyword hit")

	got, _ = rules.Match("The Vendor SHALL deliver.")
	assert.Equal(t, model.ClauseObligation, got)
}

func TestClassifier_CustomRules(t *testing.T) {
	c := New(WithRules([]Rule{
		{Type: model.ClauseRenewal, Keywords: []string{"evergreen"}},
		{Type: model.ClauseObligation, Keywords: []string{"shall"}},
	}))

	res := c.Classify(context.Background(), "This evergreen term shall continue.")
	assert.Equal(t, Result{Type: model.ClauseRenewal, Confidence: RuleConfidence, Source: SourceRules}, res)

	res = c.Classify(context.Background(), "Neither party can assign this Agreement.")
	assert.Equal(t, model.ClauseUnknown, res.Type, "custom table replaces the defaults")
}

func TestIsHeader(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"ARTICLE IV", true},
		{"Section 5 Termination", true},
		{"3.1 Payment Terms", true},
		{"(a)", true},
		{"CONFIDENTIALITY OBLIGATIONS", true},
		{"Definitions", false},
		{"Limitation of Liability", false},
		{"Governing Law", false},
		{"Section 5 The Supplier shall deliver all goods.", false},
		{"This is the Purpose.", false},
		{"Late fees apply.", false},
		{"The Parties Shall Cooperate", false},
		{"The Company shall maintain confidentiality of all information it receives.", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, isHeader(tt.text, DefaultMaxHeaderWords))
		})
	}
}

func TestClassifier_HeaderSkipsPrimary(t *testing.T) {
	var calls int32
	primary := StrategyFunc{Label: "counting", Fn: func(ctx context.Context, text string) (model.ClauseType, float64, error) {
		atomic.AddInt32(&calls, 1)
		return model.ClauseRight, 0.99, nil
	}}

	res := New(WithPrimary(primary)).Classify(context.Background(), "ARTICLE 7 TERMINATION")
	assert.Equal(t, Result{Type: model.ClauseHeader, Confidence: HeaderConfidence, Source: SourceHeader}, res)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestClassifier_TitleCaseClausesReachRules(t *testing.T) {
	tests := []struct {
		text string
		want model.ClauseType
	}{
		{"Governing Law", model.ClauseGoverningLaw},
		{"Confidential Information", model.ClauseConfidentiality},
		{"Indemnify And Hold Harmless", model.ClauseIndemnity},
		{"Termination For Convenience", model.ClauseTermination},
		{"GOVERNING LAW", model.ClauseHeader},
	}
	c := New()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(context.Background(), tt.text).Type)
		})
	}
}

func TestClassifier_PrimaryWins(t *testing.T) {
	c := New(WithPrimary(fixed("stat", model.ClauseConfidentiality, 0.93, nil)))

	res := c.Classify(context.Background(), "The Company shall maintain confidentiality.")
	assert.Equal(t, model.ClauseConfidentiality, res.Type)
	assert.Equal(t, 0.93, res.Confidence)
	assert.Equal(t, "stat", res.Source)
}

func TestClassifier_FallbackReasons(t *testing.T) {
	slow := StrategyFunc{Label: "slow", Fn: func(ctx context.Context, text string) (model.ClauseType, float64, error) {
		<-ctx.Done()
		return "", 0, ctx.Err()
	}}
	panicky := StrategyFunc{Label: "panicky", Fn: func(ctx context.Context, text string) (model.ClauseType, float64, error) {
		panic("model exploded")
	}}

	tests := []struct {
		name    string
		primary Strategy
		reason  string
	}{
		{"unavailable", fixed("m", "", 0, ErrModelUnavailable), ReasonUnavailable},
		{"runtime error", fixed("m", "", 0, errors.New("cuda oom")), ReasonError},
		{"invalid label", fixed("m", "payment_terms", 0.8, nil), ReasonInvalidLabel},
		{"timeout", slow, ReasonTimeout},
		{"panic", panicky, ReasonPanic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			m := metrics.NewManager(metrics.WithRegistry(reg))
			c := New(WithPrimary(tt.primary), WithTimeout(20*time.Millisecond), WithMetrics(m))

			res := c.Classify(context.Background(), "The Company shall maintain confidentiality.")
			assert.Equal(t, model.ClauseObligation, res.Type)
			assert.Equal(t, RuleConfidence, res.Confidence)
			assert.Equal(t, SourceRules, res.Source)

			assert.Equal(t, 1.0, sumCounter(t, reg, "clausewise_classifier_fallback_total", "reason", tt.reason))
		})
	}
}

func TestFallbackReason_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, ReasonCanceled, fallbackReason(ctx, context.Canceled))
	assert.Equal(t, ReasonTimeout, fallbackReason(context.Background(), context.DeadlineExceeded))

	throttled := fmt.Errorf("openai: %w", &llm.APIError{Provider: "openai", StatusCode: 429, Message: "slow down"})
	assert.Equal(t, ReasonThrottled, fallbackReason(context.Background(), throttled))
	assert.Equal(t, ReasonError, fallbackReason(context.Background(), &llm.APIError{StatusCode: 401}))
}

func TestClassifier_CanceledContextStillLabels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(WithPrimary(fixed("m", model.ClauseRight, 0.9, nil)))
	res := c.Classify(ctx, "Either party may terminate.")
	assert.Equal(t, model.ClauseRight, res.Type)
	assert.Equal(t, SourceRules, res.Source)
}

func TestClassifier_ClassifyAll(t *testing.T) {
	texts := []string{
		"DEFINITIONS",
		"The Supplier shall deliver the goods.",
		"The Customer may inspect the goods.",
		"Payment is due in thirty days.",
	}

	results := New().ClassifyAll(context.Background(), texts, 2)
	require.Len(t, results, 4)
	assert.Equal(t, model.ClauseHeader, results[0].Type)
	assert.Equal(t, model.ClauseObligation, results[1].Type)
	assert.Equal(t, model.ClauseRight, results[2].Type)
	assert.Equal(t, model.ClauseUnknown, results[3].Type)
}

func TestClassifier_ClassifyAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New().ClassifyAll(ctx, []string{"The Supplier shall deliver.", "Other text."}, 1)
	require.Len(t, results, 2)
	assert.Equal(t, model.ClauseObligation, results[0].Type)
	assert.Equal(t, model.ClauseUnknown, results[1].Type)
}

func TestClassifier_RecordsClassifications(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewManager(metrics.WithRegistry(reg))

	c := New(WithMetrics(m))
	c.Classify(context.Background(), "The Supplier shall deliver.")
	c.Classify(context.Background(), "The Supplier shall pay.")

	assert.Equal(t, 2.0, sumCounter(t, reg, "clausewise_clauses_classified_total", "source", SourceRules))
}

// sumCounter adds up every series of a counter family whose label matches
func sumCounter(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}
