package classify

import (
	"context"
	"regexp"
	"strings"

	"github.com/ppiankov/clausewise/internal/model"
)

// Confidence assigned by the deterministic paths
const (
	HeaderConfidence  = 0.9
	RuleConfidence    = 0.7
	UnknownConfidence = 0.5
)

// Rule maps a set of keywords to a clause type
type Rule struct {
	Type     model.ClauseType
	Keywords []string
}

// DefaultRules is the ordered keyword table. The first matching rule wins.
var DefaultRules = []Rule{
	{model.ClauseObligation, []string{"shall", "must", "is required to", "agrees to", "will be responsible for"}},
	{model.ClauseRight, []string{"may", "is entitled to", "has the right to", "reserves the right"}},
	{model.ClauseDefinition, []string{"means", "is defined as", "refers to"}},
	{model.ClauseWarranty, []string{"warrants", "warranty", "guarantees"}},
	{model.ClauseIndemnity, []string{"indemnify", "indemnification", "hold harmless", "defend"}},
	{model.ClauseLimitation, []string{"limitation of liability", "liable", "liability", "in no event", "consequential damages"}},
	{model.ClauseGoverningLaw, []string{"governing law", "governed by", "laws of"}},
	{model.ClauseDisputeResolution, []string{"arbitration", "dispute", "mediation", "jurisdiction", "courts"}},
	{model.ClauseForceMajeure, []string{"force majeure", "act of god", "acts of god", "beyond its reasonable control"}},
	{model.ClauseAssignment, []string{"assign", "assignment"}},
	{model.ClauseConfidentiality, []string{"confidential", "confidentiality", "non-disclosure"}},
	{model.ClauseIPLicense, []string{"license", "licence", "intellectual property", "patent", "copyright", "trademark"}},
	{model.ClauseTermination, []string{"terminate", "termination", "expiration"}},
	{model.ClauseRenewal, []string{"renew", "renewal", "automatically extend"}},
	{model.ClauseExclusivity, []string{"exclusive", "exclusively"}},
	{model.ClauseNonCompete, []string{"non-compete", "compete", "non-solicit"}},
}

type compiledRule struct {
	typ     model.ClauseType
	pattern *regexp.Regexp
}

// RuleStrategy classifies by case-insensitive whole-word keyword matching.
// It never fails and is safe for concurrent use.
type RuleStrategy struct {
	rules []compiledRule
}

// NewRuleStrategy compiles rules in order. A nil slice uses DefaultRules.
func NewRuleStrategy(rules []Rule) *RuleStrategy {
	if rules == nil {
		rules = DefaultRules
	}
	s := &RuleStrategy{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		s.rules = append(s.rules, compiledRule{typ: r.Type, pattern: keywordPattern(r.Keywords)})
	}
	return s
}

// Name returns "rules"
func (s *RuleStrategy) Name() string { return SourceRules }

// Classify never returns an error
func (s *RuleStrategy) Classify(_ context.Context, text string) (model.ClauseType, float64, error) {
	t, conf := s.Match(text)
	return t, conf, nil
}

// Match returns the first matching rule's type, or unknown
func (s *RuleStrategy) Match(text string) (model.ClauseType, float64) {
	for _, r := range s.rules {
		if r.pattern.MatchString(text) {
			return r.typ, RuleConfidence
		}
	}
	return model.ClauseUnknown, UnknownConfidence
}

// keywordPattern builds `(?i)\b(?:kw1|kw2)\b` with whitespace inside
// phrases matching any run of spaces
func keywordPattern(keywords []string) *regexp.Regexp {
	alts := make([]string, len(keywords))
	for i, kw := range keywords {
		parts := strings.Fields(kw)
		for j, p := range parts {
			parts[j] = regexp.QuoteMeta(p)
		}
		alts[i] = strings.Join(parts, `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}
