package score

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/clausewise/internal/model"
)

// Negotiation points
const (
	PointInjunctiveRelief = "Add injunctive relief / equitable remedies"
	PointReturnDestroy    = "Ensure data-return/destroy timelines are clear and reasonable"
	PointUnilateralFees   = "Removal of unilateral fees"
	PointAutoRenewal      = "Add an opt-out window before automatic renewal"
	PointSoleDiscretion   = "Limit unilateral or sole-discretion rights"
)

var (
	injunctivePattern    = regexp.MustCompile(`(?i)\b(?:injunctive\s+relief|equitable\s+(?:remedies|relief))\b`)
	returnDestroyPattern = regexp.MustCompile(`(?i)\b(?:return\s+or\s+destroy|destroy\s+or\s+return|data\s+retention)\b`)
	feePattern           = regexp.MustCompile(`(?i)\bfees?\b`)
	discretionPattern    = regexp.MustCompile(`(?i)\b(?:sole\s+discretion|absolute\s+discretion|unilateral(?:ly)?)\b`)
)

// NegotiationPoints checks the contract for missing protections and risky
// terms. Points are deduplicated in first-seen order.
func NegotiationPoints(clauses []model.Clause) []string {
	texts := make([]string, len(clauses))
	for i, c := range clauses {
		texts[i] = c.Text
	}
	all := strings.Join(texts, "\n")

	var points []string
	if !injunctivePattern.MatchString(all) {
		points = append(points, PointInjunctiveRelief)
	}
	if !returnDestroyPattern.MatchString(all) {
		points = append(points, PointReturnDestroy)
	}
	if feePattern.MatchString(all) {
		points = append(points, PointUnilateralFees)
	}
	if autoRenewalPattern.MatchString(all) {
		points = append(points, PointAutoRenewal)
	}
	if discretionPattern.MatchString(all) {
		points = append(points, PointSoleDiscretion)
	}
	return dedupe(points)
}

func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}

// categories describe a clause finding by the factor that contributed most
var categories = map[model.FactorKind]struct {
	name string
	fix  string
}{
	model.FactorClauseType:    {"Liability", "Cap liability and limit indemnity to third-party claims caused by the indemnifying party."},
	model.FactorHighKeyword:   {"Unilateral Terms", "Replace discretionary or no-notice rights with mutual, notice-based procedures."},
	model.FactorMediumKeyword: {"Ambiguity", "Replace vague standards with measurable commitments."},
	model.FactorAutoRenewal:   {"Renewal", "Require written notice before renewal and add a termination-for-convenience window."},
	model.FactorForceMajeure:  {"Force Majeure", "Narrow the qualifying events and add a termination right for prolonged events."},
	model.FactorSecurity:      {"Security", "Specify security controls, breach notification deadlines and audit rights."},
	model.FactorDataPrivacy:   {"Data Privacy", "Add data processing terms covering purpose limits, sub-processors and deletion."},
	model.FactorSignal:        {"Model Assessment", "Review this clause with counsel."},
}

// RiskItems lists risky clauses and missing protections, most urgent first.
// Clause items need a score above threshold; missing-protection items carry
// ClauseID -1.
func RiskItems(clauses []model.Clause, report *model.RiskReport, threshold, alert float64) []model.RiskItem {
	items := []model.RiskItem{}
	if report == nil {
		return items
	}

	for _, c := range clauses {
		risk, ok := report.ClauseRisks[c.ID]
		if !ok || risk.Score <= threshold {
			continue
		}
		cat := categories[dominant(risk.Factors)]
		priority := 2
		if risk.Score > alert {
			priority = 1
		}
		items = append(items, model.RiskItem{
			ClauseID:     c.ID,
			ClauseText:   c.Text,
			Category:     cat.name,
			Score:        risk.Score,
			SuggestedFix: cat.fix,
			Priority:     priority,
		})
	}

	for _, p := range report.NegotiationPoints {
		switch p {
		case PointInjunctiveRelief:
			items = append(items, model.RiskItem{
				ClauseID:     -1,
				ClauseText:   "Absence of Injunctive Relief Clause",
				Category:     "Enforcement",
				Score:        0.95,
				SuggestedFix: "Include a clause allowing for injunctive relief in the event of a breach.",
				Priority:     1,
			})
		case PointReturnDestroy:
			items = append(items, model.RiskItem{
				ClauseID:     -1,
				ClauseText:   "Absence of Data Return/Destroy Clause",
				Category:     "Data Handling",
				Score:        0.92,
				SuggestedFix: "Include specific timelines for returning or destroying confidential information.",
				Priority:     2,
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].Score > items[j].Score
	})
	return items
}

// dominant picks the clause-type factor when present, else the largest contribution
func dominant(factors []model.RiskFactor) model.FactorKind {
	best := model.FactorSignal
	top := -1.0
	for _, f := range factors {
		if f.Kind == model.FactorClauseType {
			return f.Kind
		}
		if f.Contribution > top {
			best, top = f.Kind, f.Contribution
		}
	}
	return best
}
