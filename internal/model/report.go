package model

import "time"

// RiskReport is the derived, non-persisted risk view of a contract.
// It is computed fresh for every request.
type RiskReport struct {
	ContractType      string             `json:"contract_type,omitempty"` // Declared type used for calibration
	ClauseRisks       map[int]ClauseRisk `json:"clause_risks"`            // Clause id -> score and factors
	RawScore          float64            `json:"raw_score"`               // Mean clause score before calibration
	OverallScore      float64            `json:"overall_score"`           // Calibrated by contract type
	Calibrated        bool               `json:"calibrated"`              // Whether a calibration range was applied
	ComplianceScore   float64            `json:"compliance_score"`
	SensitiveData     bool               `json:"sensitive_data"` // Any clause matched a security or PII pattern
	Suggestions       []string           `json:"suggestions"`
	NegotiationPoints []string           `json:"negotiation_points"`
}

// ClauseRisk holds one clause's score with the transparent factors behind it
type ClauseRisk struct {
	Score   float64      `json:"score"`
	Factors []RiskFactor `json:"factors"`
}

// RiskFactor records a single additive contribution to a clause score
type RiskFactor struct {
	Kind         FactorKind `json:"kind"`
	Match        string     `json:"match,omitempty"` // Keyword, pattern or verdict that fired
	Contribution float64    `json:"contribution"`    // Amount actually added after the 1.0 cap
}

// FactorKind classifies a risk contribution
type FactorKind string

const (
	FactorClauseType    FactorKind = "clause_type"    // Base risk for indemnity/limitation
	FactorHighKeyword   FactorKind = "high_keyword"   // High-risk keyword category
	FactorMediumKeyword FactorKind = "medium_keyword" // Medium-risk keyword category
	FactorAutoRenewal   FactorKind = "auto_renewal"
	FactorForceMajeure  FactorKind = "force_majeure"
	FactorSecurity      FactorKind = "security_breach"
	FactorDataPrivacy   FactorKind = "data_privacy"
	FactorSignal        FactorKind = "statistical_signal" // Model verdict scaled by confidence
)

// Sensitive reports whether the factor indicates sensitive data handling
func (k FactorKind) Sensitive() bool {
	return k == FactorSecurity || k == FactorDataPrivacy
}

// RiskItem is a clause-level finding surfaced in an analysis summary
type RiskItem struct {
	ClauseID     int     `json:"clause_id"`
	ClauseText   string  `json:"clause_text"`
	Category     string  `json:"category"`
	Score        float64 `json:"score"`
	SuggestedFix string  `json:"suggested_fix"`
	Priority     int     `json:"priority"` // 1-3, lower is more urgent
}

// Analysis is the complete result of running the pipeline over one document
type Analysis struct {
	RequestID   string         `json:"request_id"`
	Contract    Contract       `json:"contract"`
	Clauses     []Clause       `json:"clauses"`
	Risk        *RiskReport    `json:"risk"`
	RiskItems   []RiskItem     `json:"risk_items"`
	Obligations []Obligation   `json:"obligations"`
	Rights      []Right        `json:"rights"`
	Sources     map[string]int `json:"classification_sources"` // Strategy name -> clauses classified
	AnalyzedAt  time.Time      `json:"analyzed_at"`
	Duration    time.Duration  `json:"duration_ns"`
	Warnings    []string       `json:"warnings,omitempty"` // Degradations that did not abort the analysis
}
