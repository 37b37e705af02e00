package model

import "strings"

// Clause is the atomic unit of analysis produced by segmentation
type Clause struct {
	ID             int        `json:"id"`                // Position in document order (0-based, contiguous)
	Type           ClauseType `json:"type"`              // Label from the clause taxonomy
	Text           string     `json:"text"`              // Normalized span text
	Marker         string     `json:"marker,omitempty"`  // Structural marker stripped from the span ("1.", "(a)")
	PrecisionScore float64    `json:"precision_score"`   // Confidence in boundary and type assignment [0,1]
	RiskScore      float64    `json:"risk_score"`        // Written once by the risk scorer [0,1]
	References     []int      `json:"references"`        // Clause ids this clause cites
	Party          string     `json:"party"`             // Party attribution ("Unknown" until enriched)
}

// Unknown is the placeholder for any free-text field that could not be extracted
const Unknown = "Unknown"

// NewClause creates an unclassified clause at the given position
func NewClause(id int, text string) Clause {
	return Clause{
		ID:         id,
		Type:       ClauseUnknown,
		Text:       text,
		References: []int{},
		Party:      Unknown,
	}
}

// ClauseType is a label from the fixed clause taxonomy
type ClauseType string

const (
	ClauseObligation        ClauseType = "obligation"
	ClauseRight             ClauseType = "right"
	ClauseDefinition        ClauseType = "definition"
	ClauseWarranty          ClauseType = "warranty"
	ClauseIndemnity         ClauseType = "indemnity"
	ClauseLimitation        ClauseType = "limitation"
	ClauseGoverningLaw      ClauseType = "governing_law"
	ClauseDisputeResolution ClauseType = "dispute_resolution"
	ClauseForceMajeure      ClauseType = "force_majeure"
	ClauseAssignment        ClauseType = "assignment"
	ClauseConfidentiality   ClauseType = "confidentiality"
	ClauseIPLicense         ClauseType = "ip_license"
	ClauseTermination       ClauseType = "termination"
	ClauseRenewal           ClauseType = "renewal"
	ClauseExclusivity       ClauseType = "exclusivity"
	ClauseNonCompete        ClauseType = "non_compete"
	ClauseHeader            ClauseType = "header"
	ClauseUnknown           ClauseType = "unknown"
)

// ClauseTypes lists the full taxonomy in rule-precedence order,
// followed by the two structural labels.
var ClauseTypes = []ClauseType{
	ClauseObligation,
	ClauseRight,
	ClauseDefinition,
	ClauseWarranty,
	ClauseIndemnity,
	ClauseLimitation,
	ClauseGoverningLaw,
	ClauseDisputeResolution,
	ClauseForceMajeure,
	ClauseAssignment,
	ClauseConfidentiality,
	ClauseIPLicense,
	ClauseTermination,
	ClauseRenewal,
	ClauseExclusivity,
	ClauseNonCompete,
	ClauseHeader,
	ClauseUnknown,
}

// IsValid reports whether t belongs to the taxonomy
func (t ClauseType) IsValid() bool {
	for _, known := range ClauseTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseClauseType normalizes a free-form label ("Governing Law", "ip-license")
// into a taxonomy label.
func ParseClauseType(s string) (ClauseType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "\"'`.")
	s = labelReplacer.Replace(s)
	t := ClauseType(strings.Trim(s, "_"))
	if !t.IsValid() {
		return ClauseUnknown, false
	}
	return t, true
}

var labelReplacer = strings.NewReplacer(" ", "_", "-", "_")
