package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/clausewise/internal/model"
)

// Risk verdict labels returned by the risk signal
const (
	VerdictHigh   = "High Risk"
	VerdictMedium = "Medium Risk"
	VerdictLow    = "Low Risk"
)

const classificationSystem = `You are a contract analyst. Label a single contract clause with exactly one clause type.
Respond with JSON only: {"type": "<label>", "confidence": <0..1>}.`

const riskSystem = `You are a contract risk reviewer. Judge how risky a single clause is for the party receiving the contract.
Respond with JSON only: {"label": "High Risk" | "Medium Risk" | "Low Risk", "confidence": <0..1>}.`

// Classification is a parsed clause-type answer
type Classification struct {
	Type       model.ClauseType
	Confidence float64
}

// RiskVerdict is a parsed risk answer
type RiskVerdict struct {
	Label      string
	Confidence float64
}

// BuildClassificationPrompt asks for one label from the clause taxonomy
func BuildClassificationPrompt(text string) CompletionRequest {
	labels := make([]string, len(model.ClauseTypes))
	for i, t := range model.ClauseTypes {
		labels[i] = string(t)
	}

	var sb strings.Builder
	sb.WriteString("Allowed labels: ")
	sb.WriteString(strings.Join(labels, ", "))
	sb.WriteString("\n\nClause:\n")
	sb.WriteString(strings.TrimSpace(text))

	return CompletionRequest{
		System:    classificationSystem,
		Prompt:    sb.String(),
		MaxTokens: 64,
		JSON:      true,
	}
}

// BuildRiskPrompt asks for a three-level risk verdict
func BuildRiskPrompt(text string) CompletionRequest {
	return CompletionRequest{
		System:    riskSystem,
		Prompt:    "Clause:\n" + strings.TrimSpace(text),
		MaxTokens: 64,
		JSON:      true,
	}
}

// ParseClassification reads a classification answer. Bare labels are
// accepted with confidence 0.5 when the model ignores the JSON format.
func ParseClassification(raw string) (Classification, error) {
	var payload struct {
		Type       string   `json:"type"`
		Confidence *float64 `json:"confidence"`
	}

	body := stripFences(raw)
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t, ok := model.ParseClauseType(firstLine(body))
		if !ok {
			return Classification{}, fmt.Errorf("%w: %q", ErrMalformedResponse, truncate(raw, 80))
		}
		return Classification{Type: t, Confidence: 0.5}, nil
	}

	t, ok := model.ParseClauseType(payload.Type)
	if !ok {
		return Classification{}, fmt.Errorf("%w: unknown label %q", ErrMalformedResponse, payload.Type)
	}
	conf := 0.5
	if payload.Confidence != nil {
		conf = clamp01(*payload.Confidence)
	}
	return Classification{Type: t, Confidence: conf}, nil
}

// ParseRiskVerdict reads a risk answer and normalizes the label
func ParseRiskVerdict(raw string) (RiskVerdict, error) {
	var payload struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return RiskVerdict{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var label string
	switch strings.ToLower(strings.TrimSpace(payload.Label)) {
	case "high risk", "high":
		label = VerdictHigh
	case "medium risk", "medium":
		label = VerdictMedium
	case "low risk", "low":
		label = VerdictLow
	default:
		return RiskVerdict{}, fmt.Errorf("%w: unknown verdict %q", ErrMalformedResponse, payload.Label)
	}
	return RiskVerdict{Label: label, Confidence: clamp01(payload.Confidence)}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
