// Package obligation turns obligation and right clauses into
// party/action/condition/deadline tuples.
package obligation

import (
	"regexp"
	"strings"

	"github.com/ppiankov/clausewise/internal/extract"
	"github.com/ppiankov/clausewise/internal/model"
)

var (
	shallTrigger = regexp.MustCompile(`(?i)\bshall\b`)
	mayTrigger   = regexp.MustCompile(`(?i)\bmay\b`)

	// Leading "If ..., " / "Upon ..., " before the subject
	leadingCondition = regexp.MustCompile(`(?i)^((?:if|unless|upon|when|where|in the event(?: of| that)?|subject to|provided that)\b[^,]*),\s*`)

	conditionPattern = regexp.MustCompile(`(?i)\b(?:if|unless|provided that|subject to|upon|in the event(?: of| that)?)\b[^,;.]*`)
	deadlinePattern  = regexp.MustCompile(`(?i)\b(?:within|no later than|on or before|prior to|before|by)\s+(?:[^,;.]|\.\d)*`)
	byPattern        = regexp.MustCompile(`(?i)^by\s+(?:the\s+(?:end|last|first)\b|\d|(?:january|february|march|april|may|june|july|august|september|october|november|december)\b)`)
)

// Mapper extracts obligations and rights. It is stateless.
type Mapper struct{}

// NewMapper creates a mapper
func NewMapper() *Mapper {
	return &Mapper{}
}

// Map walks clauses in order. Obligation clauses need "shall" and right
// clauses need "may"; clauses without their trigger are skipped.
func (m *Mapper) Map(clauses []model.Clause) ([]model.Obligation, []model.Right) {
	obligations := []model.Obligation{}
	rights := []model.Right{}

	for _, c := range clauses {
		switch c.Type {
		case model.ClauseObligation:
			if t, ok := parse(c.Text, shallTrigger); ok {
				obligations = append(obligations, model.Obligation{
					Party: t.party, Action: t.action, Condition: t.condition, DueDate: t.dueDate, ClauseID: c.ID,
				})
			}
		case model.ClauseRight:
			if t, ok := parse(c.Text, mayTrigger); ok {
				rights = append(rights, model.Right{
					Party: t.party, Action: t.action, Condition: t.condition, DueDate: t.dueDate, ClauseID: c.ID,
				})
			}
		}
	}
	return obligations, rights
}

type tuple struct {
	party     string
	action    string
	condition string
	dueDate   string
}

func parse(text string, trigger *regexp.Regexp) (tuple, bool) {
	text = strings.TrimSpace(text)
	loc := trigger.FindStringIndex(text)
	if loc == nil {
		return tuple{}, false
	}

	t := tuple{party: model.Unknown, action: model.Unknown, condition: model.Unknown, dueDate: model.Unknown}

	subject := strings.TrimSpace(text[:loc[0]])
	if m := leadingCondition.FindStringSubmatchIndex(subject); m != nil {
		t.condition = strings.TrimSpace(subject[m[2]:m[3]])
		subject = strings.TrimSpace(subject[m[1]:])
	}
	if subject != "" {
		t.party = strings.TrimRight(subject, ",;: ")
	}

	rest := text[loc[1]:]
	end := len(rest)

	condStart, condEnd := -1, -1
	if t.condition == model.Unknown {
		if m := conditionPattern.FindStringIndex(rest); m != nil {
			condStart, condEnd = m[0], m[1]
		}
	}

	dueStart, dueEnd := -1, -1
	for _, m := range deadlinePattern.FindAllStringIndex(rest, -1) {
		phrase := strings.TrimSpace(rest[m[0]:m[1]])
		if strings.HasPrefix(strings.ToLower(phrase), "by ") && !byPattern.MatchString(phrase) {
			continue
		}
		dueStart, dueEnd = m[0], m[1]
		break
	}

	// A phrase stops where the other one begins
	if condStart >= 0 && dueStart > condStart && dueStart < condEnd {
		condEnd = dueStart
	}
	if dueStart >= 0 && condStart > dueStart && condStart < dueEnd {
		dueEnd = condStart
	}

	if condStart >= 0 {
		t.condition = cleanPhrase(rest[condStart:condEnd])
		end = condStart
	}
	if dueStart >= 0 {
		t.dueDate = cleanPhrase(rest[dueStart:dueEnd])
		if dueStart < end {
			end = dueStart
		}
	} else if dates := extract.ExtractDates(text); len(dates) > 0 {
		t.dueDate = dates[0]
	}

	if action := cleanPhrase(rest[:end]); action != "" {
		t.action = action
	}
	return t, true
}

func cleanPhrase(s string) string {
	return strings.Trim(strings.TrimSpace(s), ",;:. ")
}
