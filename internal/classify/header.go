package classify

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultMaxHeaderWords bounds the title that may follow a structural marker
const DefaultMaxHeaderWords = 5

var (
	headerMarkerPattern = regexp.MustCompile(`^(?:(?i:article|section|clause|schedule|exhibit|annex|appendix|part)\s+[0-9IVXLCivxlc]+(?:\.\d+)*[.:]?|\d+(?:\.\d+)*\.?|[A-Z]\.|\([a-zA-Z0-9]{1,4}\))(?:\s+|$)`)

	modalPattern = regexp.MustCompile(`(?i)\b(?:shall|must|may|will|should|agrees?|is|are)\b`)
)

// isHeader reports whether text is a structural heading rather than an operative clause
func isHeader(text string, maxWords int) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxHeaderWords
	}

	// "Section 5 Termination", "ARTICLE IV", "3.1 Payment Terms"
	if loc := headerMarkerPattern.FindStringIndex(text); loc != nil {
		rest := strings.Trim(strings.TrimSpace(text[loc[1]:]), "-:.— ")
		if len(strings.Fields(rest)) <= maxWords && !modalPattern.MatchString(rest) {
			return true
		}
	}

	words := strings.Fields(text)
	if len(words) > maxWords {
		return false
	}

	return isAllUpper(text)
}

func isAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}
