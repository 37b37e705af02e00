package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/clausewise/internal/model"
)

const monthNames = `(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)`

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b` + monthNames + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th)?\s+(?:day\s+of\s+)?` + monthNames + `,?\s+\d{4}\b`),
	}

	partyPattern = regexp.MustCompile(`\b((?:[A-Z][A-Za-z0-9&'-]*\s+){1,4}(?:Inc|LLC|L\.L\.C|Corp|Corporation|Company|Ltd|Limited|LLP|GmbH|PLC)\b\.?)`)

	governingLawPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)governed\s+by\s+(?:and\s+construed\s+in\s+accordance\s+with\s+)?the\s+laws?\s+of\s+(?:the\s+)?([^.;,\n]+)`),
		regexp.MustCompile(`(?i)governing\s+law\s+(?:of\s+this\s+agreement\s+)?(?:is|shall\s+be)\s+(?:the\s+laws?\s+of\s+)?(?:the\s+)?([^.;,\n]+)`),
	}

	venuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)brought\s+(?:exclusively\s+)?in\s+the\s+(?:federal\s+or\s+state\s+|state\s+or\s+federal\s+)?courts?\s+(?:located\s+)?in\s+([^.;\n]+)`),
		regexp.MustCompile(`(?i)exclusive\s+(?:jurisdiction|venue)\s+of\s+the\s+courts?\s+(?:located\s+)?(?:in|of)\s+([^.;\n]+)`),
		regexp.MustCompile(`(?i)venue\s+(?:for\s+any\s+[^.;\n]*?\s+)?shall\s+be\s+(?:in\s+)?([^.;\n]+)`),
	}

	definitionPattern = regexp.MustCompile(`["“]([^"”\n]{1,80})["”]\s+(?:means|shall\s+mean|refers\s+to|is\s+defined\s+as)\s+([^\n]+?)(?:\.\s|\.$|\n|$)`)

	slaPattern = regexp.MustCompile(`\b(?:SLA|Service\s+Level\s+Agreement|service\s+level\s+agreement|[Ss]ervice\s+[Ll]evels?)\b[^.\n]{0,80}`)

	partyStopWords = map[string]bool{
		"the": true, "this": true, "such": true, "each": true, "either": true,
		"any": true, "other": true, "said": true, "a": true, "an": true, "all": true,
	}
)

// ExtractMetadata derives document metadata from text alone
func ExtractMetadata(text string) model.DocumentMetadata {
	return model.DocumentMetadata{
		FileSize:      len(text),
		PageCount:     strings.Count(text, "\f") + 1,
		WordCount:     len(strings.Fields(text)),
		DetectedDates: ExtractDates(text),
		Parties:       ExtractParties(text),
		GoverningLaw:  firstCapture(governingLawPatterns, text),
		Venue:         firstCapture(venuePatterns, text),
		Definitions:   ExtractDefinitions(text),
		SLAReferences: ExtractSLAReferences(text),
	}
}

// ExtractDates returns dates in order of first appearance, deduplicated
func ExtractDates(text string) []string {
	type hit struct {
		pos  int
		text string
	}
	var hits []hit
	for _, p := range datePatterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			hits = append(hits, hit{pos: loc[0], text: text[loc[0]:loc[1]]})
		}
	}

	// insertion sort by position keeps output in document order
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	dates := make([]string, 0, len(hits))
	for _, h := range hits {
		dates = append(dates, collapseSpace(h.text))
	}
	return dedupeStrings(dates)
}

// ExtractParties finds organization names carrying a legal-entity suffix
func ExtractParties(text string) []string {
	var parties []string
	for _, m := range partyPattern.FindAllStringSubmatch(text, -1) {
		words := strings.Fields(m[1])
		for len(words) > 1 && partyStopWords[strings.ToLower(words[0])] {
			words = words[1:]
		}
		if len(words) < 2 {
			continue
		}
		parties = append(parties, strings.Join(words, " "))
	}
	return dedupeStrings(parties)
}

// ExtractDefinitions collects quoted defined terms
func ExtractDefinitions(text string) map[string]string {
	defs := make(map[string]string)
	for _, m := range definitionPattern.FindAllStringSubmatch(text, -1) {
		term := strings.TrimSpace(m[1])
		if _, exists := defs[term]; exists {
			continue
		}
		defs[term] = strings.TrimSpace(m[2])
	}
	return defs
}

// ExtractSLAReferences returns the phrases mentioning service levels
func ExtractSLAReferences(text string) []string {
	var refs []string
	for _, m := range slaPattern.FindAllString(text, -1) {
		refs = append(refs, strings.TrimSpace(m))
	}
	return dedupeStrings(refs)
}

func firstCapture(patterns []*regexp.Regexp, text string) *string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			v := strings.TrimSpace(m[1])
			if v != "" {
				return &v
			}
		}
	}
	return nil
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]bool, len(items))
	unique := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		unique = append(unique, item)
	}
	return unique
}
