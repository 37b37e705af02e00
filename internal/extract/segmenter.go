package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// markerLinePattern recognizes structural clause markers at the start of a line
	markerLinePattern = regexp.MustCompile(`^(?:\d+(?:\.\d+)*\.|\d+(?:\.\d+)+|[A-Z]\.|\([a-z]{1,4}\)|\(\d{1,3}\)|(?:ARTICLE|Article)\s+[0-9IVXLC]+)(?:\s|$)`)

	// spanMarkerPattern captures the marker opening a span so it can be stripped
	spanMarkerPattern = regexp.MustCompile(`^(\d+(?:\.\d+)*\.|\d+(?:\.\d+)+|[A-Z]\.|\([A-Za-z0-9]{1,4}\))(?:\s+|$)`)

	// enumeratorPattern matches a bare enumerator token ending in a period
	enumeratorPattern = regexp.MustCompile(`^(?:\d+(?:\.\d+)*|[A-Za-z]|[ivxlcIVXLC]+)\.$`)
)

// Segment is a candidate clause span before typing
type Segment struct {
	Text   string
	Marker string // structural marker stripped from the span, if any
}

// Segmenter splits contract text into ordered clause spans
type Segmenter struct {
	abbreviations   map[string]bool
	headingWords    map[string]bool
	maxHeadingWords int
}

// NewSegmenter creates a segmenter with the default abbreviation list
func NewSegmenter() *Segmenter {
	abbrevs := []string{
		"inc.", "ltd.", "co.", "corp.", "llc.", "l.l.c.", "plc.", "n.a.",
		"e.g.", "i.e.", "viz.", "cf.", "vs.", "v.",
		"no.", "nos.", "art.", "sec.", "para.", "pp.", "p.",
		"mr.", "mrs.", "ms.", "dr.", "jr.", "sr.", "st.",
		"u.s.", "u.k.", "e.u.",
	}
	connectors := []string{"of", "and", "or", "the", "to", "for", "in", "on", "by", "with", "&", "-", "a", "an"}

	s := &Segmenter{
		abbreviations:   make(map[string]bool, len(abbrevs)),
		headingWords:    make(map[string]bool, len(connectors)),
		maxHeadingWords: 8,
	}
	for _, a := range abbrevs {
		s.abbreviations[a] = true
	}
	for _, c := range connectors {
		s.headingWords[c] = true
	}
	return s
}

// Segment splits text into spans in a single left-to-right pass.
// Blocks start at line-anchored structural markers and blank lines; each
// block is then split at sentence boundaries. Empty spans are dropped.
func (s *Segmenter) Segment(text string) []Segment {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n\n")

	var segments []Segment
	for _, block := range splitBlocks(text) {
		for _, span := range s.blockSpans(block) {
			seg := toSegment(span)
			if seg.Text == "" {
				continue
			}
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		if trimmed := collapseSpace(text); trimmed != "" {
			segments = append(segments, Segment{Text: trimmed})
		}
	}

	return segments
}

// splitBlocks groups trimmed, non-empty lines into blocks
func splitBlocks(text string) [][]string {
	var blocks [][]string
	var current []string

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, current)
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if markerLinePattern.MatchString(trimmed) {
			flush()
		}
		current = append(current, trimmed)
	}
	flush()

	return blocks
}

// blockSpans emits a leading heading line on its own, then sentence spans
func (s *Segmenter) blockSpans(lines []string) []string {
	var spans []string

	if len(lines) > 1 && s.isHeading(stripMarker(lines[0])) && !continuesSentence(lines[1]) {
		spans = append(spans, lines[0])
		lines = lines[1:]
	}

	body := collapseSpace(strings.Join(lines, " "))
	return append(spans, s.splitSentences(body)...)
}

// isHeading reports whether a line reads like a section title
func (s *Segmenter) isHeading(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > s.maxHeadingWords {
		return false
	}

	last, _ := utf8.DecodeLastRuneInString(line)
	if strings.ContainsRune(".;,!?", last) {
		return false
	}

	for _, w := range words {
		if s.headingWords[strings.ToLower(w)] {
			continue
		}
		first, _ := utf8.DecodeRuneInString(w)
		if unicode.IsLower(first) {
			return false
		}
	}
	return true
}

// splitSentences breaks a block at '.', '!' or '?' followed by whitespace,
// except after abbreviations and span-opening enumerators.
func (s *Segmenter) splitSentences(block string) []string {
	var spans []string
	start := 0

	for i := 0; i < len(block); i++ {
		c := block[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}

		end := i + 1
		for end < len(block) && (block[end] == '"' || block[end] == '\'' || block[end] == ')') {
			end++
		}
		if end < len(block) && block[end] != ' ' && block[end] != '\t' {
			continue
		}
		if c == '.' && s.suppressBreak(block[start:i+1]) {
			continue
		}

		spans = append(spans, block[start:end])
		start = end
		i = end - 1
	}

	if start < len(block) {
		spans = append(spans, block[start:])
	}

	return spans
}

// suppressBreak inspects the token ending at a period
func (s *Segmenter) suppressBreak(span string) bool {
	span = strings.TrimSpace(span)
	token := span
	if idx := strings.LastIndexAny(span, " \t"); idx >= 0 {
		token = span[idx+1:]
	}
	token = strings.TrimLeft(token, "(\"'")

	if s.abbreviations[strings.ToLower(token)] {
		return true
	}

	// "2." opening a span is a marker, not a sentence end
	return token == span && enumeratorPattern.MatchString(token)
}

func toSegment(span string) Segment {
	span = strings.TrimSpace(span)
	m := spanMarkerPattern.FindStringSubmatch(span)
	if m == nil {
		return Segment{Text: span}
	}
	return Segment{
		Text:   strings.TrimSpace(span[len(m[0]):]),
		Marker: m[1],
	}
}

// continuesSentence reports whether a wrapped line carries on the previous one
func continuesSentence(line string) bool {
	first, _ := utf8.DecodeRuneInString(line)
	return unicode.IsLower(first)
}

func stripMarker(line string) string {
	if m := spanMarkerPattern.FindString(line); m != "" {
		return strings.TrimSpace(line[len(m):])
	}
	return line
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
