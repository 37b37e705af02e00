package ingest

import (
	"context"
	"strings"
	"unicode/utf8"
)

// TextExtractor passes plain text through
type TextExtractor struct{}

// NewTextExtractor creates a plain text extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Name returns the extractor name
func (e *TextExtractor) Name() string {
	return "text"
}

// CanHandle accepts .txt/.text/.md/.csv files and text/plain, text/csv, text/markdown
func (e *TextExtractor) CanHandle(name string, contentType string) bool {
	switch contentType {
	case "text/plain", "text/csv", "text/markdown":
		return true
	}
	return hasExt(name, ".txt", ".text", ".md", ".csv")
}

// Extract validates UTF-8 and strips a byte order mark
func (e *TextExtractor) Extract(_ context.Context, data []byte) (string, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	return text, nil
}
