package ingest

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"
)

// HTMLExtractor extracts visible text from HTML contracts
type HTMLExtractor struct{}

// NewHTMLExtractor creates an HTML extractor
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Name returns the extractor name
func (e *HTMLExtractor) Name() string {
	return "html"
}

// CanHandle accepts .html/.htm files and text/html, application/xhtml+xml
func (e *HTMLExtractor) CanHandle(name string, contentType string) bool {
	switch contentType {
	case "text/html", "application/xhtml+xml":
		return true
	}
	return hasExt(name, ".html", ".htm", ".xhtml")
}

// Extract parses the document and returns its visible text
func (e *HTMLExtractor) Extract(_ context.Context, data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return extractVisibleText(doc), nil
}

// blockElements end a line so numbered clauses stay line-anchored
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "br": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "pre": true, "dd": true, "dt": true,
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder
	var last byte

	write := func(s string) {
		buf.WriteString(s)
		last = s[len(s)-1]
	}
	newline := func() {
		if last != 0 && last != '\n' {
			write("\n")
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head", "template":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				if last != 0 && last != '\n' && last != ' ' {
					write(" ")
				}
				write(text)
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			newline()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			newline()
		}
	}

	walk(n)
	return strings.TrimSpace(buf.String())
}
