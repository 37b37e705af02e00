// Package ingest turns uploaded or fetched contract files into plain text.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedType is returned for files no extractor accepts
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrEmptyDocument is returned for empty files or files with no text
	ErrEmptyDocument = errors.New("document is empty")

	// ErrExtraction wraps failures inside an extractor
	ErrExtraction = errors.New("text extraction failed")
)

// Document is extracted contract text with its source details
type Document struct {
	Name        string // File name or URL
	ContentType string // Media type without parameters
	Extractor   string // Extractor that produced Text
	Text        string
	Size        int64 // Raw bytes read
}

// Extractor converts one document format to text
type Extractor interface {
	// Name returns the extractor name
	Name() string

	// CanHandle checks the file name extension and media type
	CanHandle(name string, contentType string) bool

	// Extract returns the document text. Page breaks are written as '\f'.
	Extract(ctx context.Context, data []byte) (string, error)
}

// Registry picks an extractor by file name and content type
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry with the built-in extractors
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(NewPDFExtractor())
	r.Register(NewDOCXExtractor())
	r.Register(NewHTMLExtractor())
	r.Register(NewTextExtractor())
	return r
}

// Register adds an extractor. Earlier registrations win.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Find returns the first extractor that accepts the document
func (r *Registry) Find(name, contentType string) (Extractor, error) {
	ct := mediaType(contentType)
	for _, e := range r.extractors {
		if e.CanHandle(name, ct) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, filepath.Ext(name), ct)
}

// Extract converts raw bytes into a Document
func (r *Registry) Extract(ctx context.Context, name, contentType string, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, name)
	}

	e, err := r.Find(name, contentType)
	if err != nil {
		return nil, err
	}

	text, err := e.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtraction, e.Name(), err)
	}
	text = normalizeText(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text in %s", ErrEmptyDocument, name)
	}

	return &Document{
		Name:        name,
		ContentType: mediaType(contentType),
		Extractor:   e.Name(),
		Text:        text,
		Size:        int64(len(data)),
	}, nil
}

// mediaType drops parameters ("; charset=utf-8") and lower-cases
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func hasExt(name string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// normalizeText unifies line endings and trims trailing spaces per line
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
