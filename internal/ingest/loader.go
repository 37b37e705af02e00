package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/clausewise/internal/logger"
	"github.com/ppiankov/clausewise/internal/metrics"
)

// Loader reads a contract from a local path or URL and extracts its text
type Loader struct {
	registry *Registry
	fetcher  *Fetcher
	maxBytes int64
	log      logger.Logger
	metrics  *metrics.Manager
}

// NewLoader creates a loader. A nil fetcher disables URL sources.
func NewLoader(registry *Registry, fetcher *Fetcher, maxBytes int64, log logger.Logger, m *metrics.Manager) *Loader {
	if registry == nil {
		registry = NewRegistry()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{
		registry: registry,
		fetcher:  fetcher,
		maxBytes: maxBytes,
		log:      log.Named("ingest"),
		metrics:  m,
	}
}

// IsURL reports whether source is an http(s) URL
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load reads source and extracts its text
func (l *Loader) Load(ctx context.Context, source string) (*Document, error) {
	var (
		name, contentType string
		data              []byte
		err               error
	)

	if IsURL(source) {
		if l.fetcher == nil {
			return nil, fmt.Errorf("%w: url sources are disabled", ErrUnsupportedType)
		}
		res, ferr := l.fetcher.FetchWithRetry(ctx, source)
		if ferr != nil {
			l.metrics.RecordExtractionError("fetch")
			return nil, fmt.Errorf("fetch %s: %w", source, ferr)
		}
		name, contentType, data = res.Name, res.ContentType, res.Body
	} else {
		name = source
		contentType = mime.TypeByExtension(filepath.Ext(source))
		data, err = l.readFile(source)
		if err != nil {
			return nil, err
		}
	}

	doc, err := l.registry.Extract(ctx, name, contentType, data)
	if err != nil {
		l.metrics.RecordExtractionError(documentKind(name, contentType))
		l.log.Warn(ctx, "Text extraction failed",
			logger.String("source", source),
			logger.Error(err))
		return nil, err
	}
	doc.Name = source

	l.log.Debug(ctx, "Document loaded",
		logger.String("source", source),
		logger.String("extractor", doc.Extractor),
		logger.Int64("bytes", doc.Size))
	return doc, nil
}

// readFile reads at most maxBytes from path
func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if l.maxBytes > 0 {
		r = io.LimitReader(f, l.maxBytes)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Extract reads a local file and returns its text using the built-in extractors
func Extract(ctx context.Context, path, contentType string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := NewRegistry().Extract(ctx, path, contentType, data)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// documentKind labels extraction failures for metrics
func documentKind(name, contentType string) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."); ext != "" && len(ext) <= 5 {
		return ext
	}
	if ct := mediaType(contentType); ct != "" {
		return ct
	}
	return "unknown"
}
