package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/clausewise/internal/model"
)

// DocumentAnalyzer analyzes one contract source
type DocumentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, source, contractType string) (*model.Analysis, error)
}

// AnalyzeResult is the outcome for one source of a batch
type AnalyzeResult struct {
	Index    int
	Source   string
	Analysis *model.Analysis
	Error    error
	Elapsed  time.Duration
}

// BatchProcessor analyzes multiple contracts concurrently
type BatchProcessor struct {
	analyzer     DocumentAnalyzer
	concurrency  int
	contractType string
}

// NewBatchProcessor creates a processor that calibrates every report for
// contractType
func NewBatchProcessor(analyzer DocumentAnalyzer, concurrency int, contractType string) *BatchProcessor {
	return &BatchProcessor{
		analyzer:     analyzer,
		concurrency:  concurrency,
		contractType: contractType,
	}
}

// ProcessSources analyzes every source and returns results in input order.
// Sources never started because ctx ended are reported with ctx.Err().
// A panicking extractor fails only its own document.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*AnalyzeResult {
	out := make([]*AnalyzeResult, len(sources))
	if len(sources) == 0 {
		return out
	}

	pool := NewPool[*AnalyzeResult](ctx, b.concurrency)
	pool.Start()
	for i, source := range sources {
		if !pool.Submit(b.task(i, source)) {
			break
		}
	}
	for _, r := range pool.Wait() {
		out[r.Index] = r
	}

	for i, r := range out {
		if r != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &AnalyzeResult{Index: i, Source: sources[i], Error: err}
	}
	return out
}

func (b *BatchProcessor) task(index int, source string) Task[*AnalyzeResult] {
	return func(ctx context.Context) (res *AnalyzeResult) {
		res = &AnalyzeResult{Index: index, Source: source}
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				res.Analysis = nil
				res.Error = fmt.Errorf("analyzer panicked: %v", r)
			}
			res.Elapsed = time.Since(start)
		}()

		res.Analysis, res.Error = b.analyzer.AnalyzeDocument(ctx, source, b.contractType)
		return res
	}
}

// ReadSourcesFromFile reads sources from path, or stdin when path is "-"
func ReadSourcesFromFile(path string) ([]string, error) {
	if path == "-" {
		return ReadSources(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadSources(f)
}

// ReadSources reads one file path or URL per line. Blank lines and lines
// starting with # are skipped; duplicates keep their first position.
func ReadSources(r io.Reader) ([]string, error) {
	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		sources = append(sources, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan sources: %w", err)
	}
	return sources, nil
}
