package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/clausewise/internal/model"
)

// stubAnalyzer answers per source: "fail" errors, "panic" panics
type stubAnalyzer struct {
	delay time.Duration
}

func (s *stubAnalyzer) AnalyzeDocument(ctx context.Context, source, contractType string) (*model.Analysis, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
	}
	switch {
	case strings.Contains(source, "fail"):
		return nil, errors.New("extraction failed")
	case strings.Contains(source, "panic"):
		panic("malformed xref table")
	}
	return &model.Analysis{
		Contract: model.Contract{ID: model.UnpersistedID, Filename: source},
		Risk:     &model.RiskReport{ContractType: contractType},
	}, nil
}

func TestBatchProcessor_ProcessSources(t *testing.T) {
	processor := NewBatchProcessor(&stubAnalyzer{delay: 5 * time.Millisecond}, 2, "NDA")

	sources := []string{"a.txt", "b.pdf", "http://example.com/c.docx"}
	results := processor.ProcessSources(context.Background(), sources)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Source, res.Error)
			continue
		}
		if res.Index != i || res.Source != sources[i] {
			t.Errorf("result %d out of order: %d %s", i, res.Index, res.Source)
		}
		if res.Analysis.Risk.ContractType != "NDA" {
			t.Errorf("expected contract type NDA, got %s", res.Analysis.Risk.ContractType)
		}
		if res.Elapsed <= 0 {
			t.Errorf("expected elapsed time for %s", res.Source)
		}
	}
}

func TestBatchProcessor_IsolatesFailures(t *testing.T) {
	processor := NewBatchProcessor(&stubAnalyzer{}, 2, "MSA")

	results := processor.ProcessSources(context.Background(), []string{"ok.txt", "fail.pdf", "panic.pdf", "ok2.txt"})

	if results[0].Error != nil || results[3].Error != nil {
		t.Errorf("healthy documents failed: %v, %v", results[0].Error, results[3].Error)
	}
	if results[1].Error == nil || results[1].Analysis != nil {
		t.Errorf("expected error without analysis, got %v / %v", results[1].Error, results[1].Analysis)
	}
	if results[2].Error == nil || !strings.Contains(results[2].Error.Error(), "malformed xref table") {
		t.Errorf("expected recovered panic, got %v", results[2].Error)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&stubAnalyzer{}, 2, "")

	if results := processor.ProcessSources(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(&stubAnalyzer{delay: time.Second}, 1, "")
	results := processor.ProcessSources(ctx, []string{"a.txt", "b.txt", "c.txt"})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, res := range results {
		if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("expected context.Canceled for %s, got %v", res.Source, res.Error)
		}
	}
}

func TestReadSources(t *testing.T) {
	input := `contracts/nda.pdf
# comment
https://example.com/msa.docx

contracts/nda.pdf
   contracts/lease.txt   `

	sources, err := ReadSources(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadSources failed: %v", err)
	}

	expected := []string{"contracts/nda.pdf", "https://example.com/msa.docx", "contracts/lease.txt"}
	if len(sources) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, sources)
	}
	for i, s := range sources {
		if s != expected[i] {
			t.Errorf("index %d: expected %s, got %s", i, expected[i], s)
		}
	}
}

func TestReadSourcesFromFile_NonExistent(t *testing.T) {
	if _, err := ReadSourcesFromFile("non_existent_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
