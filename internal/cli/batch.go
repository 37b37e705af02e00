package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clausewise/internal/pipeline"
	"github.com/ppiankov/clausewise/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple contracts from a list file in parallel",
	Long: `Batch analyzes many contracts concurrently:
- Read file paths or URLs from the input file (one per line, # for comments, - for stdin)
- Analyze documents in parallel with a configurable worker count
- Write a JSON and a Markdown report for each document

Example:
  clausewise batch contracts.txt
  clausewise batch contracts.txt --concurrency 8 --output-dir ./reports
  clausewise batch contracts.txt --contract-type MSA --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.batch_workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./clausewise-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	s, err := newSession()
	if err != nil {
		return err
	}
	workers := concurrency
	if workers <= 0 {
		workers = s.cfg.Concurrency.BatchWorkers
	}

	sources, err := worker.ReadSourcesFromFile(file)
	if err != nil {
		return fmt.Errorf("read sources: %w", err)
	}

	printBanner(os.Stderr, "Clausewise Batch Analysis")
	summary := [][2]string{
		{"Input file", fmt.Sprintf("%s (%d documents)", file, len(sources))},
		{"Workers", fmt.Sprint(workers)},
		{"Contract type", strings.ToUpper(s.cfg.Risk.DefaultContractType)},
		{"Output dir", outputDir},
		{"Timeout", batchTimeout.String()},
	}
	if s.cfg.LLM.Provider != "" {
		summary = append(summary, [2]string{"Model", s.cfg.LLM.Provider + "/" + s.cfg.LLM.Model})
	}
	printFields(os.Stderr, summary)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, cancel := contextWithTimeout(cmd, batchTimeout)
	defer cancel()

	if err := s.analyzer.Warm(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "! Model classifier unavailable, using rules: %v\n", err)
	}

	processor := worker.NewBatchProcessor(s.analyzer, workers, s.cfg.Risk.DefaultContractType)
	results := processor.ProcessSources(ctx, sources)

	succeeded := 0
	failed := 0

	for _, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		base := fmt.Sprintf("%03d-%s", result.Index+1, sanitizeFilename(result.Source))
		jsonPath := filepath.Join(outputDir, base+".json")
		mdPath := filepath.Join(outputDir, base+".md")

		if err := s.renderer.RenderFile(jsonPath, pipeline.FormatJSON, result.Analysis); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Source, err)
			continue
		}
		if err := s.renderer.RenderFile(mdPath, pipeline.FormatMarkdown, result.Analysis); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Source, err)
			continue
		}

		succeeded++
		fmt.Fprintf(os.Stderr, "✓ %s (%d clauses, risk %.2f, %s)\n",
			result.Source, len(result.Analysis.Clauses), result.Analysis.Risk.OverallScore,
			result.Elapsed.Round(time.Millisecond))
	}

	printBanner(os.Stderr, "Batch Complete")
	printFields(os.Stderr, [][2]string{
		{"Total", fmt.Sprintf("%d documents", len(results))},
		{"Success", fmt.Sprint(succeeded)},
		{"Failures", fmt.Sprint(failed)},
		{"Output", outputDir},
	})

	if failed > 0 && succeeded == 0 {
		return fmt.Errorf("all %d documents failed", failed)
	}
	return nil
}

const bannerRule = "═══════════════════════════════════════════════════════════"

func printBanner(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n  %s\n%s\n\n", bannerRule, title, bannerRule)
}

// printFields writes aligned "name: value" rows followed by a blank line
func printFields(w io.Writer, rows [][2]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "  %s:\t%s\n", r[0], r[1])
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename turns a path or URL into a safe report file stem
func sanitizeFilename(s string) string {
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, filepath.Ext(s))
	s = filenameReplacer.Replace(s)
	if s == "" || s == "." || s == ".." {
		s = "document"
	}

	// Limit length
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}

	return s
}
