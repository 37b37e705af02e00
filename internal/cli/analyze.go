package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/clausewise/internal/logger"
	"github.com/ppiankov/clausewise/internal/model"
	"github.com/ppiankov/clausewise/internal/pipeline"
)

var (
	outPath     string
	cmdTimeout  time.Duration
	noFooter    bool
	warmTimeout = 30 * time.Second
)

// session is the per-invocation service context
type session struct {
	cfg      *model.Config
	log      logger.Logger
	analyzer *pipeline.Analyzer
	renderer *pipeline.Renderer
}

func newSession() (*session, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return &session{
		cfg:      cfg,
		log:      log,
		analyzer: pipeline.NewAnalyzer(cfg, pipeline.WithLogger(log)),
		renderer: pipeline.NewRenderer(cfg.Output.IncludeFooter),
	}, nil
}

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url>",
	Short: "Run the full clause analysis on one contract",
	Long: `Analyze segments a contract into clauses and reports:
- The legal type of every clause and the clauses it references
- Per-clause risk with the factors behind each score
- Overall and compliance scores calibrated for the contract type
- Negotiation points and suggested fixes
- Obligations and rights with party, condition and deadline

Example:
  clausewise analyze nda.pdf
  clausewise analyze msa.docx --contract-type MSA --format markdown -o report.md
  clausewise analyze https://example.com/terms.html --llm-provider openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var clausesCmd = &cobra.Command{
	Use:   "clauses <file|url>",
	Short: "List typed clauses and their cross-references",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd, args[0], func(a *model.Analysis) any {
			return map[string]any{"source": a.Contract.Filename, "clauses": a.Clauses}
		})
	},
}

var riskCmd = &cobra.Command{
	Use:   "risk <file|url>",
	Short: "Score clause and contract risk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd, args[0], func(a *model.Analysis) any {
			return map[string]any{
				"source":     a.Contract.Filename,
				"risk":       a.Risk,
				"risk_items": a.RiskItems,
				"warnings":   a.Warnings,
			}
		})
	},
}

var obligationsCmd = &cobra.Command{
	Use:   "obligations <file|url>",
	Short: "List obligations and rights per party",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd, args[0], func(a *model.Analysis) any {
			return map[string]any{
				"source":      a.Contract.Filename,
				"obligations": a.Obligations,
				"rights":      a.Rights,
			}
		})
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata <file|url>",
	Short: "Extract dates, parties, governing law and definitions",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetadata,
}

func init() {
	for _, cmd := range []*cobra.Command{analyzeCmd, clausesCmd, riskCmd, obligationsCmd, metadataCmd} {
		rootCmd.AddCommand(cmd)
		cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default: stdout)")
		cmd.Flags().DurationVar(&cmdTimeout, "timeout", 2*time.Minute, "overall timeout")
	}
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, cmdTimeout)
	defer cancel()

	analysis, err := s.analyze(ctx, args[0])
	if err != nil {
		return err
	}

	if s.cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ %d clauses, %d obligations, %d rights\n",
			len(analysis.Clauses), len(analysis.Obligations), len(analysis.Rights))
		fmt.Fprintf(os.Stderr, "✓ Overall risk %.2f (%s), compliance %.2f\n",
			analysis.Risk.OverallScore, analysis.Risk.ContractType, analysis.Risk.ComplianceScore)
		for _, w := range analysis.Warnings {
			fmt.Fprintf(os.Stderr, "! %s\n", w)
		}
	}

	return writeOutput(outPath, func(w io.Writer) error {
		return s.renderer.Render(w, s.cfg.Output.Format, analysis)
	})
}

// runView analyzes the source and prints one slice of the result as JSON
func runView(cmd *cobra.Command, source string, view func(*model.Analysis) any) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, cmdTimeout)
	defer cancel()

	analysis, err := s.analyze(ctx, source)
	if err != nil {
		return err
	}
	return writeOutput(outPath, func(w io.Writer) error {
		return s.renderer.WriteJSON(w, view(analysis))
	})
}

func runMetadata(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, cmdTimeout)
	defer cancel()

	doc, err := s.analyzer.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load %s: %w", args[0], err)
	}
	metadata := s.analyzer.Metadata(doc.Text)
	metadata.FileSize = int(doc.Size)

	return writeOutput(outPath, func(w io.Writer) error {
		return s.renderer.WriteJSON(w, map[string]any{"source": doc.Name, "metadata": metadata})
	})
}

// analyze warms the model strategy, then runs the pipeline over source
func (s *session) analyze(ctx context.Context, source string) (*model.Analysis, error) {
	warmCtx, cancel := context.WithTimeout(ctx, warmTimeout)
	if err := s.analyzer.Warm(warmCtx); err != nil {
		s.log.Warn(ctx, "Model classifier unavailable, using rules",
			logger.String("provider", s.cfg.LLM.Provider),
			logger.Error(err))
	}
	cancel()

	analysis, err := s.analyzer.AnalyzeDocument(ctx, source, s.cfg.Risk.DefaultContractType)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", source, err)
	}
	return analysis, nil
}

// contextWithTimeout derives from the command context, which is unset
// when a RunE function is invoked directly
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}

// writeOutput writes to path, or stdout when path is empty or "-"
func writeOutput(path string, write func(io.Writer) error) (err error) {
	if path == "" || path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return write(f)
}
