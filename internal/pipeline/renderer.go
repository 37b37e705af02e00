package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/clausewise/internal/model"
)

// Output formats
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Renderer writes analyses as JSON or Markdown
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// NormalizeFormat maps format aliases ("md") to a supported format
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", format)
}

// WriteJSON writes v as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Render writes the analysis in the given format
func (r *Renderer) Render(w io.Writer, format string, a *model.Analysis) error {
	format, err := NormalizeFormat(format)
	if err != nil {
		return err
	}
	if format == FormatMarkdown {
		_, err := io.WriteString(w, r.Markdown(a))
		return err
	}
	return r.WriteJSON(w, a)
}

// RenderFile writes the analysis to path, creating or truncating it
func (r *Renderer) RenderFile(path, format string, a *model.Analysis) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return r.Render(f, format, a)
}

// Markdown renders a human-readable report
func (r *Renderer) Markdown(a *model.Analysis) string {
	var b strings.Builder

	title := a.Contract.Filename
	if title == "" {
		title = a.RequestID
	}
	fmt.Fprintf(&b, "# Contract Analysis: %s\n\n", title)

	fmt.Fprintf(&b, "- **Request ID:** %s\n", a.RequestID)
	if a.Risk != nil {
		fmt.Fprintf(&b, "- **Contract type:** %s\n", orDash(a.Risk.ContractType))
		fmt.Fprintf(&b, "- **Overall risk:** %.2f (raw %.2f)\n", a.Risk.OverallScore, a.Risk.RawScore)
		fmt.Fprintf(&b, "- **Compliance score:** %.2f\n", a.Risk.ComplianceScore)
	}
	fmt.Fprintf(&b, "- **Clauses:** %d\n", len(a.Clauses))
	fmt.Fprintf(&b, "- **Words:** %d, **Pages:** %d\n", a.Contract.Metadata.WordCount, a.Contract.Metadata.PageCount)
	if len(a.Contract.Metadata.Parties) > 0 {
		fmt.Fprintf(&b, "- **Parties:** %s\n", strings.Join(a.Contract.Metadata.Parties, "; "))
	}
	if gl := a.Contract.Metadata.GoverningLaw; gl != nil {
		fmt.Fprintf(&b, "- **Governing law:** %s\n", *gl)
	}
	b.WriteString("\n")

	if len(a.Warnings) > 0 {
		b.WriteString("> **Warnings**\n")
		for _, w := range a.Warnings {
			fmt.Fprintf(&b, "> - %s\n", w)
		}
		b.WriteString("\n")
	}

	if len(a.RiskItems) > 0 {
		b.WriteString("## Risk Items\n\n")
		b.WriteString("| Priority | Clause | Category | Score | Suggested fix |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, it := range a.RiskItems {
			clause := "-"
			if it.ClauseID >= 0 {
				clause = fmt.Sprintf("%d", it.ClauseID)
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %.2f | %s |\n",
				it.Priority, clause, cell(it.Category), it.Score, cell(it.SuggestedFix))
		}
		b.WriteString("\n")
	}

	if a.Risk != nil && len(a.Risk.NegotiationPoints) > 0 {
		b.WriteString("## Negotiation Points\n\n")
		for _, p := range a.Risk.NegotiationPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}

	if a.Risk != nil && len(a.Risk.Suggestions) > 0 {
		b.WriteString("## Suggestions\n\n")
		for _, s := range a.Risk.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Clauses\n\n")
	b.WriteString("| ID | Marker | Type | Risk | Refs | Text |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, c := range a.Clauses {
		refs := make([]string, len(c.References))
		for i, ref := range c.References {
			refs[i] = fmt.Sprintf("%d", ref)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %.2f | %s | %s |\n",
			c.ID, orDash(cell(c.Marker)), c.Type, c.RiskScore, orDash(strings.Join(refs, ", ")), cell(truncate(c.Text, 120)))
	}
	b.WriteString("\n")

	if len(a.Obligations) > 0 {
		b.WriteString("## Obligations\n\n")
		b.WriteString("| Clause | Party | Action | Condition | Due |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, o := range a.Obligations {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
				o.ClauseID, cell(o.Party), cell(o.Action), cell(o.Condition), cell(o.DueDate))
		}
		b.WriteString("\n")
	}

	if len(a.Rights) > 0 {
		b.WriteString("## Rights\n\n")
		b.WriteString("| Clause | Party | Action | Condition | Due |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, rt := range a.Rights {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
				rt.ClauseID, cell(rt.Party), cell(rt.Action), cell(rt.Condition), cell(rt.DueDate))
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Generated by clausewise. Automated clause analysis is not legal advice._\n")
	}

	return b.String()
}

// cell makes text safe inside a Markdown table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.Join(strings.Fields(s), " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
