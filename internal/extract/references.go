package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/clausewise/internal/logger"
	"github.com/ppiankov/clausewise/internal/metrics"
	"github.com/ppiankov/clausewise/internal/model"
)

// referencePattern is case-sensitive: "section 2" in running prose is not a citation
var referencePattern = regexp.MustCompile(`(?:Section|Clause)\s+(\d+(?:\.\d+)?)[a-z]?`)

// FindReferences returns the raw number tokens cited in text ("5.2", "3")
func FindReferences(text string) []string {
	matches := referencePattern.FindAllStringSubmatch(text, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, m[1])
	}
	return tokens
}

// Resolver links clauses to the clauses they cite
type Resolver struct {
	log     logger.Logger
	metrics *metrics.Manager
}

// NewResolver creates a resolver; a nil logger discards warnings
func NewResolver(log logger.Logger, m *metrics.Manager) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{log: log, metrics: m}
}

// TargetID maps a reference token to a zero-based clause id.
// "Section N" and "Section N.M" both map to id N-1. This assumes clause ids
// line up with top-level human numbering, which only approximately holds
// for multi-level numbering.
func TargetID(token string) (int, bool) {
	lead := token
	if idx := strings.IndexByte(token, '.'); idx >= 0 {
		lead = token[:idx]
	}
	n, err := strconv.Atoi(lead)
	if err != nil {
		return 0, false
	}
	return n - 1, true
}

// BuildGraph enriches each clause's References with resolved targets.
// The new lists are collected first and assigned after the pass, so the
// clause being scanned is never mutated mid-iteration. Existing entries
// are kept and never duplicated, which makes the operation idempotent.
func (r *Resolver) BuildGraph(ctx context.Context, clauses []model.Clause) {
	index := make(map[int]struct{}, len(clauses))
	for _, c := range clauses {
		index[c.ID] = struct{}{}
	}

	resolved := make([][]int, len(clauses))
	for i, c := range clauses {
		refs := make([]int, 0, len(c.References))
		seen := make(map[int]bool, len(c.References))
		for _, id := range c.References {
			if !seen[id] {
				seen[id] = true
				refs = append(refs, id)
			}
		}

		for _, token := range FindReferences(c.Text) {
			target, ok := TargetID(token)
			if !ok {
				continue
			}
			if target == c.ID {
				continue
			}
			if _, exists := index[target]; !exists {
				r.log.Warn(ctx, "unresolved clause reference dropped",
					logger.Int("clause_id", c.ID),
					logger.String("reference", token),
					logger.Int("target_id", target),
				)
				r.metrics.RecordUnresolvedReference()
				continue
			}
			if seen[target] {
				continue
			}
			seen[target] = true
			refs = append(refs, target)
		}

		resolved[i] = refs
	}

	for i := range clauses {
		clauses[i].References = resolved[i]
	}
}
