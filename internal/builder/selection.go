package builder

import (
	"fmt"
	"strings"

	"github.com/vk/qgraph/internal/dimension"
	"github.com/vk/qgraph/internal/expr"
)

// SelectionCompiler turns a user query into a catalog predicate.
type SelectionCompiler struct {
	parser   expr.Parser
	universe *dimension.Universe
}

// NewSelectionCompiler returns a compiler validating dimension names
// against universe.
func NewSelectionCompiler(parser expr.Parser, universe *dimension.Universe) *SelectionCompiler {
	return &SelectionCompiler{parser: parser, universe: universe}
}

// Compile returns the trivial predicate for an empty query. Any parse or
// validation failure is a *UserExpressionError.
func (s *SelectionCompiler) Compile(query string) (expr.Predicate, error) {
	if strings.TrimSpace(query) == "" {
		return expr.True(), nil
	}
	pred, err := s.parser.Parse(query)
	if err != nil {
		return nil, &UserExpressionError{Expr: query, Err: err}
	}
	for _, d := range pred.Dimensions() {
		if !s.universe.Has(d) {
			return nil, &UserExpressionError{Expr: query, Err: fmt.Errorf("unknown dimension %q", d)}
		}
	}
	return pred, nil
}
