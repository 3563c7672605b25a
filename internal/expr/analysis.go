package expr

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// TraversalKey generates a stable, canonical string representation for an
// hcl.Traversal, suitable for use as a map key.
func TraversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// analysis is what Parse learns about an expression before accepting it.
// All slices are sorted and free of duplicates.
type analysis struct {
	dimensions []string
	functions  []string
	// compound holds references that are more than a bare name, such as
	// visit.id.
	compound []string
}

func analyze(e hclsyntax.Expression) analysis {
	dims := make(map[string]struct{})
	funcs := make(map[string]struct{})
	compound := make(map[string]struct{})

	for _, tr := range e.Variables() {
		if len(tr) == 1 {
			dims[tr.RootName()] = struct{}{}
		} else {
			compound[TraversalKey(tr)] = struct{}{}
		}
	}
	hclsyntax.VisitAll(e, func(n hclsyntax.Node) hcl.Diagnostics {
		if call, ok := n.(*hclsyntax.FunctionCallExpr); ok {
			funcs[call.Name] = struct{}{}
		}
		return nil
	})

	return analysis{
		dimensions: sortedKeys(dims),
		functions:  sortedKeys(funcs),
		compound:   sortedKeys(compound),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
