package expr

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Predicate restricts the data coordinates a catalog query returns.
type Predicate interface {
	// Matches evaluates the predicate against one coordinate. A coordinate
	// lacking a referenced dimension never matches.
	Matches(c dataset.DataCoordinate) (bool, error)
	// Dimensions lists the dimension names the predicate references, sorted.
	Dimensions() []string
	String() string
}

type truePredicate struct{}

// True returns the predicate that matches everything.
func True() Predicate { return truePredicate{} }

func (truePredicate) Matches(dataset.DataCoordinate) (bool, error) { return true, nil }
func (truePredicate) Dimensions() []string                         { return nil }
func (truePredicate) String() string                               { return "true" }

// IsTrivial reports whether p places no restriction.
func IsTrivial(p Predicate) bool {
	_, ok := p.(truePredicate)
	return p == nil || ok
}

type hclPredicate struct {
	query string
	expr  hclsyntax.Expression
	dims  []string
}

func (p *hclPredicate) Matches(c dataset.DataCoordinate) (bool, error) {
	for _, d := range p.dims {
		if _, ok := c.Value(d); !ok {
			return false, nil
		}
	}

	val, diags := p.expr.Value(&hcl.EvalContext{Variables: c.Variables()})
	if diags.HasErrors() {
		return false, fmt.Errorf("evaluating %q against %s: %s", p.query, c, diags.Error())
	}
	val, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("expression %q does not evaluate to a bool: %w", p.query, err)
	}
	if val.IsNull() || !val.IsKnown() {
		return false, nil
	}
	return val.True(), nil
}

func (p *hclPredicate) Dimensions() []string {
	return append([]string(nil), p.dims...)
}

func (p *hclPredicate) String() string { return p.query }
