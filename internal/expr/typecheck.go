package expr

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

var errNotBoolean = errors.New("expression is not a boolean condition")

// checkBoolean rejects expressions that can never select rows: the top level
// must be a comparison, a boolean literal, or AND/OR/NOT over those. The
// expression is then evaluated with every dimension unknown, which catches
// operand type errors such as visit > "abc".
func checkBoolean(e hclsyntax.Expression, dims []string) error {
	if !isBoolean(e) {
		return errNotBoolean
	}

	vars := make(map[string]cty.Value, len(dims))
	for _, d := range dims {
		vars[d] = cty.UnknownVal(cty.DynamicPseudoType)
	}
	val, diags := e.Value(&hcl.EvalContext{Variables: vars})
	if diags.HasErrors() {
		return fmt.Errorf("%s", diags.Error())
	}
	if t := val.Type(); t != cty.Bool && t != cty.DynamicPseudoType {
		return fmt.Errorf("%w: result is %s", errNotBoolean, t.FriendlyName())
	}
	return nil
}

func isBoolean(e hclsyntax.Expression) bool {
	switch e := e.(type) {
	case *hclsyntax.ParenthesesExpr:
		return isBoolean(e.Expression)
	case *hclsyntax.LiteralValueExpr:
		return e.Val.Type() == cty.Bool
	case *hclsyntax.UnaryOpExpr:
		return e.Op == hclsyntax.OpLogicalNot && isBoolean(e.Val)
	case *hclsyntax.BinaryOpExpr:
		switch e.Op {
		case hclsyntax.OpLogicalAnd, hclsyntax.OpLogicalOr:
			return isBoolean(e.LHS) && isBoolean(e.RHS)
		case hclsyntax.OpEqual, hclsyntax.OpNotEqual,
			hclsyntax.OpGreaterThan, hclsyntax.OpGreaterThanOrEqual,
			hclsyntax.OpLessThan, hclsyntax.OpLessThanOrEqual:
			return true
		}
	}
	return false
}
