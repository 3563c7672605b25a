// Package expr parses user selection expressions into predicates over data
// coordinates.
//
// The grammar is HCL expression syntax with a few SQL-flavored aliases:
// a single "=" compares for equality, and AND, OR and NOT (any case) are
// the boolean operators. NOT applies to everything up to the next AND or OR
// at the same nesting level, so "NOT visit = 1" negates the comparison.
// Bare identifiers name dimensions:
//
//	instrument = "HSC" AND visit = 1 AND (detector = 10 OR detector > 50)
package expr

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

const filename = "<query>"

// Parser turns a selection string into a Predicate.
type Parser interface {
	Parse(query string) (Predicate, error)
}

// SyntaxError reports a selection string the parser rejected.
type SyntaxError struct {
	Query string
	Diags hcl.Diagnostics
	Msg   string
}

func (e *SyntaxError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("invalid expression %q: %s", e.Query, e.Msg)
	}
	return fmt.Sprintf("invalid expression %q: %s", e.Query, e.Diags.Error())
}

// HCLParser is the default Parser.
type HCLParser struct{}

// NewParser returns the default parser.
func NewParser() *HCLParser { return &HCLParser{} }

// Parse implements Parser. An empty or all-whitespace query yields True.
func (HCLParser) Parse(query string) (Predicate, error) {
	if strings.TrimSpace(query) == "" {
		return True(), nil
	}

	src, diags := rewrite([]byte(query))
	if diags.HasErrors() {
		return nil, &SyntaxError{Query: query, Diags: diags}
	}
	e, diags := hclsyntax.ParseExpression(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, &SyntaxError{Query: query, Diags: diags}
	}

	a := analyze(e)
	if len(a.functions) > 0 {
		return nil, &SyntaxError{Query: query, Msg: fmt.Sprintf("function calls are not supported: %s", strings.Join(a.functions, ", "))}
	}
	if len(a.compound) > 0 {
		return nil, &SyntaxError{Query: query, Msg: fmt.Sprintf("%s is not a dimension name", a.compound[0])}
	}
	if err := checkBoolean(e, a.dimensions); err != nil {
		return nil, &SyntaxError{Query: query, Msg: err.Error()}
	}

	return &hclPredicate{query: query, expr: e, dims: a.dimensions}, nil
}

// rewrite maps the SQL-flavored aliases onto HCL operators, keeping the
// original spacing between tokens. NOT becomes "!(" and its parenthesis is
// closed before the next AND/OR at the same depth, before the bracket that
// ends that depth, or at the end of the query.
func rewrite(src []byte) ([]byte, hcl.Diagnostics) {
	tokens, diags := hclsyntax.LexExpression(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}

	var buf bytes.Buffer
	var nots []int // depths of NOTs still waiting for their closing parenthesis
	closeNots := func(depth int) {
		for len(nots) > 0 && nots[len(nots)-1] >= depth {
			buf.WriteByte(')')
			nots = nots[:len(nots)-1]
		}
	}

	depth, prev := 0, 0
	for _, tok := range tokens {
		start, end := tok.Range.Start.Byte, tok.Range.End.Byte
		if start > prev {
			buf.Write(src[prev:start])
		}
		prev = end

		switch {
		case tok.Type == hclsyntax.TokenOParen || tok.Type == hclsyntax.TokenOBrack || tok.Type == hclsyntax.TokenOBrace:
			depth++
		case tok.Type == hclsyntax.TokenCParen || tok.Type == hclsyntax.TokenCBrack || tok.Type == hclsyntax.TokenCBrace:
			closeNots(depth)
			depth--
		case tok.Type == hclsyntax.TokenEOF:
			closeNots(0)
		case isJunction(tok):
			closeNots(depth)
		case isKeyword(tok, "NOT"):
			buf.WriteString("!(")
			nots = append(nots, depth)
			continue
		}
		buf.Write(replacement(tok))
	}
	if prev < len(src) {
		buf.Write(src[prev:])
	}
	closeNots(0)
	return buf.Bytes(), nil
}

func isKeyword(tok hclsyntax.Token, word string) bool {
	return tok.Type == hclsyntax.TokenIdent && strings.EqualFold(string(tok.Bytes), word)
}

func isJunction(tok hclsyntax.Token) bool {
	return tok.Type == hclsyntax.TokenAnd || tok.Type == hclsyntax.TokenOr ||
		isKeyword(tok, "AND") || isKeyword(tok, "OR")
}

func replacement(tok hclsyntax.Token) []byte {
	switch tok.Type {
	case hclsyntax.TokenEqual:
		return []byte("==")
	case hclsyntax.TokenIdent:
		switch strings.ToUpper(string(tok.Bytes)) {
		case "AND":
			return []byte("&&")
		case "OR":
			return []byte("||")
		}
	}
	return tok.Bytes
}
