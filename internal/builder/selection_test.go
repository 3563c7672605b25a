package builder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/qgraph/internal/expr"
)

type failingParser struct{ err error }

func (p failingParser) Parse(string) (expr.Predicate, error) { return nil, p.err }

func TestSelectionCompiler(t *testing.T) {
	c := NewSelectionCompiler(expr.NewParser(), testUniverse(t))

	t.Run("empty query is unrestricted", func(t *testing.T) {
		pred, err := c.Compile("  ")
		require.NoError(t, err)
		assert.True(t, expr.IsTrivial(pred))
	})

	t.Run("valid query", func(t *testing.T) {
		pred, err := c.Compile("visit = 1 AND detector > 5")
		require.NoError(t, err)
		ok, err := pred.Matches(dataID(t, 1, 10))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("parser failure is wrapped", func(t *testing.T) {
		cause := errors.New("boom")
		_, err := NewSelectionCompiler(failingParser{err: cause}, testUniverse(t)).Compile("visit = 1")
		var userErr *UserExpressionError
		require.True(t, errors.As(err, &userErr))
		assert.ErrorIs(t, err, cause)
		assert.EqualError(t, err, `failed to parse user expression "visit = 1": boom`)
	})
}
