package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/qgraph/internal/dataset"
)

// ErrGraphBuilder matches every error raised by the builder itself.
// Collaborator errors are returned as-is and do not match it.
var ErrGraphBuilder = errors.New("graph builder")

// GraphBuilderError reports a structural inconsistency found while building,
// such as a missing init-input.
type GraphBuilderError struct {
	Msg string
	Err error
}

func (e *GraphBuilderError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *GraphBuilderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGraphBuilder}
	}
	return []error{ErrGraphBuilder, e.Err}
}

func builderErrorf(format string, args ...any) error {
	return &GraphBuilderError{Msg: fmt.Sprintf(format, args...)}
}

// UserExpressionError reports a selection string that could not be used.
type UserExpressionError struct {
	Expr string
	Err  error
}

func (e *UserExpressionError) Error() string {
	return fmt.Sprintf("failed to parse user expression %q: %v", e.Expr, e.Err)
}

func (e *UserExpressionError) Unwrap() []error { return []error{ErrGraphBuilder, e.Err} }

// OutputExistsError reports a quantum whose outputs already exist in the
// output collection. Refs holds the conflicting, existing refs.
type OutputExistsError struct {
	TaskName string
	Refs     []dataset.DatasetRef
}

func (e *OutputExistsError) Error() string {
	refs := make([]string, len(e.Refs))
	for i, r := range e.Refs {
		refs[i] = r.String()
	}
	return fmt.Sprintf("output datasets already exist for task %s: %s", e.TaskName, strings.Join(refs, ", "))
}

func (e *OutputExistsError) Unwrap() error { return ErrGraphBuilder }
