package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertQuantaCount checks that the graph built by the harness holds n
// quanta for the task labelled label.
func AssertQuantaCount(t *testing.T, result *HarnessResult, label string, n int) {
	t.Helper()

	require.NoError(t, result.Err)
	require.NotNil(t, result.App, "app was not created")
	qg := result.App.Graph()
	require.NotNil(t, qg, "no graph was built")

	tn, ok := qg.Task(label)
	require.True(t, ok, "task '%s' not found in graph", label)
	require.Len(t, tn.Quanta, n, "unexpected quanta count for task '%s'", label)
}
