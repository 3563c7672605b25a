package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("keeps order", func(t *testing.T) {
		p, err := New(
			TaskDef{Label: "isr", TaskName: "isr"},
			TaskDef{Label: "calibrate", TaskName: "calibrate"},
		)
		require.NoError(t, err)
		require.Equal(t, 2, p.Len())
		tasks := p.Tasks()
		assert.Equal(t, "isr", tasks[0].Label)
		assert.Equal(t, "calibrate", tasks[1].Label)
	})

	t.Run("rejects duplicate labels", func(t *testing.T) {
		_, err := New(TaskDef{Label: "isr", TaskName: "isr"}, TaskDef{Label: "isr", TaskName: "other"})
		assert.ErrorContains(t, err, `duplicate task label "isr"`)
	})

	t.Run("rejects empty label", func(t *testing.T) {
		_, err := New(TaskDef{TaskName: "isr"})
		assert.ErrorContains(t, err, "empty label")
	})

	t.Run("rejects missing class", func(t *testing.T) {
		_, err := New(TaskDef{Label: "isr"})
		assert.ErrorContains(t, err, "names no task class")
	})
}

func TestTasksReturnsCopy(t *testing.T) {
	p, err := New(TaskDef{Label: "isr", TaskName: "isr"})
	require.NoError(t, err)

	tasks := p.Tasks()
	tasks[0].TaskName = "mutated"

	got, ok := p.Task("isr")
	require.True(t, ok)
	assert.Equal(t, "isr", got.TaskName)

	_, ok = p.Task("missing")
	assert.False(t, ok)
}

func TestWithClassDoesNotMutateReceiver(t *testing.T) {
	orig := TaskDef{Label: "isr", TaskName: "isr"}
	resolved := orig.WithClass(nil, "isr@1.0.0")

	assert.Equal(t, "isr", orig.TaskName)
	assert.Equal(t, "isr@1.0.0", resolved.TaskName)
	assert.False(t, orig.Resolved())
}
