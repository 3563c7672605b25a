// Package pipeline defines task definitions and the ordered pipeline the
// graph builder consumes.
package pipeline

import (
	"fmt"

	"github.com/vk/qgraph/internal/dataset"
)

// TaskClass is a loaded task implementation. It reports, for a given task
// configuration, the dataset types of each connection category.
type TaskClass interface {
	Name() string
	InputDatasetTypes(cfg TaskConfig) ([]dataset.DatasetType, error)
	OutputDatasetTypes(cfg TaskConfig) ([]dataset.DatasetType, error)
	InitInputDatasetTypes(cfg TaskConfig) ([]dataset.DatasetType, error)
	InitOutputDatasetTypes(cfg TaskConfig) ([]dataset.DatasetType, error)
}

// TaskConfig is the per-task configuration relevant to graph construction.
type TaskConfig struct {
	// QuantumDimensions names the dimensions that define one unit of work.
	QuantumDimensions []string
	// Connections maps connection names to dataset type names, overriding
	// the defaults declared by the task class.
	Connections map[string]string
}

// TaskDef is one pipeline stage. Class is nil until the task registry has
// resolved TaskName.
type TaskDef struct {
	Label    string
	TaskName string
	Class    TaskClass
	Config   TaskConfig
}

// Resolved reports whether the task class has been loaded.
func (t TaskDef) Resolved() bool { return t.Class != nil }

// WithClass returns a copy of t bound to class under its canonical name.
func (t TaskDef) WithClass(class TaskClass, canonicalName string) TaskDef {
	t.Class = class
	t.TaskName = canonicalName
	return t
}

func (t TaskDef) String() string {
	return fmt.Sprintf("%s (%s)", t.Label, t.TaskName)
}

// Pipeline is an ordered collection of task definitions with unique labels.
type Pipeline struct {
	tasks []TaskDef
}

// New validates and returns a pipeline holding tasks in the given order.
func New(tasks ...TaskDef) (*Pipeline, error) {
	seen := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		if t.Label == "" {
			return nil, fmt.Errorf("task #%d has an empty label", i)
		}
		if t.TaskName == "" && t.Class == nil {
			return nil, fmt.Errorf("task %q names no task class", t.Label)
		}
		if _, dup := seen[t.Label]; dup {
			return nil, fmt.Errorf("duplicate task label %q", t.Label)
		}
		seen[t.Label] = struct{}{}
	}
	return &Pipeline{tasks: append([]TaskDef(nil), tasks...)}, nil
}

// Tasks returns a copy of the task definitions in pipeline order.
func (p *Pipeline) Tasks() []TaskDef {
	return append([]TaskDef(nil), p.tasks...)
}

// Len returns the number of tasks.
func (p *Pipeline) Len() int { return len(p.tasks) }

// Task looks up a task definition by label.
func (p *Pipeline) Task(label string) (TaskDef, bool) {
	for _, t := range p.tasks {
		if t.Label == label {
			return t, true
		}
	}
	return TaskDef{}, false
}
