package builder

import (
	"context"
	"slices"

	"github.com/vk/qgraph/internal/ctxlog"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/pipeline"
)

// TaskDatasetTypes are the four dataset type sets of one task.
type TaskDatasetTypes struct {
	Task        pipeline.TaskDef
	Inputs      []dataset.DatasetType
	Outputs     []dataset.DatasetType
	InitInputs  []dataset.DatasetType
	InitOutputs []dataset.DatasetType
}

// CollectDatasetTypes asks the task's class for its dataset types under the
// task's configuration. Errors from the class are returned unwrapped.
func CollectDatasetTypes(task pipeline.TaskDef) (TaskDatasetTypes, error) {
	if !task.Resolved() {
		return TaskDatasetTypes{}, builderErrorf("task %q has no loaded task class", task.Label)
	}
	td := TaskDatasetTypes{Task: task}
	var err error
	if td.Inputs, err = task.Class.InputDatasetTypes(task.Config); err != nil {
		return TaskDatasetTypes{}, err
	}
	if td.Outputs, err = task.Class.OutputDatasetTypes(task.Config); err != nil {
		return TaskDatasetTypes{}, err
	}
	if td.InitInputs, err = task.Class.InitInputDatasetTypes(task.Config); err != nil {
		return TaskDatasetTypes{}, err
	}
	if td.InitOutputs, err = task.Class.InitOutputDatasetTypes(task.Config); err != nil {
		return TaskDatasetTypes{}, err
	}
	return td, nil
}

// GlobalDatasetTypes are the pipeline-wide sets, each sorted by name.
type GlobalDatasetTypes struct {
	Inputs      []dataset.DatasetType
	Outputs     []dataset.DatasetType
	InitInputs  []dataset.DatasetType
	InitOutputs []dataset.DatasetType
}

// ReduceDatasetTypes computes the pipeline-wide sets and rewrites every
// task's types to their canonical instance, the first declaration of each
// name. Types produced in the pipeline are removed from the input sets.
func ReduceDatasetTypes(ctx context.Context, tasks []TaskDatasetTypes) GlobalDatasetTypes {
	logger := ctxlog.FromContext(ctx)
	canonical := make(map[string]dataset.DatasetType)
	canon := func(types []dataset.DatasetType) []dataset.DatasetType {
		out := make([]dataset.DatasetType, len(types))
		for i, t := range types {
			c, seen := canonical[t.Name]
			if !seen {
				canonical[t.Name] = t
				c = t
			} else if !slices.Equal(c.Dimensions, t.Dimensions) {
				logger.Warn("Dataset type declared with different dimensions; using the first declaration.",
					"dataset_type", t.Name, "canonical", c.Dimensions, "ignored", t.Dimensions)
			}
			out[i] = c
		}
		return out
	}

	inputs := make(map[string]struct{})
	outputs := make(map[string]struct{})
	initInputs := make(map[string]struct{})
	initOutputs := make(map[string]struct{})
	for i := range tasks {
		td := &tasks[i]
		td.Inputs = canon(td.Inputs)
		td.Outputs = canon(td.Outputs)
		td.InitInputs = canon(td.InitInputs)
		td.InitOutputs = canon(td.InitOutputs)
		addNames(inputs, td.Inputs)
		addNames(outputs, td.Outputs)
		addNames(initInputs, td.InitInputs)
		addNames(initOutputs, td.InitOutputs)
	}
	for name := range outputs {
		delete(inputs, name)
	}
	for name := range initOutputs {
		delete(initInputs, name)
	}

	return GlobalDatasetTypes{
		Inputs:      pick(canonical, inputs),
		Outputs:     pick(canonical, outputs),
		InitInputs:  pick(canonical, initInputs),
		InitOutputs: pick(canonical, initOutputs),
	}
}

func addNames(set map[string]struct{}, types []dataset.DatasetType) {
	for _, t := range types {
		set[t.Name] = struct{}{}
	}
}

func pick(canonical map[string]dataset.DatasetType, names map[string]struct{}) []dataset.DatasetType {
	out := make([]dataset.DatasetType, 0, len(names))
	for name := range names {
		out = append(out, canonical[name])
	}
	dataset.SortTypes(out)
	return out
}
