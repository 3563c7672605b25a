package testutil

import (
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/pipeline"
	"github.com/vk/qgraph/internal/registry"
)

// SimpleModule is a test helper for easily creating a module that registers
// a single Go task class.
type SimpleModule struct {
	Class   pipeline.TaskClass
	Version string
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.Class != nil {
		r.Register(m.Class, m.Version)
	}
}

// StaticClass is a task class whose dataset types do not depend on the task
// configuration.
type StaticClass struct {
	ClassName   string
	Inputs      []dataset.DatasetType
	Outputs     []dataset.DatasetType
	InitInputs  []dataset.DatasetType
	InitOutputs []dataset.DatasetType
}

var _ pipeline.TaskClass = (*StaticClass)(nil)

func (c *StaticClass) Name() string { return c.ClassName }

func (c *StaticClass) InputDatasetTypes(pipeline.TaskConfig) ([]dataset.DatasetType, error) {
	return c.Inputs, nil
}

func (c *StaticClass) OutputDatasetTypes(pipeline.TaskConfig) ([]dataset.DatasetType, error) {
	return c.Outputs, nil
}

func (c *StaticClass) InitInputDatasetTypes(pipeline.TaskConfig) ([]dataset.DatasetType, error) {
	return c.InitInputs, nil
}

func (c *StaticClass) InitOutputDatasetTypes(pipeline.TaskConfig) ([]dataset.DatasetType, error) {
	return c.InitOutputs, nil
}
