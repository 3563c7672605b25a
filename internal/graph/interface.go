package graph

import "github.com/vk/qgraph/internal/dataset"

// View is the read side of a quantum graph, as consumed by printers and
// exporters.
type View interface {
	Tasks() []TaskNodes
	InputDatasetTypes() []dataset.DatasetType
	OutputDatasetTypes() []dataset.DatasetType
	InitInputs() []dataset.DatasetRef
	InitOutputs() []dataset.DatasetRef
	QuantaCount() int
	UpstreamTasks(label string) ([]string, error)
}

var _ View = (*QuantumGraph)(nil)
