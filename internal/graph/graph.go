package graph

import (
	"fmt"
	"slices"

	"github.com/vk/qgraph/internal/dag"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/pipeline"
)

// Quantum is one unit of work. Inputs are predicted: expected to exist but
// not re-verified. Outputs are to be produced and carry no ID yet.
type Quantum struct {
	TaskLabel string
	// DataID is the quantum's grouping coordinate.
	DataID  dataset.DataCoordinate
	Inputs  []dataset.DatasetRef
	Outputs []dataset.DatasetRef
}

func (q Quantum) String() string {
	return fmt.Sprintf("%s%s", q.TaskLabel, q.DataID)
}

// TaskNodes is one task's quanta.
type TaskNodes struct {
	Task   pipeline.TaskDef
	Quanta []Quantum
}

func (tn TaskNodes) clone() TaskNodes {
	quanta := make([]Quantum, len(tn.Quanta))
	for i, q := range tn.Quanta {
		q.Inputs = slices.Clone(q.Inputs)
		q.Outputs = slices.Clone(q.Outputs)
		quanta[i] = q
	}
	return TaskNodes{Task: tn.Task, Quanta: quanta}
}

// QuantumGraph is the full build plan.
type QuantumGraph struct {
	tasks       []TaskNodes
	inputs      []dataset.DatasetType
	outputs     []dataset.DatasetType
	initInputs  []dataset.DatasetRef
	initOutputs []dataset.DatasetRef
	deps        *dag.Graph
}

// Parts groups what New needs.
type Parts struct {
	Tasks       []TaskNodes
	Inputs      []dataset.DatasetType
	Outputs     []dataset.DatasetType
	InitInputs  []dataset.DatasetRef
	InitOutputs []dataset.DatasetRef
	// Dependencies links task labels by exchanged dataset types. A nil
	// value yields a graph without task dependencies.
	Dependencies *dag.Graph
}

// New takes ownership of p and returns the graph.
func New(p Parts) *QuantumGraph {
	deps := p.Dependencies
	if deps == nil {
		deps = dag.New()
		for _, tn := range p.Tasks {
			deps.AddNode(tn.Task.Label)
		}
	}
	return &QuantumGraph{
		tasks:       p.Tasks,
		inputs:      p.Inputs,
		outputs:     p.Outputs,
		initInputs:  p.InitInputs,
		initOutputs: p.InitOutputs,
		deps:        deps,
	}
}

// Tasks returns the task partitions in pipeline order.
func (g *QuantumGraph) Tasks() []TaskNodes {
	out := make([]TaskNodes, len(g.tasks))
	for i, tn := range g.tasks {
		out[i] = tn.clone()
	}
	return out
}

// Task returns the partition for one task label.
func (g *QuantumGraph) Task(label string) (TaskNodes, bool) {
	for _, tn := range g.tasks {
		if tn.Task.Label == label {
			return tn.clone(), true
		}
	}
	return TaskNodes{}, false
}

// InputDatasetTypes returns the external inputs, sorted by name.
func (g *QuantumGraph) InputDatasetTypes() []dataset.DatasetType { return slices.Clone(g.inputs) }

// OutputDatasetTypes returns every type the run produces, sorted by name.
func (g *QuantumGraph) OutputDatasetTypes() []dataset.DatasetType { return slices.Clone(g.outputs) }

func (g *QuantumGraph) InitInputs() []dataset.DatasetRef  { return slices.Clone(g.initInputs) }
func (g *QuantumGraph) InitOutputs() []dataset.DatasetRef { return slices.Clone(g.initOutputs) }

// QuantaCount returns the number of quanta across all tasks.
func (g *QuantumGraph) QuantaCount() int {
	n := 0
	for _, tn := range g.tasks {
		n += len(tn.Quanta)
	}
	return n
}

// UpstreamTasks returns the labels of tasks producing an input of label.
func (g *QuantumGraph) UpstreamTasks(label string) ([]string, error) {
	return g.deps.Dependencies(label)
}

// DownstreamTasks returns the labels of tasks consuming an output of label.
func (g *QuantumGraph) DownstreamTasks(label string) ([]string, error) {
	return g.deps.Dependents(label)
}

// TaskOrder returns the task labels with every task after the tasks it
// consumes from. Tasks without a dependency between them keep pipeline order.
func (g *QuantumGraph) TaskOrder() ([]string, error) {
	return g.deps.TopologicalOrder()
}

// ExchangedTypes returns the dataset type names producer hands to consumer.
func (g *QuantumGraph) ExchangedTypes(producer, consumer string) []string {
	return g.deps.EdgeLabels(producer, consumer)
}
