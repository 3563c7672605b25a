package graph

import (
	"encoding/json"

	"github.com/vk/qgraph/internal/dataset"
)

type refJSON struct {
	DatasetType string                 `json:"dataset_type"`
	DataID      dataset.DataCoordinate `json:"data_id"`
	ID          *int64                 `json:"id,omitempty"`
}

type quantumJSON struct {
	DataID  dataset.DataCoordinate `json:"data_id"`
	Inputs  []refJSON              `json:"inputs"`
	Outputs []refJSON              `json:"outputs"`
}

type taskJSON struct {
	Label    string        `json:"label"`
	TaskName string        `json:"task_name"`
	Upstream []string      `json:"upstream,omitempty"`
	Quanta   []quantumJSON `json:"quanta"`
}

type graphJSON struct {
	InputDatasetTypes  []string   `json:"input_dataset_types"`
	OutputDatasetTypes []string   `json:"output_dataset_types"`
	InitInputs         []refJSON  `json:"init_inputs"`
	InitOutputs        []refJSON  `json:"init_outputs"`
	TaskOrder          []string   `json:"task_order"`
	Tasks              []taskJSON `json:"tasks"`
}

func refsJSON(refs []dataset.DatasetRef) []refJSON {
	out := make([]refJSON, len(refs))
	for i, r := range refs {
		out[i] = refJSON{DatasetType: r.Type.Name, DataID: r.DataID}
		if r.Exists() {
			id := int64(r.ID)
			out[i].ID = &id
		}
	}
	return out
}

// MarshalJSON renders the graph for inspection; it is not a persistence
// format.
func (g *QuantumGraph) MarshalJSON() ([]byte, error) {
	order, err := g.TaskOrder()
	if err != nil {
		return nil, err
	}
	doc := graphJSON{
		TaskOrder:          order,
		InputDatasetTypes:  dataset.TypeNames(g.inputs),
		OutputDatasetTypes: dataset.TypeNames(g.outputs),
		InitInputs:         refsJSON(g.initInputs),
		InitOutputs:        refsJSON(g.initOutputs),
		Tasks:              make([]taskJSON, 0, len(g.tasks)),
	}
	for _, tn := range g.tasks {
		upstream, err := g.UpstreamTasks(tn.Task.Label)
		if err != nil {
			return nil, err
		}
		tj := taskJSON{
			Label:    tn.Task.Label,
			TaskName: tn.Task.TaskName,
			Upstream: upstream,
			Quanta:   make([]quantumJSON, 0, len(tn.Quanta)),
		}
		for _, q := range tn.Quanta {
			tj.Quanta = append(tj.Quanta, quantumJSON{DataID: q.DataID, Inputs: refsJSON(q.Inputs), Outputs: refsJSON(q.Outputs)})
		}
		doc.Tasks = append(doc.Tasks, tj)
	}
	return json.Marshal(doc)
}
