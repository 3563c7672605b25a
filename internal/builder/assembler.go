package builder

import (
	"context"
	"sort"

	"github.com/vk/qgraph/internal/catalog"
	"github.com/vk/qgraph/internal/ctxlog"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/dimension"
	"github.com/vk/qgraph/internal/graph"
)

// QuantumAssembler groups buffered rows into one task's quanta.
type QuantumAssembler struct {
	universe     *dimension.Universe
	skipExisting bool
}

// NewQuantumAssembler returns an assembler applying the given existence policy.
func NewQuantumAssembler(universe *dimension.Universe, skipExisting bool) *QuantumAssembler {
	return &QuantumAssembler{universe: universe, skipExisting: skipExisting}
}

// refSet maps dataset type name to coordinate key to ref.
type refSet map[string]map[string]dataset.DatasetRef

func (s refSet) add(ref dataset.DatasetRef) {
	byKey := s[ref.Type.Name]
	if byKey == nil {
		byKey = make(map[string]dataset.DatasetRef)
		s[ref.Type.Name] = byKey
	}
	byKey[ref.DataID.Key()] = ref
}

// flatten returns every ref ordered by type name, then coordinate key.
func (s refSet) flatten() []dataset.DatasetRef {
	var out []dataset.DatasetRef
	for _, byKey := range s {
		for _, ref := range byKey {
			out = append(out, ref)
		}
	}
	dataset.SortRefs(out)
	return out
}

type quantumGroup struct {
	dataID  dataset.DataCoordinate
	inputs  refSet
	outputs refSet
}

// Assemble builds the quanta of one task. Groups whose outputs all exist are
// skipped when skipExisting is set; any other existing output is an
// *OutputExistsError. It also returns the number of skipped groups. The
// result depends only on the rows' content, not their order.
func (a *QuantumAssembler) Assemble(ctx context.Context, td TaskDatasetTypes, rows []catalog.Row) (graph.TaskNodes, int, error) {
	logger := ctxlog.FromContext(ctx).With("task", td.Task.Label)
	task := td.Task

	links, err := a.universe.LinkSet(task.Config.QuantumDimensions)
	if err != nil {
		return graph.TaskNodes{}, 0, &GraphBuilderError{Msg: "task " + task.Label + ": resolving quantum dimensions", Err: err}
	}
	logger.Debug("Resolved quantum dimension links.", "links", links)

	groups := make(map[string]*quantumGroup)
	for _, row := range rows {
		key, err := row.DataID.TupleKey(links)
		if err != nil {
			return graph.TaskNodes{}, 0, &GraphBuilderError{Msg: "task " + task.Label + ": grouping row", Err: err}
		}
		g, ok := groups[key]
		if !ok {
			dataID, _ := row.DataID.Project(links)
			g = &quantumGroup{dataID: dataID, inputs: make(refSet), outputs: make(refSet)}
			groups[key] = g
		}
		for _, t := range td.Inputs {
			ref, ok := row.Refs[t.Name]
			if !ok {
				return graph.TaskNodes{}, 0, builderErrorf("task %s: catalog row %s has no reference for input %q", task.Label, row.DataID, t.Name)
			}
			g.inputs.add(ref)
		}
		for _, t := range td.Outputs {
			ref, ok := row.Refs[t.Name]
			if !ok {
				return graph.TaskNodes{}, 0, builderErrorf("task %s: catalog row %s has no reference for output %q", task.Label, row.DataID, t.Name)
			}
			g.outputs.add(ref)
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	quanta := make([]graph.Quantum, 0, len(keys))
	skipped := 0
	for _, key := range keys {
		g := groups[key]
		outputs := g.outputs.flatten()

		var existing []dataset.DatasetRef
		for _, ref := range outputs {
			if ref.Exists() {
				existing = append(existing, ref)
			}
		}
		// A quantum without outputs counts as fully produced.
		if a.skipExisting && len(existing) == len(outputs) {
			logger.Debug("All outputs already exist, skipping quantum.", "data_id", g.dataID.String())
			skipped++
			continue
		}
		if len(existing) > 0 {
			return graph.TaskNodes{}, 0, &OutputExistsError{TaskName: task.TaskName, Refs: existing}
		}

		quanta = append(quanta, graph.Quantum{
			TaskLabel: task.Label,
			DataID:    g.dataID,
			Inputs:    g.inputs.flatten(),
			Outputs:   outputs,
		})
	}

	logger.Debug("Assembled task quanta.", "quanta", len(quanta), "skipped", skipped)
	return graph.TaskNodes{Task: task, Quanta: quanta}, skipped, nil
}
