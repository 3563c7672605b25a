package builder

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/qgraph/internal/catalog"
	"github.com/vk/qgraph/internal/catalog/memcatalog"
	"github.com/vk/qgraph/internal/config"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/dimension"
	"github.com/vk/qgraph/internal/expr"
	"github.com/vk/qgraph/internal/graph"
	"github.com/vk/qgraph/internal/pipeline"
	"github.com/vk/qgraph/internal/registry"
)

var visitDetector = []string{"visit", "detector"}

// countingCatalog records how often the builder reaches the catalog.
type countingCatalog struct {
	catalog.Catalog
	selects int
	finds   int
}

func (c *countingCatalog) SelectDimensions(ctx context.Context, origin catalog.OriginInfo, pred expr.Predicate, inputs, outputs []dataset.DatasetType) iter.Seq2[catalog.Row, error] {
	c.selects++
	return c.Catalog.SelectDimensions(ctx, origin, pred, inputs, outputs)
}

func (c *countingCatalog) Find(ctx context.Context, collection string, t dataset.DatasetType, dataID dataset.DataCoordinate) (dataset.DatasetRef, bool, error) {
	c.finds++
	return c.Catalog.Find(ctx, collection, t, dataID)
}

func testUniverse(t *testing.T) *dimension.Universe {
	t.Helper()
	u, err := dimension.NewUniverse(dimension.Dimension{Name: "visit"}, dimension.Dimension{Name: "detector"})
	require.NoError(t, err)
	return u
}

func conns(dims []string, names ...string) []*config.ConnectionDefinition {
	out := make([]*config.ConnectionDefinition, len(names))
	for i, n := range names {
		out[i] = &config.ConnectionDefinition{Name: n, Dimensions: dims}
	}
	return out
}

type classSpec struct {
	name                                     string
	inputs, outputs, initInputs, initOutputs []string
	dims                                     []string
}

func newRegistry(t *testing.T, specs ...classSpec) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, s := range specs {
		dims := s.dims
		if dims == nil {
			dims = visitDetector
		}
		require.NoError(t, r.Add(registry.NewManifestClass(&config.TaskClassDefinition{
			Name:        s.name,
			Inputs:      conns(dims, s.inputs...),
			Outputs:     conns(dims, s.outputs...),
			InitInputs:  conns(nil, s.initInputs...),
			InitOutputs: conns(nil, s.initOutputs...),
		}), ""))
	}
	return r
}

func newPipeline(t *testing.T, tasks ...pipeline.TaskDef) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.New(tasks...)
	require.NoError(t, err)
	return p
}

func task(label string, quantumDims ...string) pipeline.TaskDef {
	return pipeline.TaskDef{Label: label, TaskName: label, Config: pipeline.TaskConfig{QuantumDimensions: quantumDims}}
}

func dataID(t *testing.T, visit, detector int) dataset.DataCoordinate {
	t.Helper()
	c, err := dataset.CoordinateFromMap(map[string]any{"visit": visit, "detector": detector})
	require.NoError(t, err)
	return c
}

func dt(name string) dataset.DatasetType {
	return dataset.NewDatasetType(name, visitDetector...)
}

// twoDetectorCatalog has data IDs (1,10) and (1,11) with raw for both.
func twoDetectorCatalog(t *testing.T) *memcatalog.Catalog {
	t.Helper()
	c := memcatalog.New(testUniverse(t))
	ids := []dataset.DataCoordinate{dataID(t, 1, 10), dataID(t, 1, 11)}
	require.NoError(t, c.InsertDataIDs(ids...))
	_, err := c.InsertDatasets("raw/all", dt("raw"), ids...)
	require.NoError(t, err)
	return c
}

var testOrigin = catalog.Origin{Inputs: []string{"raw/all"}, Output: "run"}

func refKeys(refs []dataset.DatasetRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Key()
	}
	return out
}

// outputKeys maps task label to the output keys of each of its quanta.
func outputKeys(g *graph.QuantumGraph) map[string][][]string {
	out := make(map[string][][]string)
	for _, tn := range g.Tasks() {
		keys := make([][]string, 0, len(tn.Quanta))
		for _, q := range tn.Quanta {
			keys = append(keys, refKeys(q.Outputs))
		}
		out[tn.Task.Label] = keys
	}
	return out
}
