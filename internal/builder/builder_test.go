package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/qgraph/internal/catalog"
	"github.com/vk/qgraph/internal/catalog/memcatalog"
	"github.com/vk/qgraph/internal/config"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/expr"
	"github.com/vk/qgraph/internal/pipeline"
	"github.com/vk/qgraph/internal/registry"
)

func twoTaskRegistry(t *testing.T) *registry.Registry {
	return newRegistry(t,
		classSpec{name: "isr", inputs: []string{"raw"}, outputs: []string{"calexp"}},
		classSpec{name: "measure", inputs: []string{"calexp"}, outputs: []string{"src"}},
	)
}

func twoTaskPipeline(t *testing.T) *pipeline.Pipeline {
	return newPipeline(t, task("isr", visitDetector...), task("measure", visitDetector...))
}

func TestMakeGraph_TwoTaskChain(t *testing.T) {
	cat := twoDetectorCatalog(t)
	b := New(twoTaskRegistry(t), cat)

	g, err := b.MakeGraph(context.Background(), twoTaskPipeline(t), testOrigin, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"raw"}, dataset.TypeNames(g.InputDatasetTypes()))
	assert.Equal(t, []string{"calexp", "src"}, dataset.TypeNames(g.OutputDatasetTypes()))
	assert.Equal(t, 4, g.QuantaCount())

	isr, ok := g.Task("isr")
	require.True(t, ok)
	require.Len(t, isr.Quanta, 2)
	for i, det := range []int{10, 11} {
		q := isr.Quanta[i]
		want := dataID(t, 1, det).Key()
		assert.Equal(t, want, q.DataID.Key())
		require.Len(t, q.Inputs, 1)
		require.Len(t, q.Outputs, 1)
		assert.Equal(t, "raw/"+want, q.Inputs[0].Key())
		assert.True(t, q.Inputs[0].Exists())
		assert.Equal(t, "calexp/"+want, q.Outputs[0].Key())
		assert.False(t, q.Outputs[0].Exists())
	}

	measure, ok := g.Task("measure")
	require.True(t, ok)
	assert.Len(t, measure.Quanta, 2)

	up, err := g.UpstreamTasks("measure")
	require.NoError(t, err)
	assert.Equal(t, []string{"isr"}, up)
}

func TestMakeGraph_SkipsFullyProducedQuantum(t *testing.T) {
	cat := twoDetectorCatalog(t)
	_, err := cat.InsertDatasets("run", dt("calexp"), dataID(t, 1, 10))
	require.NoError(t, err)

	g, err := New(twoTaskRegistry(t), cat).MakeGraph(context.Background(), twoTaskPipeline(t), testOrigin, "")
	require.NoError(t, err)

	isr, _ := g.Task("isr")
	require.Len(t, isr.Quanta, 1)
	assert.Equal(t, dataID(t, 1, 11).Key(), isr.Quanta[0].DataID.Key())

	measure, _ := g.Task("measure")
	require.Len(t, measure.Quanta, 2)
	assert.True(t, measure.Quanta[0].Inputs[0].Exists(), "produced calexp is an existing input downstream")
}

func TestMakeGraph_PartialOutputsAreAnError(t *testing.T) {
	cat := twoDetectorCatalog(t)
	existing, err := cat.InsertDatasets("run", dt("calexp"), dataID(t, 1, 10))
	require.NoError(t, err)
	reg := newRegistry(t, classSpec{name: "isr", inputs: []string{"raw"}, outputs: []string{"calexp", "psf"}})

	_, err = New(reg, cat).MakeGraph(context.Background(), newPipeline(t, task("isr", visitDetector...)), testOrigin, "")

	var existsErr *OutputExistsError
	require.True(t, errors.As(err, &existsErr))
	assert.Equal(t, "isr", existsErr.TaskName)
	assert.Equal(t, refKeys(existing), refKeys(existsErr.Refs))
	assert.ErrorIs(t, err, ErrGraphBuilder)
	assert.ErrorContains(t, err, "output datasets already exist for task isr: calexp@{detector: 10, visit: 1}#3")
}

func TestMakeGraph_MissingInitInput(t *testing.T) {
	cat := &countingCatalog{Catalog: twoDetectorCatalog(t)}
	reg := newRegistry(t, classSpec{name: "isr", inputs: []string{"raw"}, outputs: []string{"calexp"}, initInputs: []string{"camera"}})
	origin := catalog.Origin{Inputs: []string{"raw/all", "calib"}, Output: "run"}

	_, err := New(reg, cat).MakeGraph(context.Background(), newPipeline(t, task("isr", visitDetector...)), origin, "")

	var gbErr *GraphBuilderError
	require.True(t, errors.As(err, &gbErr))
	assert.ErrorContains(t, err, `init-input "camera"`)
	assert.Equal(t, 2, cat.finds, "every input collection is searched")
	assert.Zero(t, cat.selects, "no rows are materialized")
}

func TestMakeGraph_InitDatasets(t *testing.T) {
	mem := twoDetectorCatalog(t)
	_, err := mem.InsertDatasets("calib", dataset.NewDatasetType("camera"), dataset.DataCoordinate{})
	require.NoError(t, err)
	_, err = mem.InsertDatasets("calib/old", dataset.NewDatasetType("camera"), dataset.DataCoordinate{})
	require.NoError(t, err)
	reg := newRegistry(t,
		classSpec{name: "isr", inputs: []string{"raw"}, outputs: []string{"calexp"}, initInputs: []string{"camera"}, initOutputs: []string{"isr_schema"}},
		classSpec{name: "measure", inputs: []string{"calexp"}, outputs: []string{"src"}, initInputs: []string{"isr_schema"}, initOutputs: []string{"src_schema"}},
	)
	origin := catalog.Origin{Inputs: []string{"raw/all", "calib", "calib/old"}, Output: "run"}

	g, err := New(reg, mem).MakeGraph(context.Background(), twoTaskPipeline(t), origin, "")
	require.NoError(t, err)

	initInputs := g.InitInputs()
	require.Len(t, initInputs, 1)
	assert.Equal(t, "camera", initInputs[0].Type.Name)
	assert.EqualValues(t, 3, initInputs[0].ID, "first collection in priority order wins")

	assert.Equal(t, []string{"isr_schema/", "src_schema/"}, refKeys(g.InitOutputs()))
	for _, ref := range g.InitOutputs() {
		assert.False(t, ref.Exists())
	}
}

func TestMakeGraph_MalformedQuery(t *testing.T) {
	cat := &countingCatalog{Catalog: twoDetectorCatalog(t)}
	reg := newRegistry(t, classSpec{name: "isr", inputs: []string{"raw"}, outputs: []string{"calexp"}, initInputs: []string{"camera"}})

	_, err := New(reg, cat).MakeGraph(context.Background(), newPipeline(t, task("isr", visitDetector...)), testOrigin, "visit = )")

	var userErr *UserExpressionError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "visit = )", userErr.Expr)
	var syntaxErr *expr.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr), "parser diagnostic is wrapped")
	assert.ErrorIs(t, err, ErrGraphBuilder)
	assert.Zero(t, cat.selects+cat.finds, "no catalog queries are issued")
}

func TestMakeGraph_UnknownDimensionInQuery(t *testing.T) {
	cat := &countingCatalog{Catalog: twoDetectorCatalog(t)}
	_, err := New(twoTaskRegistry(t), cat).MakeGraph(context.Background(), twoTaskPipeline(t), testOrigin, "tract = 1")

	var userErr *UserExpressionError
	require.True(t, errors.As(err, &userErr))
	assert.ErrorContains(t, err, `unknown dimension "tract"`)
	assert.Zero(t, cat.selects+cat.finds)
}

func TestMakeGraph_NonBooleanQuery(t *testing.T) {
	for _, q := range []string{`visit`, `visit + 1`, `visit > "abc"`} {
		t.Run(q, func(t *testing.T) {
			cat := &countingCatalog{Catalog: twoDetectorCatalog(t)}
			_, err := New(twoTaskRegistry(t), cat).MakeGraph(context.Background(), twoTaskPipeline(t), testOrigin, q)

			var userErr *UserExpressionError
			require.True(t, errors.As(err, &userErr), "got %v", err)
			assert.Equal(t, q, userErr.Expr)
			assert.ErrorIs(t, err, ErrGraphBuilder)
			assert.Zero(t, cat.selects+cat.finds)
		})
	}
}

func TestMakeGraph_NotAppliesToWholeComparison(t *testing.T) {
	g, err := New(twoTaskRegistry(t), twoDetectorCatalog(t)).MakeGraph(context.Background(), twoTaskPipeline(t), testOrigin, "NOT detector = 10")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"calexp/" + dataID(t, 1, 11).Key()}}, outputKeys(g)["isr"])
}

func TestMakeGraph_QueryRestrictsRows(t *testing.T) {
	g, err := New(twoTaskRegistry(t), twoDetectorCatalog(t)).MakeGraph(context.Background(), twoTaskPipeline(t), testOrigin, "detector = 11")
	require.NoError(t, err)
	assert.Equal(t, map[string][][]string{
		"isr":     {{"calexp/" + dataID(t, 1, 11).Key()}},
		"measure": {{"src/" + dataID(t, 1, 11).Key()}},
	}, outputKeys(g))
}

func TestMakeGraph_DoesNotMutatePipeline(t *testing.T) {
	r := registry.New()
	for _, v := range []string{"1.0.0", "1.3.0", "2.0.0"} {
		class := registry.NewManifestClass(&config.TaskClassDefinition{
			Name:    "isr",
			Inputs:  conns(visitDetector, "raw"),
			Outputs: conns(visitDetector, "calexp"),
		})
		require.NoError(t, r.Add(class, v))
	}
	p := newPipeline(t, pipeline.TaskDef{Label: "isr", TaskName: "isr@^1", Config: pipeline.TaskConfig{QuantumDimensions: visitDetector}})

	g, err := New(r, twoDetectorCatalog(t)).MakeGraph(context.Background(), p, testOrigin, "")
	require.NoError(t, err)

	original, _ := p.Task("isr")
	assert.False(t, original.Resolved())
	assert.Equal(t, "isr@^1", original.TaskName)

	built, _ := g.Task("isr")
	assert.True(t, built.Task.Resolved())
	assert.Equal(t, "isr@1.3.0", built.Task.TaskName)
}

func TestMakeGraph_ResolvedTasksPassThrough(t *testing.T) {
	class, _, err := twoTaskRegistry(t).LoadTaskClass("isr")
	require.NoError(t, err)
	resolved := pipeline.TaskDef{Label: "isr", TaskName: "custom.Isr", Class: class, Config: pipeline.TaskConfig{QuantumDimensions: visitDetector}}

	g, err := New(registry.New(), twoDetectorCatalog(t)).MakeGraph(context.Background(), newPipeline(t, resolved), testOrigin, "")
	require.NoError(t, err)
	built, _ := g.Task("isr")
	assert.Equal(t, "custom.Isr", built.Task.TaskName)
}

func TestMakeGraph_CollaboratorErrorsAreNotWrapped(t *testing.T) {
	t.Run("unknown task class", func(t *testing.T) {
		p := newPipeline(t, task("nope"))
		_, err := New(registry.New(), twoDetectorCatalog(t)).MakeGraph(context.Background(), p, testOrigin, "")
		assert.ErrorIs(t, err, registry.ErrTaskClassNotFound)
		assert.NotErrorIs(t, err, ErrGraphBuilder)
	})

	t.Run("malformed configuration", func(t *testing.T) {
		def := task("isr", visitDetector...)
		def.Config.Connections = map[string]string{"bogus": "x"}
		_, err := New(twoTaskRegistry(t), twoDetectorCatalog(t)).MakeGraph(context.Background(), newPipeline(t, def), testOrigin, "")
		assert.ErrorIs(t, err, registry.ErrUnknownConnection)
		assert.NotErrorIs(t, err, ErrGraphBuilder)
	})
}

func TestMakeGraph_TaskDependencyErrors(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		reg := newRegistry(t,
			classSpec{name: "a", inputs: []string{"x"}, outputs: []string{"y"}},
			classSpec{name: "b", inputs: []string{"y"}, outputs: []string{"x"}},
		)
		_, err := New(reg, twoDetectorCatalog(t)).MakeGraph(context.Background(), newPipeline(t, task("a", visitDetector...), task("b", visitDetector...)), testOrigin, "")
		var gbErr *GraphBuilderError
		require.True(t, errors.As(err, &gbErr))
		assert.ErrorContains(t, err, "cycle detected: a -> b -> a")
	})

	t.Run("two producers", func(t *testing.T) {
		reg := newRegistry(t,
			classSpec{name: "a", inputs: []string{"raw"}, outputs: []string{"calexp"}},
			classSpec{name: "b", inputs: []string{"raw"}, outputs: []string{"calexp"}},
		)
		_, err := New(reg, twoDetectorCatalog(t)).MakeGraph(context.Background(), newPipeline(t, task("a", visitDetector...), task("b", visitDetector...)), testOrigin, "")
		assert.ErrorContains(t, err, `dataset type "calexp" is produced by both task "a" and task "b"`)
	})
}

func TestMakeGraph_NoOverwriteWithoutSkip(t *testing.T) {
	cat := twoDetectorCatalog(t)
	_, err := cat.InsertDatasets("run", dt("calexp"), dataID(t, 1, 10))
	require.NoError(t, err)

	_, err = New(twoTaskRegistry(t), cat, WithSkipExisting(false)).MakeGraph(context.Background(), twoTaskPipeline(t), testOrigin, "")
	var existsErr *OutputExistsError
	assert.True(t, errors.As(err, &existsErr))
}

func TestMakeGraph_TaskWithoutOutputs(t *testing.T) {
	reg := newRegistry(t, classSpec{name: "check", inputs: []string{"raw"}})
	p := newPipeline(t, task("check", visitDetector...))

	g, err := New(reg, twoDetectorCatalog(t)).MakeGraph(context.Background(), p, testOrigin, "")
	require.NoError(t, err)
	assert.Zero(t, g.QuantaCount(), "quanta without outputs count as fully produced")

	g, err = New(reg, twoDetectorCatalog(t), WithSkipExisting(false)).MakeGraph(context.Background(), p, testOrigin, "")
	require.NoError(t, err)
	assert.Equal(t, 2, g.QuantaCount())
}

func TestMakeGraph_DeterministicAcrossRowOrder(t *testing.T) {
	build := func(ids []dataset.DataCoordinate) map[string][][]string {
		cat := memcatalog.New(testUniverse(t))
		require.NoError(t, cat.InsertDataIDs(ids...))
		_, err := cat.InsertDatasets("raw/all", dt("raw"), ids...)
		require.NoError(t, err)
		g, err := New(twoTaskRegistry(t), cat).MakeGraph(context.Background(), twoTaskPipeline(t), testOrigin, "")
		require.NoError(t, err)
		return outputKeys(g)
	}

	forward := []dataset.DataCoordinate{dataID(t, 1, 10), dataID(t, 1, 11), dataID(t, 2, 10), dataID(t, 2, 11)}
	reversed := []dataset.DataCoordinate{forward[3], forward[2], forward[1], forward[0]}
	first := build(forward)
	assert.Equal(t, first, build(reversed))
	assert.Equal(t, first, build(forward))
	assert.Len(t, first["isr"], 4)
}

func TestMakeGraph_ParallelAssemblyMatchesSequential(t *testing.T) {
	reg := newRegistry(t,
		classSpec{name: "isr", inputs: []string{"raw"}, outputs: []string{"calexp"}},
		classSpec{name: "measure", inputs: []string{"calexp"}, outputs: []string{"src"}},
		classSpec{name: "visit_summary", inputs: []string{"src"}, outputs: []string{"summary"}},
	)
	p := newPipeline(t, task("isr", visitDetector...), task("measure", visitDetector...), task("visit_summary", "visit"))

	seq, err := New(reg, twoDetectorCatalog(t)).MakeGraph(context.Background(), p, testOrigin, "")
	require.NoError(t, err)
	par, err := New(reg, twoDetectorCatalog(t), WithWorkers(4)).MakeGraph(context.Background(), p, testOrigin, "")
	require.NoError(t, err)
	assert.Equal(t, outputKeys(seq), outputKeys(par))

	t.Run("first failing task in pipeline order is reported", func(t *testing.T) {
		cat := twoDetectorCatalog(t)
		_, err := cat.InsertDatasets("run", dt("calexp"), dataID(t, 1, 10))
		require.NoError(t, err)
		_, err = cat.InsertDatasets("run", dt("src"), dataID(t, 1, 11))
		require.NoError(t, err)

		_, err = New(reg, cat, WithWorkers(4), WithSkipExisting(false)).MakeGraph(context.Background(), p, testOrigin, "")
		var existsErr *OutputExistsError
		require.True(t, errors.As(err, &existsErr))
		assert.Equal(t, "isr", existsErr.TaskName)
	})
}

func TestMakeGraph_EmptyPipeline(t *testing.T) {
	cat := &countingCatalog{Catalog: twoDetectorCatalog(t)}
	g, err := New(registry.New(), cat).MakeGraph(context.Background(), newPipeline(t), testOrigin, "")
	require.NoError(t, err)
	assert.Zero(t, g.QuantaCount())
	assert.Empty(t, g.Tasks())
	assert.Zero(t, cat.selects)
}

func TestMakeGraph_Metrics(t *testing.T) {
	successes := testutil.ToFloat64(buildsTotal.WithLabelValues("success"))
	userErrors := testutil.ToFloat64(buildsTotal.WithLabelValues("user_expression_error"))
	emitted := testutil.ToFloat64(quantaEmitted.WithLabelValues("isr"))
	skipped := testutil.ToFloat64(quantaSkipped.WithLabelValues("isr"))

	cat := twoDetectorCatalog(t)
	_, err := cat.InsertDatasets("run", dt("calexp"), dataID(t, 1, 10))
	require.NoError(t, err)
	b := New(twoTaskRegistry(t), cat)

	_, err = b.MakeGraph(context.Background(), twoTaskPipeline(t), testOrigin, "")
	require.NoError(t, err)
	_, err = b.MakeGraph(context.Background(), twoTaskPipeline(t), testOrigin, "visit = )")
	require.Error(t, err)

	assert.Equal(t, successes+1, testutil.ToFloat64(buildsTotal.WithLabelValues("success")))
	assert.Equal(t, userErrors+1, testutil.ToFloat64(buildsTotal.WithLabelValues("user_expression_error")))
	assert.Equal(t, emitted+1, testutil.ToFloat64(quantaEmitted.WithLabelValues("isr")))
	assert.Equal(t, skipped+1, testutil.ToFloat64(quantaSkipped.WithLabelValues("isr")))
}
