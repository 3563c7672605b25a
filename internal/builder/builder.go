package builder

import (
	"context"
	"time"

	"github.com/vk/qgraph/internal/catalog"
	"github.com/vk/qgraph/internal/ctxlog"
	"github.com/vk/qgraph/internal/dag"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/expr"
	"github.com/vk/qgraph/internal/graph"
	"github.com/vk/qgraph/internal/pipeline"
	"golang.org/x/sync/errgroup"
)

// TaskLoader resolves a task reference to a loadable class and its
// canonical name. *registry.Registry implements it.
type TaskLoader interface {
	LoadTaskClass(ref string) (pipeline.TaskClass, string, error)
}

// Option configures a GraphBuilder.
type Option func(*GraphBuilder)

// WithSkipExisting sets the existence policy. The default is true: quanta
// whose outputs all exist are dropped.
func WithSkipExisting(skip bool) Option {
	return func(b *GraphBuilder) { b.skipExisting = skip }
}

// WithWorkers assembles up to n tasks concurrently. The graph and the
// reported error are the same as for sequential assembly.
func WithWorkers(n int) Option {
	return func(b *GraphBuilder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithParser replaces the selection-expression parser.
func WithParser(p expr.Parser) Option {
	return func(b *GraphBuilder) { b.parser = p }
}

// GraphBuilder builds quantum graphs. It holds no per-build state, so one
// builder may serve concurrent MakeGraph calls.
type GraphBuilder struct {
	loader       TaskLoader
	catalog      catalog.Catalog
	parser       expr.Parser
	skipExisting bool
	workers      int
}

// New returns a builder over a task loader and a catalog.
func New(loader TaskLoader, cat catalog.Catalog, opts ...Option) *GraphBuilder {
	b := &GraphBuilder{
		loader:       loader,
		catalog:      cat,
		parser:       expr.NewParser(),
		skipExisting: true,
		workers:      1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MakeGraph builds the quantum graph of p. Errors raised by the builder
// match ErrGraphBuilder; errors from the task loader or the catalog are
// returned unwrapped. No partial graph is returned on failure.
func (b *GraphBuilder) MakeGraph(ctx context.Context, p *pipeline.Pipeline, origin catalog.OriginInfo, userQuery string) (qg *graph.QuantumGraph, err error) {
	start := time.Now()
	defer func() {
		buildsTotal.WithLabelValues(resultLabel(err)).Inc()
		buildDuration.Observe(time.Since(start).Seconds())
	}()

	logger := ctxlog.FromContext(ctx)
	if origin == nil {
		return nil, builderErrorf("no origin information given")
	}

	tasks, err := b.resolveTasks(ctx, p)
	if err != nil {
		return nil, err
	}

	taskTypes := make([]TaskDatasetTypes, 0, len(tasks))
	for _, t := range tasks {
		td, err := CollectDatasetTypes(t)
		if err != nil {
			return nil, err
		}
		taskTypes = append(taskTypes, td)
	}
	global := ReduceDatasetTypes(ctx, taskTypes)
	logger.Debug("Reduced pipeline dataset types.",
		"inputs", dataset.TypeNames(global.Inputs),
		"outputs", dataset.TypeNames(global.Outputs),
		"init_inputs", dataset.TypeNames(global.InitInputs),
		"init_outputs", dataset.TypeNames(global.InitOutputs))

	deps, err := taskDependencies(taskTypes)
	if err != nil {
		return nil, err
	}

	universe := b.catalog.Universe()
	pred, err := NewSelectionCompiler(b.parser, universe).Compile(userQuery)
	if err != nil {
		return nil, err
	}

	initInputs, err := b.resolveInitInputs(ctx, origin, global.InitInputs)
	if err != nil {
		return nil, err
	}
	initOutputs := make([]dataset.DatasetRef, 0, len(global.InitOutputs))
	for _, t := range global.InitOutputs {
		initOutputs = append(initOutputs, dataset.NewRef(t, dataset.DataCoordinate{}))
	}

	var rows []catalog.Row
	if len(taskTypes) > 0 {
		rows, err = MaterializeRows(ctx, b.catalog, origin, pred, global.Inputs, global.Outputs)
		if err != nil {
			return nil, err
		}
	}

	nodes, skipped, err := b.assembleAll(ctx, taskTypes, rows)
	if err != nil {
		return nil, err
	}
	for i, tn := range nodes {
		quantaEmitted.WithLabelValues(tn.Task.Label).Add(float64(len(tn.Quanta)))
		quantaSkipped.WithLabelValues(tn.Task.Label).Add(float64(skipped[i]))
	}

	qg = graph.New(graph.Parts{
		Tasks:        nodes,
		Inputs:       global.Inputs,
		Outputs:      global.Outputs,
		InitInputs:   initInputs,
		InitOutputs:  initOutputs,
		Dependencies: deps,
	})
	logger.Info("Quantum graph built.", "tasks", len(nodes), "quanta", qg.QuantaCount(), "rows", len(rows), "duration", time.Since(start))
	return qg, nil
}

// resolveTasks loads missing task classes. Already-resolved definitions pass
// through unchanged; the pipeline itself is never modified.
func (b *GraphBuilder) resolveTasks(ctx context.Context, p *pipeline.Pipeline) ([]pipeline.TaskDef, error) {
	if p == nil {
		return nil, builderErrorf("no pipeline given")
	}
	logger := ctxlog.FromContext(ctx)
	tasks := p.Tasks()
	for i, t := range tasks {
		if t.Resolved() {
			continue
		}
		class, canonical, err := b.loader.LoadTaskClass(t.TaskName)
		if err != nil {
			return nil, err
		}
		tasks[i] = t.WithClass(class, canonical)
		logger.Debug("Resolved task class.", "task", t.Label, "class", canonical)
	}
	return tasks, nil
}

// taskDependencies links producers to consumers by dataset type name. A
// type produced by two tasks, a task consuming its own product, or a cycle
// is a GraphBuilderError.
func taskDependencies(tasks []TaskDatasetTypes) (*dag.Graph, error) {
	g := dag.New()
	producer := make(map[string]string)
	for _, td := range tasks {
		g.AddNode(td.Task.Label)
		for _, types := range [][]dataset.DatasetType{td.Outputs, td.InitOutputs} {
			for _, t := range types {
				if prev, dup := producer[t.Name]; dup && prev != td.Task.Label {
					return nil, builderErrorf("dataset type %q is produced by both task %q and task %q", t.Name, prev, td.Task.Label)
				}
				producer[t.Name] = td.Task.Label
			}
		}
	}
	for _, td := range tasks {
		for _, types := range [][]dataset.DatasetType{td.Inputs, td.InitInputs} {
			for _, t := range types {
				from, ok := producer[t.Name]
				if !ok {
					continue
				}
				if from == td.Task.Label {
					return nil, builderErrorf("task %q consumes dataset type %q that it produces", from, t.Name)
				}
				if err := g.AddEdge(from, td.Task.Label, t.Name); err != nil {
					return nil, &GraphBuilderError{Msg: "linking tasks", Err: err}
				}
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		return nil, &GraphBuilderError{Msg: "task dependencies", Err: err}
	}
	return g, nil
}

// resolveInitInputs finds each init-input in the origin's input collections,
// first match wins.
func (b *GraphBuilder) resolveInitInputs(ctx context.Context, origin catalog.OriginInfo, types []dataset.DatasetType) ([]dataset.DatasetRef, error) {
	refs := make([]dataset.DatasetRef, 0, len(types))
	for _, t := range types {
		if len(t.Dimensions) > 0 {
			return nil, builderErrorf("init-input dataset type %q must have no dimensions, has %v", t.Name, t.Dimensions)
		}
		collections := origin.InputCollections(t.Name)
		var found bool
		for _, col := range collections {
			ref, ok, err := b.catalog.Find(ctx, col, t, dataset.DataCoordinate{})
			if err != nil {
				return nil, err
			}
			if ok {
				refs = append(refs, ref)
				found = true
				break
			}
		}
		if !found {
			return nil, builderErrorf("could not find init-input %q in any input collection %v", t.Name, collections)
		}
	}
	return refs, nil
}

func (b *GraphBuilder) assembleAll(ctx context.Context, tasks []TaskDatasetTypes, rows []catalog.Row) ([]graph.TaskNodes, []int, error) {
	assembler := NewQuantumAssembler(b.catalog.Universe(), b.skipExisting)
	nodes := make([]graph.TaskNodes, len(tasks))
	skipped := make([]int, len(tasks))
	errs := make([]error, len(tasks))

	if b.workers <= 1 {
		for i, td := range tasks {
			var err error
			if nodes[i], skipped[i], err = assembler.Assemble(ctx, td, rows); err != nil {
				return nil, nil, err
			}
		}
		return nodes, skipped, nil
	}

	var eg errgroup.Group
	eg.SetLimit(b.workers)
	for i, td := range tasks {
		eg.Go(func() error {
			nodes[i], skipped[i], errs[i] = assembler.Assemble(ctx, td, rows)
			return nil
		})
	}
	_ = eg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return nodes, skipped, nil
}
