package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/qgraph/internal/config"
	"github.com/vk/qgraph/internal/ctxlog"
	"github.com/vk/qgraph/internal/dimension"
	"github.com/vk/qgraph/internal/graph"
	"github.com/vk/qgraph/internal/pipeline"
	"github.com/vk/qgraph/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	model    *config.Model
	universe *dimension.Universe
	registry *registry.Registry
	pipeline *pipeline.Pipeline

	httpServer *http.Server
	graph      *graph.QuantumGraph
}

// NewApp loads the pipeline files and prepares everything a build needs.
// The graph summary is written to outW and logs to logW. Task classes
// implemented in Go are registered through modules; task classes declared
// in the pipeline files are registered from their manifests.
func NewApp(outW, logW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	universe, err := buildUniverse(model)
	if err != nil {
		return nil, fmt.Errorf("failed to build dimension universe: %w", err)
	}

	reg := registry.New()
	reg.RegisterModules(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.PopulateFromModel(model); err != nil {
		return nil, fmt.Errorf("failed to register task classes: %w", err)
	}
	logger.Debug("Registry populated from config model.", "task_classes", len(reg.Names()))

	if err := reg.ValidateRegistry(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	p, err := buildPipeline(model)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	logger.Debug("Pipeline assembled.", "tasks", p.Len())

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		model:    model,
		universe: universe,
		registry: reg,
		pipeline: p,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Pipeline returns the pipeline the app builds.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Graph returns the graph produced by the last successful Run, or nil.
func (a *App) Graph() *graph.QuantumGraph {
	return a.graph
}

// buildUniverse returns the declared dimensions, or the default universe
// when the pipeline files declare none.
func buildUniverse(model *config.Model) (*dimension.Universe, error) {
	if len(model.Dimensions) == 0 {
		return dimension.Default(), nil
	}
	dims := make([]dimension.Dimension, 0, len(model.Dimensions))
	for _, d := range model.Dimensions {
		dims = append(dims, dimension.Dimension{Name: d.Name, Links: d.Links})
	}
	return dimension.NewUniverse(dims...)
}

// buildPipeline turns the declared tasks into unresolved task definitions.
func buildPipeline(model *config.Model) (*pipeline.Pipeline, error) {
	tasks := make([]pipeline.TaskDef, 0, len(model.Tasks))
	for _, t := range model.Tasks {
		tasks = append(tasks, pipeline.TaskDef{
			Label:    t.Label,
			TaskName: t.Class,
			Config: pipeline.TaskConfig{
				QuantumDimensions: t.QuantumDimensions,
				Connections:       t.Connections,
			},
		})
	}
	return pipeline.New(tasks...)
}
