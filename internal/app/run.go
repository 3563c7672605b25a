package app

import (
	"context"
	"fmt"

	"github.com/vk/qgraph/internal/builder"
	"github.com/vk/qgraph/internal/catalog"
	"github.com/vk/qgraph/internal/catalog/memcatalog"
	"github.com/vk/qgraph/internal/catalog/pgcatalog"
	"github.com/vk/qgraph/internal/ctxlog"
)

// Run opens the catalog, builds the quantum graph and writes its summary.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.MetricsPort > 0 {
		a.startMetricsServer(a.config.MetricsPort)
		defer func() { _ = a.closeMetricsServer(ctx) }()
	}

	cat, closeCatalog, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer closeCatalog()

	b := builder.New(a.registry, cat,
		builder.WithSkipExisting(a.config.SkipExisting),
		builder.WithWorkers(a.config.WorkerCount),
	)
	origin := catalog.Origin{
		Inputs: a.config.InputCollections,
		Output: a.config.OutputCollection,
	}

	a.logger.Info("Building quantum graph.", "tasks", a.pipeline.Len(), "query", a.config.Query)
	qg, err := b.MakeGraph(ctx, a.pipeline, origin, a.config.Query)
	if err != nil {
		return fmt.Errorf("failed to build quantum graph: %w", err)
	}
	a.graph = qg

	if err := writeSummary(a.outW, a.config.OutputFormat, qg); err != nil {
		return fmt.Errorf("failed to write graph summary: %w", err)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// openCatalog returns the Postgres catalog when a DSN is configured and an
// in-memory catalog loaded from the pipeline's fixture otherwise.
func (a *App) openCatalog(ctx context.Context) (catalog.Catalog, func(), error) {
	if a.config.CatalogDSN == "" {
		cat, err := memcatalog.FromFixture(a.universe, a.model.Catalog)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load catalog fixture: %w", err)
		}
		a.logger.Debug("Using in-memory catalog.")
		return cat, func() {}, nil
	}

	cat, err := pgcatalog.Open(ctx, a.config.CatalogDSN, a.universe)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := cat.Close(); err != nil {
			a.logger.Warn("Closing catalog failed.", "error", err)
		}
	}
	if a.config.SeedCatalog {
		if err := cat.Seed(ctx, a.model.Catalog); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
	} else if a.model.Catalog != nil {
		a.logger.Warn("Catalog fixture ignored; pass -seed-catalog to load it into the database.")
	}
	a.logger.Debug("Using Postgres catalog.")
	return cat, closeFn, nil
}
