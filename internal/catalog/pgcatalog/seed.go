package pgcatalog

import (
	"context"
	"fmt"

	"github.com/vk/qgraph/internal/config"
	"github.com/vk/qgraph/internal/ctxlog"
	"github.com/vk/qgraph/internal/dataset"
)

// Seed loads a catalog fixture into the database. Data IDs and chains are
// upserted; datasets already present in their collection are left alone, so
// seeding the same fixture twice is a no-op.
func (c *Catalog) Seed(ctx context.Context, fixture *config.CatalogFixture) error {
	if fixture == nil {
		return nil
	}
	logger := ctxlog.FromContext(ctx)

	for _, def := range fixture.Collections {
		if len(def.Children) == 0 {
			continue
		}
		if err := c.DefineChain(ctx, def.Name, def.Children...); err != nil {
			return fmt.Errorf("seeding chain %q: %w", def.Name, err)
		}
	}
	if err := c.InsertDataIDs(ctx, fixture.DataIDs...); err != nil {
		return err
	}

	inserted := 0
	for _, def := range fixture.Datasets {
		t := dataset.NewDatasetType(def.DatasetType, def.DataID.Dimensions()...)
		_, found, err := c.Find(ctx, def.Collection, t, def.DataID)
		if err != nil {
			return err
		}
		if found {
			continue
		}
		if _, err := c.InsertDatasets(ctx, def.Collection, t, def.DataID); err != nil {
			return err
		}
		inserted++
	}
	logger.Debug("Seeded Postgres catalog.", "data_ids", len(fixture.DataIDs), "datasets_inserted", inserted)
	return nil
}
