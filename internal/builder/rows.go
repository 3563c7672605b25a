package builder

import (
	"context"

	"github.com/vk/qgraph/internal/catalog"
	"github.com/vk/qgraph/internal/ctxlog"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/expr"
)

// MaterializeRows runs the single join query of a build and buffers every
// row, since each task's grouping pass re-scans the full set. A row missing
// a requested dataset type is a GraphBuilderError; catalog errors are
// returned unwrapped.
func MaterializeRows(ctx context.Context, cat catalog.Catalog, origin catalog.OriginInfo, pred expr.Predicate, inputs, outputs []dataset.DatasetType) ([]catalog.Row, error) {
	logger := ctxlog.FromContext(ctx)

	var rows []catalog.Row
	for row, err := range cat.SelectDimensions(ctx, origin, pred, inputs, outputs) {
		if err != nil {
			return nil, err
		}
		for _, types := range [][]dataset.DatasetType{inputs, outputs} {
			for _, t := range types {
				if _, ok := row.Refs[t.Name]; !ok {
					return nil, builderErrorf("catalog row %s has no reference for dataset type %q", row.DataID, t.Name)
				}
			}
		}
		logger.Debug("Materialized row.", "data_id", row.DataID.String())
		rows = append(rows, row)
	}
	logger.Debug("Row materialization finished.", "rows", len(rows), "predicate", pred.String())
	return rows, nil
}
