// Package catalog defines the catalog service the graph builder queries: a
// multi-dimensional join over candidate data IDs and existing datasets, and
// single-dataset lookup through collections and collection chains.
package catalog

import (
	"context"
	"iter"

	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/dimension"
	"github.com/vk/qgraph/internal/expr"
)

// Catalog is the read side of a dataset catalog.
type Catalog interface {
	// Universe returns the dimensions the catalog knows about.
	Universe() *dimension.Universe

	// SelectDimensions runs one join query over the candidate data IDs that
	// satisfy pred. Each row covers every requested dataset type: inputs
	// are searched for in origin's input collections and rows without a
	// match are dropped; outputs are looked up in origin's output
	// collection and carry an ID only if the dataset already exists.
	SelectDimensions(ctx context.Context, origin OriginInfo, pred expr.Predicate, inputs, outputs []dataset.DatasetType) iter.Seq2[Row, error]

	// Find looks up one dataset in a collection, resolving chains.
	Find(ctx context.Context, collection string, dsType dataset.DatasetType, dataID dataset.DataCoordinate) (dataset.DatasetRef, bool, error)
}

// Row is one joined result of SelectDimensions.
type Row struct {
	DataID dataset.DataCoordinate
	// Refs is keyed by dataset type name.
	Refs map[string]dataset.DatasetRef
}

// OriginInfo tells the catalog where a build reads from and writes to.
type OriginInfo interface {
	// InputCollections lists, in priority order, the collections searched
	// for existing datasets of a type.
	InputCollections(datasetType string) []string
	// OutputCollection names the collection outputs of a type go to.
	OutputCollection(datasetType string) string
}

// Origin is the usual OriginInfo: one search path for every type, with
// optional per-type overrides, and a single output collection.
type Origin struct {
	Inputs  []string
	PerType map[string][]string
	Output  string
}

// InputCollections implements OriginInfo.
func (o Origin) InputCollections(datasetType string) []string {
	if cols, ok := o.PerType[datasetType]; ok {
		return cols
	}
	return o.Inputs
}

// OutputCollection implements OriginInfo.
func (o Origin) OutputCollection(string) string { return o.Output }
