// Package memcatalog is an in-memory catalog.Catalog. It backs tests and
// pipelines that carry their catalog content as an HCL fixture.
package memcatalog

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vk/qgraph/internal/catalog"
	"github.com/vk/qgraph/internal/config"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/dimension"
	"github.com/vk/qgraph/internal/expr"
)

type collection struct {
	chain []string
	// datasets is keyed by dataset type name, then coordinate key.
	datasets map[string]map[string]dataset.DatasetID
}

// Catalog is safe for concurrent use.
type Catalog struct {
	universe *dimension.Universe

	mu          sync.RWMutex
	dataIDs     []dataset.DataCoordinate
	dataIDKeys  map[string]struct{}
	types       map[string]dataset.DatasetType
	collections map[string]*collection
	nextID      dataset.DatasetID

	queries atomic.Int64
}

var _ catalog.Catalog = (*Catalog)(nil)
var _ catalog.Source = (*Catalog)(nil)

// New returns an empty catalog over universe.
func New(universe *dimension.Universe) *Catalog {
	return &Catalog{
		universe:    universe,
		dataIDKeys:  make(map[string]struct{}),
		types:       make(map[string]dataset.DatasetType),
		collections: make(map[string]*collection),
		nextID:      1,
	}
}

// FromFixture builds a catalog from the `catalog` block of a pipeline model.
// A nil fixture gives an empty catalog.
func FromFixture(universe *dimension.Universe, fixture *config.CatalogFixture) (*Catalog, error) {
	c := New(universe)
	if fixture == nil {
		return c, nil
	}
	for _, def := range fixture.Collections {
		if len(def.Children) > 0 {
			if err := c.DefineChain(def.Name, def.Children...); err != nil {
				return nil, err
			}
			continue
		}
		if err := c.DefineCollection(def.Name); err != nil {
			return nil, err
		}
	}
	if err := c.InsertDataIDs(fixture.DataIDs...); err != nil {
		return nil, err
	}
	for _, def := range fixture.Datasets {
		t := dataset.NewDatasetType(def.DatasetType, def.DataID.Dimensions()...)
		if _, err := c.InsertDatasets(def.Collection, t, def.DataID); err != nil {
			return nil, err
		}
	}
	slog.Debug("Loaded catalog fixture.", "data_ids", len(fixture.DataIDs), "collections", len(fixture.Collections), "datasets", len(fixture.Datasets))
	return c, nil
}

// Universe implements catalog.Catalog.
func (c *Catalog) Universe() *dimension.Universe { return c.universe }

// Queries returns how many SelectDimensions and Find calls were made.
func (c *Catalog) Queries() int64 { return c.queries.Load() }

// InsertDataIDs adds candidate data IDs. Duplicates are ignored and every
// dimension must be known to the universe.
func (c *Catalog) InsertDataIDs(ids ...dataset.DataCoordinate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		for _, d := range id.Dimensions() {
			if !c.universe.Has(d) {
				return fmt.Errorf("data id %s: unknown dimension %q", id, d)
			}
		}
		key := id.Key()
		if _, dup := c.dataIDKeys[key]; dup {
			continue
		}
		c.dataIDKeys[key] = struct{}{}
		c.dataIDs = append(c.dataIDs, id)
	}
	return nil
}

// DefineCollection declares a plain collection. Redefining one is a no-op.
func (c *Catalog) DefineCollection(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.collectionLocked(name)
	return err
}

// DefineChain declares name as a chain searching children in order.
func (c *Catalog) DefineChain(name string, children ...string) error {
	if len(children) == 0 {
		return fmt.Errorf("collection chain %q has no children", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.collections[name]; ok && existing.chain == nil && len(existing.datasets) > 0 {
		return fmt.Errorf("collection %q already holds datasets and cannot become a chain", name)
	}
	c.collections[name] = &collection{chain: append([]string(nil), children...)}
	return nil
}

// RegisterDatasetType records a dataset type. Registering the same name with
// different dimensions is an error.
func (c *Catalog) RegisterDatasetType(t dataset.DatasetType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registerLocked(t)
}

// InsertDatasets registers new datasets of t in a plain collection, creating
// the collection if needed, and returns their refs with fresh IDs.
func (c *Catalog) InsertDatasets(collectionName string, t dataset.DatasetType, dataIDs ...dataset.DataCoordinate) ([]dataset.DatasetRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registerLocked(t); err != nil {
		return nil, err
	}
	col, err := c.collectionLocked(collectionName)
	if err != nil {
		return nil, err
	}
	byKey := col.datasets[t.Name]
	if byKey == nil {
		byKey = make(map[string]dataset.DatasetID)
		col.datasets[t.Name] = byKey
	}

	refs := make([]dataset.DatasetRef, 0, len(dataIDs))
	for _, id := range dataIDs {
		key := id.Key()
		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("dataset %s@%s already exists in collection %q", t.Name, id, collectionName)
		}
		byKey[key] = c.nextID
		refs = append(refs, dataset.DatasetRef{Type: t, DataID: id, ID: c.nextID})
		c.nextID++
	}
	return refs, nil
}

func (c *Catalog) registerLocked(t dataset.DatasetType) error {
	if t.Name == "" {
		return fmt.Errorf("dataset type with empty name")
	}
	if prev, ok := c.types[t.Name]; ok {
		if !slices.Equal(prev.Dimensions, t.Dimensions) {
			return fmt.Errorf("dataset type %q already registered as %s", t.Name, prev)
		}
		return nil
	}
	c.types[t.Name] = t
	return nil
}

func (c *Catalog) collectionLocked(name string) (*collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection with empty name")
	}
	col, ok := c.collections[name]
	if !ok {
		col = &collection{datasets: make(map[string]map[string]dataset.DatasetID)}
		c.collections[name] = col
		return col, nil
	}
	if col.chain != nil {
		return nil, fmt.Errorf("collection %q is a chain", name)
	}
	return col, nil
}

// DataIDs implements catalog.Source.
func (c *Catalog) DataIDs(context.Context) ([]dataset.DataCoordinate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dataset.DataCoordinate(nil), c.dataIDs...), nil
}

// Chain implements catalog.Source. Unknown collections are treated as empty
// plain collections.
func (c *Catalog) Chain(_ context.Context, name string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if col, ok := c.collections[name]; ok && col.chain != nil {
		return append([]string(nil), col.chain...), nil
	}
	return nil, nil
}

// Datasets implements catalog.Source.
func (c *Catalog) Datasets(_ context.Context, collectionName, datasetType string) (map[string]dataset.DatasetID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]dataset.DatasetID)
	if col, ok := c.collections[collectionName]; ok {
		for k, id := range col.datasets[datasetType] {
			out[k] = id
		}
	}
	return out, nil
}

// SelectDimensions implements catalog.Catalog.
func (c *Catalog) SelectDimensions(ctx context.Context, origin catalog.OriginInfo, pred expr.Predicate, inputs, outputs []dataset.DatasetType) iter.Seq2[catalog.Row, error] {
	c.queries.Add(1)
	return catalog.Join(ctx, c, c.universe, origin, pred, inputs, outputs)
}

// Find implements catalog.Catalog.
func (c *Catalog) Find(ctx context.Context, collectionName string, t dataset.DatasetType, dataID dataset.DataCoordinate) (dataset.DatasetRef, bool, error) {
	c.queries.Add(1)
	return catalog.Search(ctx, c, []string{collectionName}, t, dataID)
}
