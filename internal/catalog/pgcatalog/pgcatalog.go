// Package pgcatalog is a catalog.Catalog backed by Postgres through the pgx
// database/sql driver.
package pgcatalog

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/vk/qgraph/internal/catalog"
	"github.com/vk/qgraph/internal/ctxlog"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/dimension"
	"github.com/vk/qgraph/internal/expr"
)

const findCacheSize = 1024

// Catalog reads and writes the qgraph_* tables. It is safe for concurrent use.
type Catalog struct {
	db       *sql.DB
	universe *dimension.Universe

	schemaOnce sync.Once
	schemaErr  error

	// findCache holds positive Find results only. Datasets are never
	// removed from a collection, but a redefined chain can hide a hit, so
	// DefineChain purges it.
	findCache *lru.Cache[string, dataset.DatasetRef]
}

var _ catalog.Catalog = (*Catalog)(nil)
var _ catalog.Source = (*Catalog)(nil)

// Open connects to dsn and makes sure the schema exists.
func Open(ctx context.Context, dsn string, universe *dimension.Universe) (*Catalog, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to catalog: %w", err)
	}
	cache, err := lru.New[string, dataset.DatasetRef](findCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c := &Catalog{db: db, universe: universe, findCache: cache}
	if err := c.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Connected to Postgres catalog.")
	return c, nil
}

// Close releases the connection pool.
func (c *Catalog) Close() error { return c.db.Close() }

func (c *Catalog) ensureSchema(ctx context.Context) error {
	c.schemaOnce.Do(func() {
		_, c.schemaErr = c.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS qgraph_data_ids (
  position BIGSERIAL,
  data_key TEXT PRIMARY KEY,
  data_id JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS qgraph_collections (
  name TEXT PRIMARY KEY,
  children JSONB
);

CREATE TABLE IF NOT EXISTS qgraph_dataset_types (
  name TEXT PRIMARY KEY,
  dimensions JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS qgraph_datasets (
  id BIGSERIAL PRIMARY KEY,
  dataset_type TEXT NOT NULL REFERENCES qgraph_dataset_types (name),
  collection TEXT NOT NULL REFERENCES qgraph_collections (name),
  data_key TEXT NOT NULL,
  data_id JSONB NOT NULL,
  UNIQUE (dataset_type, collection, data_key)
);
CREATE INDEX IF NOT EXISTS idx_qgraph_datasets_lookup ON qgraph_datasets (collection, dataset_type);
`)
	})
	return c.schemaErr
}

// Universe implements catalog.Catalog.
func (c *Catalog) Universe() *dimension.Universe { return c.universe }

// SelectDimensions implements catalog.Catalog.
func (c *Catalog) SelectDimensions(ctx context.Context, origin catalog.OriginInfo, pred expr.Predicate, inputs, outputs []dataset.DatasetType) iter.Seq2[catalog.Row, error] {
	return catalog.Join(ctx, c, c.universe, origin, pred, inputs, outputs)
}

// Find implements catalog.Catalog.
func (c *Catalog) Find(ctx context.Context, collection string, t dataset.DatasetType, dataID dataset.DataCoordinate) (dataset.DatasetRef, bool, error) {
	key := collection + "\x00" + t.Name + "\x00" + dataID.Key()
	if ref, ok := c.findCache.Get(key); ok {
		return ref, true, nil
	}
	ref, found, err := catalog.Search(ctx, c, []string{collection}, t, dataID)
	if err != nil || !found {
		return ref, found, err
	}
	c.findCache.Add(key, ref)
	return ref, true, nil
}

// DataIDs implements catalog.Source.
func (c *Catalog) DataIDs(ctx context.Context) ([]dataset.DataCoordinate, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT data_id FROM qgraph_data_ids ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dataset.DataCoordinate
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := decodeDataID(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Chain implements catalog.Source.
func (c *Catalog) Chain(ctx context.Context, collection string) ([]string, error) {
	var raw []byte
	err := c.db.QueryRowContext(ctx, `SELECT children FROM qgraph_collections WHERE name = $1`, collection).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var children []string
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, fmt.Errorf("collection %q: decoding children: %w", collection, err)
	}
	return children, nil
}

// Datasets implements catalog.Source.
func (c *Catalog) Datasets(ctx context.Context, collection, datasetType string) (map[string]dataset.DatasetID, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT data_key, id FROM qgraph_datasets
WHERE collection = $1 AND dataset_type = $2`, collection, datasetType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]dataset.DatasetID)
	for rows.Next() {
		var key string
		var id int64
		if err := rows.Scan(&key, &id); err != nil {
			return nil, err
		}
		out[key] = dataset.DatasetID(id)
	}
	return out, rows.Err()
}

// InsertDataIDs adds candidate data IDs, ignoring ones already present.
func (c *Catalog) InsertDataIDs(ctx context.Context, ids ...dataset.DataCoordinate) error {
	for _, id := range ids {
		raw, err := json.Marshal(id)
		if err != nil {
			return err
		}
		if _, err := c.db.ExecContext(ctx, `INSERT INTO qgraph_data_ids (data_key, data_id)
VALUES ($1, $2) ON CONFLICT (data_key) DO NOTHING`, id.Key(), raw); err != nil {
			return fmt.Errorf("inserting data id %s: %w", id, err)
		}
	}
	return nil
}

// DefineChain declares name as a chain searching children in order.
func (c *Catalog) DefineChain(ctx context.Context, name string, children ...string) error {
	if len(children) == 0 {
		return fmt.Errorf("collection chain %q has no children", name)
	}
	raw, err := json.Marshal(children)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO qgraph_collections (name, children) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET children = EXCLUDED.children`, name, raw)
	if err != nil {
		return err
	}
	c.findCache.Purge()
	return nil
}

// InsertDatasets registers t if needed and inserts datasets into a plain
// collection in one transaction, returning their refs.
func (c *Catalog) InsertDatasets(ctx context.Context, collection string, t dataset.DatasetType, dataIDs ...dataset.DataCoordinate) ([]dataset.DatasetRef, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	dims, err := json.Marshal(t.Dimensions)
	if err != nil {
		return nil, err
	}
	var registered []byte
	err = tx.QueryRowContext(ctx, `INSERT INTO qgraph_dataset_types (name, dimensions) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING dimensions`, t.Name, dims).Scan(&registered)
	if err != nil {
		return nil, err
	}
	var prev []string
	if err := json.Unmarshal(registered, &prev); err != nil {
		return nil, err
	}
	if strings.Join(prev, ",") != strings.Join(t.Dimensions, ",") {
		return nil, fmt.Errorf("dataset type %q already registered with dimensions [%s]", t.Name, strings.Join(prev, ", "))
	}

	var children []byte
	err = tx.QueryRowContext(ctx, `INSERT INTO qgraph_collections (name) VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING children`, collection).Scan(&children)
	if err != nil {
		return nil, err
	}
	if children != nil {
		return nil, fmt.Errorf("collection %q is a chain", collection)
	}

	refs := make([]dataset.DatasetRef, 0, len(dataIDs))
	for _, id := range dataIDs {
		raw, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		var newID int64
		err = tx.QueryRowContext(ctx, `INSERT INTO qgraph_datasets (dataset_type, collection, data_key, data_id)
VALUES ($1, $2, $3, $4) RETURNING id`, t.Name, collection, id.Key(), raw).Scan(&newID)
		if err != nil {
			return nil, fmt.Errorf("inserting dataset %s@%s into %q: %w", t.Name, id, collection, err)
		}
		refs = append(refs, dataset.DatasetRef{Type: t, DataID: id, ID: dataset.DatasetID(newID)})
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return refs, nil
}

func decodeDataID(raw []byte) (dataset.DataCoordinate, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return dataset.DataCoordinate{}, fmt.Errorf("decoding data id: %w", err)
	}
	return dataset.CoordinateFromMap(m)
}
