package catalog

import (
	"context"
	"fmt"
	"iter"

	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/dimension"
	"github.com/vk/qgraph/internal/expr"
)

// Source is the storage primitive a catalog backend provides; Join and
// Search implement the query semantics on top of it.
type Source interface {
	// DataIDs returns the candidate data IDs in a stable order.
	DataIDs(ctx context.Context) ([]dataset.DataCoordinate, error)
	// Chain returns the children of a chained collection, or nil if the
	// collection is a plain one.
	Chain(ctx context.Context, collection string) ([]string, error)
	// Datasets returns the datasets of one type stored directly in a
	// collection, keyed by coordinate key.
	Datasets(ctx context.Context, collection, datasetType string) (map[string]dataset.DatasetID, error)
}

// Flatten expands chained collections depth-first, keeping the first
// occurrence of each collection. A chain that contains itself is an error.
func Flatten(ctx context.Context, src Source, collections []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	var walk func(name string, path map[string]bool) error
	walk = func(name string, path map[string]bool) error {
		if path[name] {
			return fmt.Errorf("collection chain %q contains itself", name)
		}
		children, err := src.Chain(ctx, name)
		if err != nil {
			return err
		}
		if children == nil {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
			return nil
		}
		path[name] = true
		defer delete(path, name)
		for _, child := range children {
			if err := walk(child, path); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range collections {
		if err := walk(c, map[string]bool{}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Search returns the first dataset of dsType at dataID found in collections,
// in order, after chain expansion.
func Search(ctx context.Context, src Source, collections []string, dsType dataset.DatasetType, dataID dataset.DataCoordinate) (dataset.DatasetRef, bool, error) {
	flat, err := Flatten(ctx, src, collections)
	if err != nil {
		return dataset.DatasetRef{}, false, err
	}
	key := dataID.Key()
	for _, col := range flat {
		ids, err := src.Datasets(ctx, col, dsType.Name)
		if err != nil {
			return dataset.DatasetRef{}, false, err
		}
		if id, ok := ids[key]; ok {
			return dataset.DatasetRef{Type: dsType, DataID: dataID, ID: id}, true, nil
		}
	}
	return dataset.DatasetRef{}, false, nil
}

type joinTerm struct {
	dsType      dataset.DatasetType
	links       []string
	collections []string
	input       bool
}

// Join implements Catalog.SelectDimensions over a Source. Candidate data IDs
// missing a dimension some requested type needs are not part of the join.
func Join(ctx context.Context, src Source, universe *dimension.Universe, origin OriginInfo, pred expr.Predicate, inputs, outputs []dataset.DatasetType) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if pred == nil {
			pred = expr.True()
		}

		terms, err := joinTerms(ctx, src, universe, origin, inputs, outputs)
		if err != nil {
			yield(Row{}, err)
			return
		}
		candidates, err := src.DataIDs(ctx)
		if err != nil {
			yield(Row{}, err)
			return
		}

		indexes := make(map[string]map[string]dataset.DatasetID)
		index := func(col, typeName string) (map[string]dataset.DatasetID, error) {
			k := col + "\x00" + typeName
			if ids, ok := indexes[k]; ok {
				return ids, nil
			}
			ids, err := src.Datasets(ctx, col, typeName)
			if err != nil {
				return nil, err
			}
			indexes[k] = ids
			return ids, nil
		}

	rows:
		for _, dataID := range candidates {
			if err := ctx.Err(); err != nil {
				yield(Row{}, err)
				return
			}
			ok, err := pred.Matches(dataID)
			if err != nil {
				yield(Row{}, err)
				return
			}
			if !ok {
				continue
			}

			row := Row{DataID: dataID, Refs: make(map[string]dataset.DatasetRef, len(terms))}
			for _, term := range terms {
				refID, err := dataID.Project(term.links)
				if err != nil {
					continue rows
				}
				ref := dataset.NewRef(term.dsType, refID)
				for _, col := range term.collections {
					ids, err := index(col, term.dsType.Name)
					if err != nil {
						yield(Row{}, err)
						return
					}
					if id, found := ids[refID.Key()]; found {
						ref.ID = id
						break
					}
				}
				if term.input && !ref.Exists() {
					continue rows
				}
				row.Refs[term.dsType.Name] = ref
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

func joinTerms(ctx context.Context, src Source, universe *dimension.Universe, origin OriginInfo, inputs, outputs []dataset.DatasetType) ([]joinTerm, error) {
	terms := make([]joinTerm, 0, len(inputs)+len(outputs))
	add := func(t dataset.DatasetType, cols []string, input bool) error {
		links, err := universe.LinkSet(t.Dimensions)
		if err != nil {
			return fmt.Errorf("dataset type %q: %w", t.Name, err)
		}
		flat, err := Flatten(ctx, src, cols)
		if err != nil {
			return err
		}
		terms = append(terms, joinTerm{dsType: t, links: links, collections: flat, input: input})
		return nil
	}
	for _, t := range inputs {
		if err := add(t, origin.InputCollections(t.Name), true); err != nil {
			return nil, err
		}
	}
	for _, t := range outputs {
		var cols []string
		if out := origin.OutputCollection(t.Name); out != "" {
			cols = []string{out}
		}
		if err := add(t, cols, false); err != nil {
			return nil, err
		}
	}
	return terms, nil
}
