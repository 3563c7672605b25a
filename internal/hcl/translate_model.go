// This file translates the HCL schema structs into the format-agnostic
// configuration model defined in the config package.

package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/qgraph/internal/config"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/schema"
)

func (l *Loader) translateFile(root *schema.File) (*config.Model, error) {
	m := config.NewModel()
	for _, d := range root.Dimensions {
		m.Dimensions = append(m.Dimensions, &config.DimensionDefinition{
			Name:  d.Name,
			Links: d.Links,
		})
	}
	for _, tc := range root.TaskClasses {
		m.TaskClasses = append(m.TaskClasses, l.translateTaskClass(tc))
	}
	for _, t := range root.Tasks {
		m.Tasks = append(m.Tasks, l.translateTask(t))
	}
	for _, c := range root.Catalogs {
		fixture, err := l.translateCatalog(c)
		if err != nil {
			return nil, err
		}
		m.Merge(&config.Model{Catalog: fixture})
	}
	return m, nil
}

func (l *Loader) translateTaskClass(s *schema.TaskClass) *config.TaskClassDefinition {
	return &config.TaskClassDefinition{
		Name:        s.Name,
		Version:     s.Version,
		Description: s.Description,
		Inputs:      translateConnections(s.Inputs),
		Outputs:     translateConnections(s.Outputs),
		InitInputs:  translateConnections(s.InitInputs),
		InitOutputs: translateConnections(s.InitOutputs),
	}
}

// translateConnections applies the block-label default for dataset_type.
func translateConnections(in []*schema.Connection) []*config.ConnectionDefinition {
	if len(in) == 0 {
		return nil
	}
	out := make([]*config.ConnectionDefinition, 0, len(in))
	for _, c := range in {
		dsType := c.DatasetType
		if dsType == "" {
			dsType = c.Name
		}
		out = append(out, &config.ConnectionDefinition{
			Name:        c.Name,
			DatasetType: dsType,
			Dimensions:  c.Dimensions,
		})
	}
	return out
}

func (l *Loader) translateTask(s *schema.Task) *config.Task {
	t := &config.Task{
		Label:             s.Label,
		Class:             s.Class,
		QuantumDimensions: s.QuantumDimensions,
	}
	if len(s.Connections) > 0 {
		t.Connections = make(map[string]string, len(s.Connections))
		for k, v := range s.Connections {
			t.Connections[k] = v
		}
	}
	return t
}

func (l *Loader) translateCatalog(s *schema.Catalog) (*config.CatalogFixture, error) {
	fixture := &config.CatalogFixture{}

	ids, err := evalDataIDs(s.DataIDs)
	if err != nil {
		return nil, err
	}
	fixture.DataIDs = ids

	for _, c := range s.Collections {
		fixture.Collections = append(fixture.Collections, &config.CollectionDefinition{
			Name:     c.Name,
			Children: c.Children,
		})
	}
	for _, d := range s.Datasets {
		id, err := evalDataID(d.DataID)
		if err != nil {
			return nil, fmt.Errorf("dataset '%s' in collection '%s': %w", d.DatasetType, d.Collection, err)
		}
		fixture.Datasets = append(fixture.Datasets, &config.DatasetDefinition{
			DatasetType: d.DatasetType,
			Collection:  d.Collection,
			DataID:      id,
		})
	}
	return fixture, nil
}

// evalDataIDs evaluates the `data_ids` list. An absent attribute yields nil.
func evalDataIDs(expr hcl.Expression) ([]dataset.DataCoordinate, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid data_ids: %w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if !ty.IsTupleType() && !ty.IsListType() && !ty.IsSetType() {
		return nil, fmt.Errorf("data_ids must be a list of objects, got %s", ty.FriendlyName())
	}

	var out []dataset.DataCoordinate
	for it := val.ElementIterator(); it.Next(); {
		idx, ev := it.Element()
		c, err := dataset.CoordinateFromCty(ev)
		if err != nil {
			return nil, fmt.Errorf("data_ids[%s]: %w", dataset.FormatValue(idx), err)
		}
		out = append(out, c)
	}
	return out, nil
}

func evalDataID(expr hcl.Expression) (dataset.DataCoordinate, error) {
	if expr == nil {
		return dataset.DataCoordinate{}, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return dataset.DataCoordinate{}, fmt.Errorf("invalid data_id: %w", diags)
	}
	return dataset.CoordinateFromCty(val)
}
