package config

import "github.com/vk/qgraph/internal/dataset"

// Model is the unified, format-agnostic representation of a pipeline
// definition and everything needed to build its graph.
type Model struct {
	Dimensions  []*DimensionDefinition
	TaskClasses []*TaskClassDefinition
	Tasks       []*Task
	// Catalog is nil unless the configuration carries a catalog fixture.
	Catalog *CatalogFixture
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// Merge appends the contents of other to m. A later catalog fixture is
// merged into the earlier one.
func (m *Model) Merge(other *Model) {
	m.Dimensions = append(m.Dimensions, other.Dimensions...)
	m.TaskClasses = append(m.TaskClasses, other.TaskClasses...)
	m.Tasks = append(m.Tasks, other.Tasks...)
	if other.Catalog == nil {
		return
	}
	if m.Catalog == nil {
		m.Catalog = &CatalogFixture{}
	}
	m.Catalog.DataIDs = append(m.Catalog.DataIDs, other.Catalog.DataIDs...)
	m.Catalog.Collections = append(m.Catalog.Collections, other.Catalog.Collections...)
	m.Catalog.Datasets = append(m.Catalog.Datasets, other.Catalog.Datasets...)
}

// DimensionDefinition is the format-agnostic representation of a `dimension` block.
type DimensionDefinition struct {
	Name  string
	Links []string
}

// --- Task Class Manifest Models ---

// TaskClassDefinition is the format-agnostic representation of a task class manifest.
type TaskClassDefinition struct {
	Name        string
	Version     string
	Description string
	Inputs      []*ConnectionDefinition
	Outputs     []*ConnectionDefinition
	InitInputs  []*ConnectionDefinition
	InitOutputs []*ConnectionDefinition
}

// ConnectionDefinition declares one dataset a task class reads or writes.
type ConnectionDefinition struct {
	Name        string
	DatasetType string
	Dimensions  []string
}

// --- Pipeline Models ---

// Task is the format-agnostic representation of a `task` block.
type Task struct {
	Label             string
	Class             string
	QuantumDimensions []string
	Connections       map[string]string
}

// --- Catalog Fixture Models ---

// CatalogFixture describes catalog content declared alongside a pipeline.
type CatalogFixture struct {
	DataIDs     []dataset.DataCoordinate
	Collections []*CollectionDefinition
	Datasets    []*DatasetDefinition
}

// CollectionDefinition declares a collection; a non-empty Children list
// makes it a chain searched in order.
type CollectionDefinition struct {
	Name     string
	Children []string
}

// DatasetDefinition declares one existing dataset.
type DatasetDefinition struct {
	DatasetType string
	Collection  string
	DataID      dataset.DataCoordinate
}
