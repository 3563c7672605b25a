// Package schema holds the gohcl-tagged structs that mirror the pipeline file
// format. The structs carry no behaviour; internal/hcl translates them into
// the format-agnostic config model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// File is the set of top-level blocks any pipeline file may contain. Any
// other block is a decode error.
type File struct {
	Dimensions  []*Dimension `hcl:"dimension,block"`
	TaskClasses []*TaskClass `hcl:"task_class,block"`
	Tasks       []*Task      `hcl:"task,block"`
	Catalogs    []*Catalog   `hcl:"catalog,block"`
}

// --- Dimension Universe ---

// Dimension represents a `dimension` block.
type Dimension struct {
	Name  string   `hcl:"name,label"`
	Links []string `hcl:"links,optional"`
}

// --- Task Class Manifests ---

// Connection represents one `input`, `output`, `init_input` or `init_output`
// block inside a task class. DatasetType defaults to the block label.
type Connection struct {
	Name        string   `hcl:"name,label"`
	DatasetType string   `hcl:"dataset_type,optional"`
	Dimensions  []string `hcl:"dimensions,optional"`
}

// TaskClass represents a `task_class` block: a declarative manifest of the
// datasets a task reads and writes.
type TaskClass struct {
	Name        string        `hcl:"name,label"`
	Version     string        `hcl:"version,optional"`
	Description string        `hcl:"description,optional"`
	Inputs      []*Connection `hcl:"input,block"`
	Outputs     []*Connection `hcl:"output,block"`
	InitInputs  []*Connection `hcl:"init_input,block"`
	InitOutputs []*Connection `hcl:"init_output,block"`
}

// --- Pipeline ---

// Task represents a `task` block, one step of the pipeline.
type Task struct {
	Label             string            `hcl:"label,label"`
	Class             string            `hcl:"class"`
	QuantumDimensions []string          `hcl:"quantum_dimensions,optional"`
	Connections       map[string]string `hcl:"connections,optional"`
}

// --- Catalog Fixture ---

// Collection represents a `collection` block. A collection with children is
// a chain.
type Collection struct {
	Name     string   `hcl:"name,label"`
	Children []string `hcl:"children,optional"`
}

// Dataset represents a `dataset` block declaring one existing dataset.
type Dataset struct {
	DatasetType string         `hcl:"dataset_type,label"`
	Collection  string         `hcl:"collection"`
	DataID      hcl.Expression `hcl:"data_id"`
}

// Catalog represents a `catalog` block.
type Catalog struct {
	DataIDs     hcl.Expression `hcl:"data_ids,optional"`
	Collections []*Collection  `hcl:"collection,block"`
	Datasets    []*Dataset     `hcl:"dataset,block"`
}
