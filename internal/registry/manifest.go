package registry

import (
	"errors"
	"fmt"

	"github.com/vk/qgraph/internal/config"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/pipeline"
)

// ErrUnknownConnection is returned when a task configuration overrides a
// connection the task class does not declare.
var ErrUnknownConnection = errors.New("unknown connection")

// Category tags the four connection categories of a task class.
type Category int

const (
	Input Category = iota
	Output
	InitInput
	InitOutput
)

func (c Category) String() string {
	switch c {
	case Input:
		return "input"
	case Output:
		return "output"
	case InitInput:
		return "init_input"
	case InitOutput:
		return "init_output"
	default:
		return "unknown"
	}
}

// Connection is one declared dataset of a task class.
type Connection struct {
	Name        string
	DatasetType string
	Dimensions  []string
}

// ManifestClass is a task class described entirely by its declared
// connections. Configuration may rename the dataset type of any connection.
type ManifestClass struct {
	name        string
	connections [4][]Connection
}

// NewManifestClass builds a task class from a manifest definition.
func NewManifestClass(def *config.TaskClassDefinition) *ManifestClass {
	m := &ManifestClass{name: def.Name}
	for cat, defs := range [4][]*config.ConnectionDefinition{def.Inputs, def.Outputs, def.InitInputs, def.InitOutputs} {
		for _, cd := range defs {
			dsType := cd.DatasetType
			if dsType == "" {
				dsType = cd.Name
			}
			m.connections[cat] = append(m.connections[cat], Connection{
				Name:        cd.Name,
				DatasetType: dsType,
				Dimensions:  dataset.SortedUnique(cd.Dimensions),
			})
		}
	}
	return m
}

// Name implements pipeline.TaskClass.
func (m *ManifestClass) Name() string { return m.name }

// Connections returns the declared connections of one category.
func (m *ManifestClass) Connections(cat Category) []Connection {
	return append([]Connection(nil), m.connections[cat]...)
}

// InputDatasetTypes implements pipeline.TaskClass.
func (m *ManifestClass) InputDatasetTypes(cfg pipeline.TaskConfig) ([]dataset.DatasetType, error) {
	return m.datasetTypes(Input, cfg)
}

// OutputDatasetTypes implements pipeline.TaskClass.
func (m *ManifestClass) OutputDatasetTypes(cfg pipeline.TaskConfig) ([]dataset.DatasetType, error) {
	return m.datasetTypes(Output, cfg)
}

// InitInputDatasetTypes implements pipeline.TaskClass.
func (m *ManifestClass) InitInputDatasetTypes(cfg pipeline.TaskConfig) ([]dataset.DatasetType, error) {
	return m.datasetTypes(InitInput, cfg)
}

// InitOutputDatasetTypes implements pipeline.TaskClass.
func (m *ManifestClass) InitOutputDatasetTypes(cfg pipeline.TaskConfig) ([]dataset.DatasetType, error) {
	return m.datasetTypes(InitOutput, cfg)
}

func (m *ManifestClass) datasetTypes(cat Category, cfg pipeline.TaskConfig) ([]dataset.DatasetType, error) {
	if err := m.checkOverrides(cfg); err != nil {
		return nil, err
	}
	out := make([]dataset.DatasetType, 0, len(m.connections[cat]))
	for _, c := range m.connections[cat] {
		name := c.DatasetType
		if override, ok := cfg.Connections[c.Name]; ok {
			if override == "" {
				return nil, fmt.Errorf("task class %q: connection %q renamed to an empty dataset type", m.name, c.Name)
			}
			name = override
		}
		out = append(out, dataset.NewDatasetType(name, c.Dimensions...))
	}
	return out, nil
}

func (m *ManifestClass) checkOverrides(cfg pipeline.TaskConfig) error {
	for conn := range cfg.Connections {
		if !m.hasConnection(conn) {
			return fmt.Errorf("task class %q: %w %q in configuration", m.name, ErrUnknownConnection, conn)
		}
	}
	return nil
}

func (m *ManifestClass) hasConnection(name string) bool {
	for _, conns := range m.connections {
		for _, c := range conns {
			if c.Name == name {
				return true
			}
		}
	}
	return false
}
