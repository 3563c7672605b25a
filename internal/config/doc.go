// Package config defines the format-agnostic model of a pipeline definition:
// dimensions, task class manifests, the ordered task list and an optional
// catalog fixture, along with the Loader interface that produces it.
//
// The `config.Model` is the single source of truth for the registry, the
// catalog fixture and the pipeline handed to the graph builder. Concrete
// loaders, such as for HCL, are provided in separate packages.
package config
