// Package registry is the task registry: it maps task class names to loaded
// task implementations.
//
// Task classes come from two places. Go code registers classes through
// Module.Register, and task class manifests declared in configuration are
// turned into ManifestClass values by PopulateFromModel. Every class carries
// a semantic version, and a task reference may pin a constraint with the
// "name@constraint" form (e.g. "isr@^1.2"). LoadTaskClass resolves a
// reference to the highest matching version and reports the canonical
// "name@version" name.
//
// During startup the registry is populated and then validated so that
// malformed manifests are rejected before any graph is built.
package registry
