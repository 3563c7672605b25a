// Package dag is a small, concurrency-safe directed graph keyed by string
// IDs. The graph builder uses it to model which pipeline tasks consume the
// products of which others, and to reject pipelines whose tasks depend on
// each other in a cycle.
package dag
