// Package app wires the pieces of a graph build together: it loads pipeline
// files, registers task classes, opens a catalog, runs the graph builder and
// renders the result. It is decoupled from any specific entrypoint; the CLI
// in cmd/qgraph is a thin shell around it.
package app
