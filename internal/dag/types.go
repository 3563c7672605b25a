package dag

import "sync"

// Graph is a collection of nodes and labeled edges. All operations on the
// graph are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	// order records insertion order so traversals are deterministic.
	order []string
}

// node is un-exported to enforce interaction with the graph via string IDs.
type node struct {
	id string
	// deps maps predecessor IDs to the labels of the edges from them.
	deps map[string][]string
	// dependents maps successor IDs to the labels of the edges to them.
	dependents map[string][]string
}
