package dag

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a node. Adding an existing ID does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
	}
	g.order = append(g.order, id)
}

// AddEdge records that toID depends on fromID. Labels accumulate on repeated
// edges between the same pair. Both nodes must exist and differ.
func (g *Graph) AddEdge(fromID, toID, label string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = addLabel(toNode.deps[fromID], label)
	fromNode.dependents[toID] = addLabel(fromNode.dependents[toID], label)
	return nil
}

func addLabel(labels []string, label string) []string {
	if label == "" || slices.Contains(labels, label) {
		return labels
	}
	labels = append(labels, label)
	sort.Strings(labels)
	return labels
}

// Dependencies returns the sorted IDs the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.deps), nil
}

// Dependents returns the sorted IDs that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.dependents), nil
}

// EdgeLabels returns the labels on the edge fromID -> toID, or nil.
func (g *Graph) EdgeLabels(fromID, toID string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[toID]
	if !ok {
		return nil
	}
	return slices.Clone(n.deps[fromID])
}

// DetectCycles returns an error naming the nodes of the first cycle found,
// visiting nodes in insertion order.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	permanent := make(map[string]bool)
	var stack []string
	onStack := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if onStack[n.id] {
			start := slices.Index(stack, n.id)
			cycle := append(slices.Clone(stack[start:]), n.id)
			return fmt.Errorf("cycle detected: %s", strings.Join(cycle, " -> "))
		}

		onStack[n.id] = true
		stack = append(stack, n.id)
		for _, next := range sortedKeys(n.dependents) {
			if err := visit(g.nodes[next]); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalOrder returns every node after all of its dependencies. Ties
// keep insertion order. It fails if the graph has a cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	pending := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		pending[id] = len(n.deps)
	}
	out := make([]string, 0, len(g.nodes))
	done := make(map[string]bool, len(g.nodes))
	for len(out) < len(g.order) {
		for _, id := range g.order {
			if done[id] || pending[id] > 0 {
				continue
			}
			done[id] = true
			out = append(out, id)
			for dep := range g.nodes[id].dependents {
				pending[dep]--
			}
			break
		}
	}
	return out, nil
}

func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
