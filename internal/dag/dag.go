// Package dag provides directed acyclic graph operations for view join
// dependencies. Node order is insertion order, so every traversal is
// deterministic and ties are broken by the order nodes were added.
package dag

import (
	"fmt"
	"slices"
)

// Node represents a node in the DAG.
type Node[T any] struct {
	// ID is the unique identifier (view name)
	ID string
	// Data holds the node payload
	Data T
}

// Graph represents a directed acyclic graph.
type Graph[T any] struct {
	order   []string
	nodes   map[string]*Node[T]
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph[T any]() *Graph[T] {
	return &Graph[T]{
		nodes:   make(map[string]*Node[T]),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph. Adding an existing ID replaces its data
// and keeps its position.
func (g *Graph[T]) AddNode(id string, data T) {
	if node, exists := g.nodes[id]; exists {
		node.Data = data
		return
	}
	g.nodes[id] = &Node[T]{ID: id, Data: data}
	g.order = append(g.order, id)
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
func (g *Graph[T]) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	if !slices.Contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !slices.Contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// GetParents returns the parents (dependencies) of a node in the order
// their edges were added.
func (g *Graph[T]) GetParents(id string) []string {
	return g.parents[id]
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph[T]) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return true, cyclePath
		}
	}
	return false, nil
}

// Levels returns node IDs grouped by level. Level 0 holds nodes with no
// dependencies; a node's level is one more than its deepest parent. Within a
// level, nodes keep insertion order.
func (g *Graph[T]) Levels() ([][]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	assigned := make(map[string]int, len(g.nodes))
	var getLevel func(id string) int
	getLevel = func(id string) int {
		if level, ok := assigned[id]; ok {
			return level
		}
		level := 0
		for _, parentID := range g.parents[id] {
			level = max(level, getLevel(parentID)+1)
		}
		assigned[id] = level
		return level
	}

	var levels [][]string
	for _, id := range g.order {
		level := getLevel(id)
		for len(levels) <= level {
			levels = append(levels, nil)
		}
		levels[level] = append(levels[level], id)
	}
	return levels, nil
}

// TopologicalSort returns nodes level by level: every node follows all of
// its dependencies, and nodes on the same level keep insertion order.
func (g *Graph[T]) TopologicalSort() ([]*Node[T], error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	result := make([]*Node[T], 0, len(g.nodes))
	for _, level := range levels {
		for _, id := range level {
			result = append(result, g.nodes[id])
		}
	}
	return result, nil
}
