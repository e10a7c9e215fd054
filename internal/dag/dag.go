// Package dag builds the dependency graph between fields of a project.
// Nodes are field keys ("view.field"); an edge runs from a referenced field
// to the field whose SQL references it. It supports cycle detection,
// topological ordering and upstream/downstream queries.
package dag

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// Resolver resolves a placeholder name to a field selection.
// registry.Project satisfies it.
type Resolver interface {
	ResolveField(name, viewHint string) (core.Selection, error)
}

// FieldError is a reference in Field that could not be resolved.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// Node is a field in the graph.
type Node struct {
	// ID is the field key (view.field).
	ID string
	// Field is nil for nodes added without a definition.
	Field *core.Field
}

// Graph is a directed graph of field dependencies.
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]string // referenced -> referencing
	parents map[string][]string // referencing -> referenced
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// Build adds every field as a node and links each to the fields its
// templates reference. Unresolvable references and self-references are
// collected and returned joined; the graph is still usable.
func Build(fields []*core.Field, r Resolver) (*Graph, error) {
	g := NewGraph()
	for _, f := range fields {
		g.AddNode(f.Key(), f)
	}

	var errs []error
	for _, f := range fields {
		for _, name := range references(f) {
			sel, err := r.ResolveField(name, f.View())
			if err != nil {
				errs = append(errs, &FieldError{Field: f.Key(), Err: err})
				continue
			}
			dep := sel.Field.Key()
			if _, ok := g.nodes[dep]; !ok {
				g.AddNode(dep, sel.Field)
			}
			if err := g.AddEdge(dep, f.Key()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return g, errors.Join(errs...)
}

// references lists the field placeholders in every template of f.
func references(f *core.Field) []string {
	var out []string
	for _, tpl := range []string{f.Template(), f.SQLStart(), f.SQLEnd()} {
		for _, name := range core.ReferencedNames(tpl) {
			if name != core.TableMarker && !slices.Contains(out, name) {
				out = append(out, name)
			}
		}
	}
	return out
}

// AddNode adds a node, replacing the field of an existing one.
func (g *Graph) AddNode(id string, f *core.Field) {
	if n, exists := g.nodes[id]; exists {
		n.Field = f
		return
	}
	g.nodes[id] = &Node{ID: id, Field: f}
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge records that child references parent. A field referencing itself
// is reported as a *core.CycleError.
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	if parentID == childID {
		return &core.CycleError{Path: []string{parentID, parentID}}
	}

	if !slices.Contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
		slices.Sort(g.edges[parentID])
	}
	if !slices.Contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
		slices.Sort(g.parents[childID])
	}
	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	n, exists := g.nodes[id]
	return n, exists
}

// GetParents returns the fields id references directly.
func (g *Graph) GetParents(id string) []string {
	return slices.Clone(g.parents[id])
}

// GetChildren returns the fields referencing id directly.
func (g *Graph) GetChildren(id string) []string {
	return slices.Clone(g.edges[id])
}

// GetAllNodes returns all nodes sorted by ID.
func (g *Graph) GetAllNodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, id := range g.sortedIDs() {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// HasCycle reports whether the graph contains a cycle, along with one cycle
// path whose first and last entries are the same node. Nodes are visited in
// sorted order so the reported path is stable.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string
	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				if dfs(childID) {
					return true
				}
			} else if onStack[childID] {
				start := slices.Index(stack, childID)
				cyclePath = append(slices.Clone(stack[start:]), childID)
				return true
			}
		}

		stack = stack[:len(stack)-1]
		onStack[id] = false
		return false
	}

	for _, id := range g.sortedIDs() {
		if !visited[id] && dfs(id) {
			return true, cyclePath
		}
	}
	return false, nil
}

// Cycles returns one *core.CycleError per strongly connected group of fields
// that reference each other. Each path starts at the smallest key of its
// group. The result is sorted by that key.
func (g *Graph) Cycles() []*core.CycleError {
	var out []*core.CycleError
	for _, comp := range g.components() {
		if len(comp) < 2 {
			continue
		}
		out = append(out, &core.CycleError{Path: g.cycleWithin(comp)})
	}
	slices.SortFunc(out, func(a, b *core.CycleError) int {
		return cmp.Compare(a.Path[0], b.Path[0])
	})
	return out
}

// components computes strongly connected components (Tarjan). Each
// component is returned sorted.
func (g *Graph) components() [][]string {
	index := 0
	indices := make(map[string]int)
	low := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var out [][]string

	var connect func(id string)
	connect = func(id string) {
		indices[id] = index
		low[id] = index
		index++
		stack = append(stack, id)
		onStack[id] = true

		for _, next := range g.edges[id] {
			if _, seen := indices[next]; !seen {
				connect(next)
				low[id] = min(low[id], low[next])
			} else if onStack[next] {
				low[id] = min(low[id], indices[next])
			}
		}

		if low[id] == indices[id] {
			var comp []string
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[top] = false
				comp = append(comp, top)
				if top == id {
					break
				}
			}
			slices.Sort(comp)
			out = append(out, comp)
		}
	}

	for _, id := range g.sortedIDs() {
		if _, seen := indices[id]; !seen {
			connect(id)
		}
	}
	return out
}

// cycleWithin finds a path from the first node of comp back to itself using
// only nodes of comp.
func (g *Graph) cycleWithin(comp []string) []string {
	start := comp[0]
	prev := map[string]string{}
	queue := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range g.edges[id] {
			if !slices.Contains(comp, next) {
				continue
			}
			if next == start {
				path := []string{start}
				for cur := id; cur != start; cur = prev[cur] {
					path = append(path, cur)
				}
				slices.Reverse(path[1:])
				return append(path, start)
			}
			if _, seen := prev[next]; !seen {
				prev[next] = id
				queue = append(queue, next)
			}
		}
	}
	return []string{start, start}
}

// TopologicalSort returns nodes with every field after the fields it
// references. Ties are broken by key.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, &core.CycleError{Path: cyclePath}
	}

	visited := make(map[string]bool)
	result := make([]*Node, 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, parentID := range g.parents[id] {
			visit(parentID)
		}
		result = append(result, g.nodes[id])
	}

	for _, id := range g.sortedIDs() {
		visit(id)
	}
	return result, nil
}

// GetAffectedNodes returns the given nodes and everything that references
// them transitively, sorted. Unknown IDs are ignored.
func (g *Graph) GetAffectedNodes(changedIDs []string) []string {
	affected := make(map[string]bool)

	var mark func(id string)
	mark = func(id string) {
		if affected[id] {
			return
		}
		affected[id] = true
		for _, childID := range g.edges[id] {
			mark(childID)
		}
	}

	for _, id := range changedIDs {
		if _, exists := g.nodes[id]; exists {
			mark(id)
		}
	}
	return sortedKeys(affected)
}

// GetUpstreamNodes returns every field id depends on, directly or not, sorted.
func (g *Graph) GetUpstreamNodes(id string) []string {
	upstream := make(map[string]bool)

	var mark func(nodeID string)
	mark = func(nodeID string) {
		for _, parentID := range g.parents[nodeID] {
			if !upstream[parentID] {
				upstream[parentID] = true
				mark(parentID)
			}
		}
	}

	mark(id)
	delete(upstream, id)
	return sortedKeys(upstream)
}

// GetRoots returns fields that reference no other field.
func (g *Graph) GetRoots() []string {
	var roots []string
	for _, id := range g.sortedIDs() {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
