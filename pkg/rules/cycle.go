package rules

import (
	"fmt"
	"sort"
	"strings"
)

// Cycle is a strongly connected group of models. Compiling any member would
// recurse forever.
type Cycle struct {
	Path    []string `json:"path"`    // ["Tree", "Node", "Tree"]
	Message string   `json:"message"` // Human-readable description
}

// Reference is an edge from a model to another model: an extends link or a
// field type (TYPE, ITEM, RECORD, NULLABLE, union members).
type Reference struct {
	Model  string `json:"model"`
	Field  string `json:"field,omitempty"` // empty for extends links
	Target string `json:"target"`
}

// References lists every edge leaving model, in declaration order.
func (r *Registry) References(modelName string) []Reference {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.referencesLocked(modelName)
}

func (r *Registry) referencesLocked(modelName string) []Reference {
	m, ok := r.models[modelName]
	if !ok {
		return nil
	}
	var refs []Reference
	if m.parent != "" {
		refs = append(refs, Reference{Model: modelName, Target: m.parent})
	}
	for _, fieldName := range m.fieldOrder {
		fr := m.fields[fieldName]
		for _, kind := range fr.order {
			if !kind.typeValued() {
				continue
			}
			t, _ := fr.values[kind].(Type)
			for _, target := range t.Refs() {
				refs = append(refs, Reference{Model: modelName, Field: fieldName, Target: target})
			}
		}
	}
	return refs
}

// UnknownReferences lists edges whose target was never declared. Such
// field references compile to a plain {type: object}.
func (r *Registry) UnknownReferences() []Reference {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Reference
	for _, name := range r.order {
		for _, ref := range r.referencesLocked(name) {
			if t, ok := r.models[ref.Target]; !ok || !t.declared {
				out = append(out, ref)
			}
		}
	}
	return out
}

// dependencyGraph maps model → models it extends or references.
type dependencyGraph map[string][]string

func (r *Registry) buildDependencyGraph() dependencyGraph {
	graph := make(dependencyGraph)
	for name := range r.models {
		seen := map[string]bool{}
		edges := []string{}
		for _, ref := range r.referencesLocked(name) {
			if !seen[ref.Target] {
				seen[ref.Target] = true
				edges = append(edges, ref.Target)
			}
		}
		sort.Strings(edges)
		graph[name] = edges
	}
	return graph
}

// AnalyzeCycles reports every cycle in the model graph.
//
// The graph has an edge for each extends link and each field reference.
// Tarjan's algorithm finds strongly connected components; components with
// more than one model, or a model referencing itself, are reported.
// An acyclic registry returns an empty list.
func (r *Registry) AnalyzeCycles() []Cycle {
	r.mu.RLock()
	graph := r.buildDependencyGraph()
	r.mu.RUnlock()

	cycles := []Cycle{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Path[0] < cycles[j].Path[0]
	})
	return cycles
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components. Nodes are visited in
// sorted order so results are deterministic.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToCycle(scc []string, graph dependencyGraph) Cycle {
	if len(scc) == 1 {
		return Cycle{
			Path:    []string{scc[0], scc[0]},
			Message: fmt.Sprintf("model references itself: %s → %s", scc[0], scc[0]),
		}
	}
	path := cyclePath(scc, graph)
	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("reference cycle: %s", strings.Join(path, " → ")),
	}
}

// cyclePath walks edges inside the SCC from its first member back to it.
func cyclePath(scc []string, graph dependencyGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := map[string]bool{}
	for {
		visited[current] = true
		next := ""
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		current = next
	}
}
