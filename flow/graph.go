package flow

import (
	"fmt"

	"github.com/google/uuid"
)

// Graph is the node/edge collection representing a user's workflow. It owns
// identity and per-node configuration; all validation and annotation logic
// treats it as an immutable snapshot.
type Graph struct {
	nodes map[string]*Node
	order []string // insertion order, for deterministic iteration
	edges []Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// NewGraphFrom builds a graph from existing node and edge collections, as
// supplied by import, templates, or backend-generated flows. Edges whose
// endpoints do not resolve are dropped.
func NewGraphFrom(nodes []Node, edges []Edge) *Graph {
	g := NewGraph()
	for i := range nodes {
		n := nodes[i]
		g.putNode(&n)
	}
	for _, e := range edges {
		if g.HasNode(e.Source) && g.HasNode(e.Target) {
			g.edges = append(g.edges, e)
		}
	}
	return g
}

func (g *Graph) putNode(n *Node) {
	if _, exists := g.nodes[n.ID]; !exists {
		g.order = append(g.order, n.ID)
	}
	g.nodes[n.ID] = n
}

// AddNode adds a node to the graph. The ID must be unique; an empty ID is
// assigned a generated one.
func (g *Graph) AddNode(n Node) (*Node, error) {
	if n.ID == "" {
		n.ID = "node-" + uuid.NewString()[:8]
	}
	if _, exists := g.nodes[n.ID]; exists {
		return nil, fmt.Errorf("duplicate node id: %s", n.ID)
	}
	if !n.Category.Valid() {
		return nil, fmt.Errorf("unknown node category: %s", n.Category)
	}
	g.putNode(&n)
	return g.nodes[n.ID], nil
}

// RemoveNode deletes a node and prunes every incident edge. Edge pruning is
// an explicit invariant of the graph model, not something the canvas layer
// is trusted to do.
func (g *Graph) RemoveNode(id string) bool {
	if _, exists := g.nodes[id]; !exists {
		return false
	}
	delete(g.nodes, id)
	for i, nid := range g.order {
		if nid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	return true
}

// Node retrieves a node by ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns a copy of the edge set.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Incoming returns the edges whose target is the given node.
func (g *Graph) Incoming(nodeID string) []Edge {
	var in []Edge
	for _, e := range g.edges {
		if e.Target == nodeID {
			in = append(in, e)
		}
	}
	return in
}

// Outgoing returns the edges whose source is the given node.
func (g *Graph) Outgoing(nodeID string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// addEdge appends a validated edge. Only the validator gate (Connect) may
// call it; edges are never created directly.
func (g *Graph) addEdge(e Edge) *Edge {
	if e.ID == "" {
		e.ID = fmt.Sprintf("e-%s-%s", e.Source, e.Target)
	}
	g.edges = append(g.edges, e)
	return &g.edges[len(g.edges)-1]
}

// Connect validates the candidate edge against the given validator and adds
// it only when accepted. The returned Decision carries the user feedback
// either way.
func (g *Graph) Connect(v *Validator, candidate Edge) (Decision, *Edge) {
	decision := v.ValidateConnection(g, candidate)
	if !decision.Accepted {
		return decision, nil
	}
	return decision, g.addEdge(candidate)
}

// Category resolves a node's category, with ok=false when the node is
// missing.
func (g *Graph) Category(nodeID string) (NodeCategory, bool) {
	n, ok := g.nodes[nodeID]
	if !ok {
		return "", false
	}
	return n.Category, true
}
