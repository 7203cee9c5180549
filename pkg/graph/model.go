package graph

import (
	"maps"

	"github.com/matzehuels/relnet/pkg/attr"
)

// =============================================================================
// Node
// =============================================================================

// Node is a named entity with merged attributes.
type Node struct {
	Name  string     `json:"name"`
	Attrs attr.Attrs `json:"attrs,omitempty"`

	// BaseSize is the size before degree scaling. Scaling always starts from
	// it, so re-running post-processing never compounds.
	BaseSize float64 `json:"base_size"`
	Degree   int     `json:"degree"`
	// Color is the resolved color after post-processing, if any.
	Color string `json:"color,omitempty"`
}

// Title returns the node's display title, defaulting to its name.
func (n *Node) Title() string {
	if t, ok := n.Attrs[attr.KeyTitle].(string); ok && t != "" {
		return t
	}
	return n.Name
}

func (n Node) clone() Node {
	n.Attrs = n.Attrs.Clone()
	return n
}

// =============================================================================
// Edge
// =============================================================================

// Edge is one connection implied by an entry. Multiple edges between the same
// pair are distinct and identified by Index.
type Edge struct {
	Index    int        `json:"index"`
	Source   string     `json:"source"`
	Target   string     `json:"target"`
	Directed bool       `json:"directed"`
	Kind     string     `json:"kind"`
	Section  string     `json:"section,omitempty"`
	Attrs    attr.Attrs `json:"attrs,omitempty"`
}

// IsSelfLoop reports whether the edge starts and ends at the same node.
func (e *Edge) IsSelfLoop() bool { return e.Source == e.Target }

// Color returns the edge's color name, accepting plain and object colors.
func (e *Edge) Color() (string, bool) {
	return attr.ColorName(e.Attrs[attr.KeyColor])
}

func (e Edge) clone() Edge {
	e.Attrs = e.Attrs.Clone()
	return e
}

// =============================================================================
// Graph
// =============================================================================

// Graph is a sealed snapshot of the network. Nodes appear in first-seen order
// and edges in creation order.
type Graph struct {
	Meta  map[string]any `json:"meta,omitempty"`
	Nodes []Node         `json:"nodes"`
	Edges []Edge         `json:"edges"`

	index map[string]int
}

// Node returns the node with the given name. The pointer refers into the
// graph and may be used to update it.
func (g *Graph) Node(name string) (*Node, bool) {
	g.ensureIndex()
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	return &g.Nodes[i], true
}

// NodeNames returns node names in first-seen order.
func (g *Graph) NodeNames() []string {
	names := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		names[i] = n.Name
	}
	return names
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// Clone returns a deep copy of the graph's nodes, edges and attribute maps.
// Meta is copied one level deep.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Meta:  maps.Clone(g.Meta),
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.clone()
	}
	for i, e := range g.Edges {
		out.Edges[i] = e.clone()
	}
	return out
}

func (g *Graph) ensureIndex() {
	if g.index != nil && len(g.index) == len(g.Nodes) {
		return
	}
	g.index = make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		g.index[n.Name] = i
	}
}
