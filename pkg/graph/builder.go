package graph

import (
	"maps"

	"github.com/matzehuels/relnet/pkg/attr"
	"github.com/matzehuels/relnet/pkg/classify"
	"github.com/matzehuels/relnet/pkg/errors"
)

// Occurrence is one classified entry with its resolved attributes.
type Occurrence struct {
	Section string
	Shape   classify.Shape
	// Node is applied to every name the entry references.
	Node attr.Attrs
	// Edge is applied to every edge the entry emits. An absent title
	// defaults to Section.
	Edge     attr.Attrs
	Directed bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithMeta attaches pass-through metadata to the built graph.
func WithMeta(meta map[string]any) Option {
	return func(b *Builder) { b.meta = maps.Clone(meta) }
}

// WithImages sets image paths by node name. A node whose name has a path gets
// shape "image" and the path as its image attribute when first created;
// explicit attributes from the document still take precedence.
func WithImages(paths map[string]string) Option {
	return func(b *Builder) { b.images = paths }
}

// Builder accumulates nodes and edges in document order.
//
// The zero value is not usable; use [NewBuilder].
type Builder struct {
	nodes  []Node
	index  map[string]int
	edges  []Edge
	meta   map[string]any
	images map[string]string
	sealed bool
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{index: make(map[string]int)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add merges the entry's nodes and emits its edges.
func (b *Builder) Add(o Occurrence) error {
	if b.sealed {
		return errors.New(errors.ErrCodeInternal, "builder is sealed")
	}
	if o.Shape == nil {
		return errors.New(errors.ErrCodeInternal, "occurrence has no shape")
	}

	for _, name := range o.Shape.Names() {
		b.mergeNode(name, o.Node)
	}

	edge := o.Edge.Clone()
	if _, ok := edge[attr.KeyTitle]; !ok && o.Section != "" {
		edge[attr.KeyTitle] = o.Section
	}
	kind := o.Shape.Kind().String()
	emit := func(src, dst string) {
		b.edges = append(b.edges, Edge{
			Index:    len(b.edges),
			Source:   src,
			Target:   dst,
			Directed: o.Directed,
			Kind:     kind,
			Section:  o.Section,
			Attrs:    edge.Clone(),
		})
	}

	switch s := o.Shape.(type) {
	case classify.Linear:
		for _, seq := range s.Sequences {
			if len(seq) < 2 {
				continue
			}
			for i := 0; i+1 < len(seq); i++ {
				emit(seq[i], seq[i+1])
			}
			if s.Closed {
				emit(seq[len(seq)-1], seq[0])
			}
		}
	case classify.Branching:
		for _, src := range s.From {
			for _, dst := range s.To {
				emit(src, dst)
			}
		}
	case classify.Clique:
		for i := 0; i < len(s.Members); i++ {
			for j := i + 1; j < len(s.Members); j++ {
				emit(s.Members[i], s.Members[j])
			}
		}
	default:
		return errors.New(errors.ErrCodeInternal, "unknown shape %T", o.Shape)
	}
	return nil
}

// mergeNode creates the node on first reference, then applies attrs per key.
func (b *Builder) mergeNode(name string, attrs attr.Attrs) {
	i, ok := b.index[name]
	if !ok {
		n := Node{Name: name, Attrs: make(attr.Attrs)}
		if path, ok := b.images[name]; ok && path != "" {
			n.Attrs["shape"] = "image"
			n.Attrs[attr.KeyImage] = path
		}
		i = len(b.nodes)
		b.nodes = append(b.nodes, n)
		b.index[name] = i
	}
	b.nodes[i].Attrs.Update(attrs)
}

// NodeCount returns the number of nodes created so far.
func (b *Builder) NodeCount() int { return len(b.nodes) }

// EdgeCount returns the number of edges emitted so far.
func (b *Builder) EdgeCount() int { return len(b.edges) }

// Seal ends the building stage and returns an independent snapshot. Node
// titles default to the node name and BaseSize is fixed from the merged size
// attribute. Add fails after Seal.
func (b *Builder) Seal() (*Graph, error) {
	if b.sealed {
		return nil, errors.New(errors.ErrCodeInternal, "builder already sealed")
	}
	b.sealed = true

	g := &Graph{
		Meta:  maps.Clone(b.meta),
		Nodes: make([]Node, len(b.nodes)),
		Edges: make([]Edge, len(b.edges)),
	}
	for i, n := range b.nodes {
		n = n.clone()
		if _, ok := n.Attrs[attr.KeyTitle]; !ok {
			n.Attrs[attr.KeyTitle] = n.Name
		}
		n.BaseSize = attr.DefaultNodeSize
		if size, ok := attr.Float(n.Attrs[attr.KeySize]); ok {
			n.BaseSize = size
		}
		g.Nodes[i] = n
	}
	for i, e := range b.edges {
		g.Edges[i] = e.clone()
	}
	g.ensureIndex()
	return g, nil
}
