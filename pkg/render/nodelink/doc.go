// Package nodelink renders compiled relationship networks as node-link diagrams.
//
// # Overview
//
// This is relnet's render adapter. It turns a sealed [graph.Graph] into
// Graphviz DOT source and rasterizes that source in-process through
// [github.com/goccy/go-graphviz], so no Graphviz installation is required.
//
// # Usage
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.Render(ctx, dot, nodelink.FormatSVG, nodelink.LayoutNeato)
//
// # Attribute Mapping
//
// Node and edge attributes use the vis-network vocabulary of the input
// document. [ToDOT] translates the subset Graphviz understands:
//
//   - node color, shape, size, title, label, image
//   - edge color, title, width, dashes, and the directed flag
//
// Attributes with no Graphviz counterpart (physics, smooth, font objects)
// stay in the graph model and are ignored here.
//
// [graph.Graph]: github.com/matzehuels/relnet/pkg/graph.Graph
package nodelink
