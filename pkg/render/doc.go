// Package render groups relnet's rendering backends.
//
// The compiler hands a sealed graph model to a backend and never depends on
// one. The only bundled backend is [nodelink], which draws the network with
// Graphviz:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.Render(ctx, dot, nodelink.FormatSVG, nodelink.DefaultLayout)
//
// The JSON graph model written by `relnet build --format json` is the
// hand-off point for external backends such as vis-network.
//
// [nodelink]: github.com/matzehuels/relnet/pkg/render/nodelink
package render
