// Package pkg provides the core libraries for relnet.
//
// # Overview
//
// relnet compiles a declarative YAML or TOML document describing sequences,
// branches, merges and cliques between named entities into a graph model with
// resolved visual attributes, and renders that model with Graphviz.
//
// # Architecture
//
// The data flow through relnet:
//
//	YAML / TOML document
//	         ↓
//	    [document] (ordered sections, blocks, entries)
//	         ↓
//	    [classify] + [attr] (shape per entry, layered attributes)
//	         ↓
//	    [graph] (builder, sealed snapshot)
//	         ↓
//	    [postprocess] (degree, scaling, recolor, report)
//	         ↓
//	    [render/nodelink] (DOT, SVG, PNG) or JSON
//
// [pipeline] drives these stages for the CLI and the HTTP API so both share
// caching, logging and observability.
//
// # Quick Start
//
//	doc, _ := document.Load("network.yaml")
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, _ := runner.Execute(ctx, doc, pipeline.Options{Format: "svg"})
//	os.WriteFile("network.svg", res.Artifact, 0o644)
//
// # Main Packages
//
// [config] - Built-in defaults merged with the document's config key.
//
// [image] - Image providers: local file lookup and MediaWiki download.
//
// [cache] - File, Redis and MongoDB caches for graphs, artifacts and image
// lookups.
//
// [httputil] - Rate-limited, retrying HTTP client.
//
// [observability] - Pipeline, cache and HTTP hooks with a Prometheus
// implementation.
//
// [errors] - Coded errors carrying a document location.
//
// [buildinfo] - Version information injected at build time.
//
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/pipeline
// [config]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/config
// [image]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/image
// [cache]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/buildinfo
//
// [document]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/document
// [classify]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/classify
// [attr]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/attr
// [graph]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/graph
// [postprocess]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/postprocess
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/relnet/pkg/render/nodelink
package pkg
