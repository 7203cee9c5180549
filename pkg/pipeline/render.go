package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/relnet/pkg/cache"
	"github.com/matzehuels/relnet/pkg/graph"
	"github.com/matzehuels/relnet/pkg/observability"
	"github.com/matzehuels/relnet/pkg/render/nodelink"
)

// Render encodes g in the requested format. JSON is the graph model itself;
// the other formats go through the node-link renderer.
func Render(ctx context.Context, g *graph.Graph, opts Options) ([]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if opts.Format == FormatJSON {
		return graph.Marshal(g)
	}
	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: opts.Detailed})
	return nodelink.Render(ctx, dot, nodelink.Format(opts.Format), nodelink.Layout(opts.Layout))
}

// RenderWithCacheInfo renders g with artifact caching keyed by graph
// content and render options, and reports whether the cache was hit.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *graph.Graph, opts Options) ([]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	hooks := observability.Pipeline()
	cacheHooks := observability.Cache()

	graphData, err := graph.Marshal(g)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.ArtifactKey(cache.Hash(graphData), opts.artifactKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			cacheHooks.OnCacheHit(ctx, "artifact")
			return data, true, nil
		}
		cacheHooks.OnCacheMiss(ctx, "artifact")
	}

	hooks.OnRenderStart(ctx, opts.Format)
	start := time.Now()
	data, err := Render(ctx, g, opts)
	hooks.OnRenderComplete(ctx, opts.Format, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
		cacheHooks.OnCacheSet(ctx, "artifact", len(data))
	}
	return data, false, nil
}

func (o *Options) artifactKeyOpts() cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: o.Format}
	if o.Format != FormatJSON && o.Format != FormatDOT {
		k.Layout = o.Layout
	}
	if o.Detailed && o.Format != FormatJSON {
		k.Format += "+detailed"
	}
	return k
}
