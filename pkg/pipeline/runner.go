package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/relnet/pkg/cache"
	"github.com/matzehuels/relnet/pkg/document"
	"github.com/matzehuels/relnet/pkg/image"
)

// ProviderFunc builds the image provider for one compilation from the
// document's image settings. Returning nil disables images.
type ProviderFunc func(image.Settings) image.Provider

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so caching and logging behave the same.
//
// The Runner is stateless apart from its collaborators: every Compile call
// owns its own state, so one Runner may serve concurrent requests.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Provider builds image providers. Defaults to [image.New] sharing the
	// runner's cache, keyer and logger.
	Provider ProviderFunc
}

// NewRunner creates a runner with the given cache, keyer and logger.
// A nil cache disables caching, a nil keyer selects the default layout and
// a nil logger selects log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	r := &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
	r.Provider = func(s image.Settings) image.Provider {
		return image.New(s, image.Options{Cache: r.Cache, Keyer: r.Keyer, Logger: r.Logger})
	}
	return r
}

// Execute compiles doc and renders the result in opts.Format.
func (r *Runner) Execute(ctx context.Context, doc *document.Document, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result, err := r.Compile(ctx, doc, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	data, hit, err := r.RenderWithCacheInfo(ctx, result.Graph, opts)
	if err != nil {
		return nil, err
	}
	result.Artifact = data
	result.Format = opts.Format
	result.Stats.RenderTime = time.Since(start)
	result.CacheInfo.RenderHit = hit

	opts.Logger.Info("rendered network",
		"format", opts.Format,
		"bytes", len(data),
		"cached", hit,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
