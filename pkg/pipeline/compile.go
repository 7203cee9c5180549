package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/relnet/pkg/attr"
	"github.com/matzehuels/relnet/pkg/cache"
	"github.com/matzehuels/relnet/pkg/classify"
	"github.com/matzehuels/relnet/pkg/config"
	"github.com/matzehuels/relnet/pkg/document"
	"github.com/matzehuels/relnet/pkg/errors"
	"github.com/matzehuels/relnet/pkg/graph"
	"github.com/matzehuels/relnet/pkg/image"
	"github.com/matzehuels/relnet/pkg/observability"
	"github.com/matzehuels/relnet/pkg/postprocess"
)

// compilation holds the state of one Compile call.
type compilation struct {
	machine

	ctx     context.Context
	runner  *Runner
	opts    Options
	logger  *log.Logger
	buildID string
	cfg     *config.Config

	occurrences []graph.Occurrence
	names       []string
	seen        map[string]bool
	images      map[string]string
	warnings    []Warning

	graph  *graph.Graph
	report postprocess.Report
	stats  Stats
}

// Compile turns a document into a post-processed graph. Structure and
// config errors abort the whole build; image problems become warnings
// unless opts.StrictImages is set.
func (r *Runner) Compile(ctx context.Context, doc *document.Document, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	buildID := uuid.NewString()
	hooks := observability.Pipeline()
	hooks.OnCompileStart(ctx, buildID)
	start := time.Now()

	res, err := r.compileCached(ctx, doc, opts, buildID)
	if err != nil {
		hooks.OnCompileComplete(ctx, buildID, 0, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnCompileComplete(ctx, buildID, res.Stats.NodeCount, res.Stats.EdgeCount, time.Since(start), nil)
	return res, nil
}

// cachedCompile is the cached form of a compilation.
type cachedCompile struct {
	Graph    *graph.Graph       `json:"graph"`
	Report   postprocess.Report `json:"report"`
	Warnings []Warning          `json:"warnings,omitempty"`
}

func (r *Runner) compileCached(ctx context.Context, doc *document.Document, opts Options, buildID string) (*Result, error) {
	cfg, err := config.Load(doc.Config)
	if err != nil {
		return nil, err
	}

	// Image paths depend on the provider and on files outside the document,
	// so graphs compiled with images are never cached.
	cacheable := !opts.imagesEnabled(cfg.DownloadImages)

	docHash, err := cache.HashJSON(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "hash document")
	}
	key := r.Keyer.GraphKey(docHash)
	cacheHooks := observability.Cache()

	if cacheable && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached cachedCompile
			if err := json.Unmarshal(data, &cached); err == nil && cached.Graph != nil {
				cacheHooks.OnCacheHit(ctx, "graph")
				opts.Logger.Debug("compiled graph from cache", "build", buildID)
				return r.result(buildID, cached.Graph, cached.Report, cached.Warnings, Stats{}, true), nil
			}
		}
		cacheHooks.OnCacheMiss(ctx, "graph")
	}

	c := &compilation{
		ctx:     ctx,
		runner:  r,
		opts:    opts,
		logger:  opts.Logger.With("build", buildID),
		buildID: buildID,
		cfg:     cfg,
		seen:    make(map[string]bool),
	}
	if err := c.run(doc); err != nil {
		return nil, err
	}
	if !cacheable {
		return r.result(buildID, c.graph, c.report, c.warnings, c.stats, false), nil
	}

	if data, err := json.Marshal(cachedCompile{Graph: c.graph, Report: c.report, Warnings: c.warnings}); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLGraph); err == nil {
			cacheHooks.OnCacheSet(ctx, "graph", len(data))
		}
	}
	return r.result(buildID, c.graph, c.report, c.warnings, c.stats, false), nil
}

func (r *Runner) result(buildID string, g *graph.Graph, rep postprocess.Report, warnings []Warning, stats Stats, hit bool) *Result {
	stats.NodeCount = g.NodeCount()
	stats.EdgeCount = g.EdgeCount()
	res := &Result{
		BuildID:  buildID,
		Graph:    g,
		Report:   rep,
		Warnings: warnings,
		Stats:    stats,
	}
	res.CacheInfo.GraphHit = hit
	if data, err := graph.Marshal(g); err == nil {
		res.GraphHash = cache.Hash(data)
	}
	return res
}

func (c *compilation) run(doc *document.Document) error {
	stages := []struct {
		state State
		fn    func(*document.Document) error
		stat  *time.Duration
	}{
		{StateClassifying, c.classify, &c.stats.ClassifyTime},
		{StateBuilding, c.build, &c.stats.BuildTime},
		{StatePostProcessed, c.postprocess, &c.stats.ProcessTime},
	}
	for _, s := range stages {
		if err := c.advance(s.state); err != nil {
			return err
		}
		start := time.Now()
		if err := s.fn(doc); err != nil {
			return err
		}
		*s.stat = time.Since(start)
		observability.Pipeline().OnStage(c.ctx, c.buildID, s.state.String(), *s.stat)
	}
	if err := c.advance(StateFinalized); err != nil {
		return err
	}

	c.logger.Info("compiled network",
		"nodes", c.graph.NodeCount(),
		"edges", c.graph.EdgeCount(),
		"warnings", len(c.warnings))
	return nil
}

// =============================================================================
// Classifying
// =============================================================================

func (c *compilation) classify(doc *document.Document) error {
	for _, sec := range doc.Sections {
		blocks, err := sec.Blocks()
		if err != nil {
			return err
		}
		for _, b := range blocks {
			for _, e := range b.Entries {
				if err := c.classifyEntry(sec.Name, b, e); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *compilation) classifyEntry(section string, b document.Block, e document.Entry) error {
	// A custom kind name selects its own defaults in place of the section's.
	defaults := section
	hint := e.Kind
	if hint == "" {
		hint = b.Kind
	}
	if _, builtin := classify.ParseKind(hint); hint != "" && !builtin {
		defaults = hint
	}

	closed, err := attr.ClosedFrom(c.cfg.Edge, c.cfg.Kinds[defaults].Edge, b.Edge, e.Edge)
	if err != nil {
		return locate(err, e.Loc, "edge."+attr.KeyClosed)
	}

	shape, err := classify.Classify(classify.FromDocument(section, b, e, closed))
	if err != nil {
		return err
	}
	kind := shape.Kind()

	res, err := attr.Resolve(
		c.cfg.Global(),
		c.cfg.KindLayer(kind.String(), defaults),
		attr.Layer{Node: b.Node, Edge: b.Edge},
		attr.Layer{Node: e.Node, Edge: e.Edge},
	)
	if err != nil {
		return locate(err, e.Loc, "")
	}

	for _, ig := range res.Ignored {
		c.warn(WarnReservedKey, e.Loc, "node.%s is graph-wide and ignored at %s scope", ig.Key, ig.Scope)
	}

	switch s := shape.(type) {
	case classify.Linear:
		// Kind defaults may close a sequence after classification.
		switch {
		case res.Flags.Closed == attr.ClosedRing && !s.Closed:
			s.Closed = true
			shape = s
		case res.Flags.Closed == attr.ClosedComplete:
			c.warn(WarnClosed, e.Loc, "closed: complete has no effect on a linear entry")
		}
	case classify.Branching:
		if res.Flags.Closed != attr.ClosedNone {
			c.warn(WarnClosed, e.Loc, "closed has no effect on a branching entry")
		}
	case classify.Clique:
		if res.Flags.Closed == attr.ClosedRing {
			c.warn(WarnClosed, e.Loc, "closed: true has no effect on a clique entry")
		}
	}

	directed := kind != classify.KindClique
	if res.Flags.Directed != nil {
		directed = *res.Flags.Directed
	}

	c.occurrences = append(c.occurrences, graph.Occurrence{
		Section:  section,
		Shape:    shape,
		Node:     res.Node,
		Edge:     res.Edge,
		Directed: directed,
	})
	for _, n := range shape.Names() {
		if !c.seen[n] {
			c.seen[n] = true
			c.names = append(c.names, n)
		}
	}
	return nil
}

// locate attaches an entry location to a config error raised while
// resolving that entry's attributes.
func locate(err error, loc errors.Location, key string) error {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return err
	}
	if key == "" && e.Location != nil {
		key = e.Location.Key
	}
	loc.Key = key
	return e.At(loc)
}

// =============================================================================
// Building
// =============================================================================

func (c *compilation) build(*document.Document) error {
	if c.opts.imagesEnabled(c.cfg.DownloadImages) && len(c.names) > 0 {
		if err := c.prepareImages(); err != nil {
			return err
		}
	}

	b := graph.NewBuilder(graph.WithMeta(c.cfg.Meta), graph.WithImages(c.images))
	for _, o := range c.occurrences {
		if err := b.Add(o); err != nil {
			return err
		}
	}
	g, err := b.Seal()
	if err != nil {
		return err
	}
	c.graph = g
	return nil
}

// prepareImages runs the provider once for every name and records the
// located paths.
func (c *compilation) prepareImages() error {
	imgCfg := c.cfg.Images
	if c.opts.ImageConfig != nil {
		if len(c.cfg.Images) > 0 {
			c.warn(WarnImage, errors.Location{Block: -1, Entry: -1, Key: config.KeyImages}, "config.images is ignored, image settings are fixed by the caller")
		}
		imgCfg = c.opts.ImageConfig
	}

	settings, err := image.ParseSettings(imgCfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "invalid image settings").
			At(errors.Location{Block: -1, Entry: -1, Key: config.KeyImages})
	}
	if c.opts.ImageDir != "" {
		settings.Dir = c.opts.ImageDir
	}

	var provider image.Provider
	if c.runner.Provider != nil {
		provider = c.runner.Provider(settings)
	}
	if provider == nil {
		if c.opts.StrictImages {
			return errors.New(errors.ErrCodeConfig, "images are required but no image provider is configured")
		}
		c.warn(WarnImage, errors.Location{}, "no image provider available, continuing without images")
		return nil
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.opts.ImageTimeout)
	defer cancel()

	start := time.Now()
	failed := map[string]bool{}
	if err := provider.Fetch(ctx, c.names, imgCfg); err != nil {
		if c.opts.StrictImages {
			return errors.Wrap(errors.ErrCodeImageProvider, err, "fetch images")
		}
		var ferr *image.FetchError
		if stderrors.As(err, &ferr) {
			for _, n := range ferr.Names() {
				failed[n] = true
				c.warn(WarnImage, errors.Location{}, "fetch image for %q: %v", n, ferr.Failures[n])
			}
		} else {
			c.warn(WarnImage, errors.Location{}, "image provider failed, continuing without fetched images: %v", err)
		}
	}

	c.images = make(map[string]string, len(c.names))
	for _, n := range c.names {
		path, err := provider.Locate(n)
		if err != nil {
			if c.opts.StrictImages {
				return errors.Wrap(errors.ErrCodeImageProvider, err, "locate image for %q", n)
			}
			if !failed[n] {
				c.warn(WarnImage, errors.Location{}, "no image for %q", n)
			}
			continue
		}
		c.images[n] = path
	}
	c.logger.Debug("prepared images",
		"requested", len(c.names),
		"located", len(c.images),
		"duration", time.Since(start))
	return nil
}

// =============================================================================
// Post-processing
// =============================================================================

func (c *compilation) postprocess(*document.Document) error {
	c.report = postprocess.Process(c.graph, postprocess.Options{
		ScaleFactor: c.cfg.ScaleFactor,
		Recolor:     c.cfg.Recolor,
		Table:       c.cfg.Table,
	})
	return nil
}

func (c *compilation) warn(kind string, loc errors.Location, format string, args ...any) {
	w := Warning{Kind: kind, Message: fmt.Sprintf(format, args...)}
	if loc.Section != "" || loc.Key != "" {
		w.Location = loc.String()
	}
	c.warnings = append(c.warnings, w)
	c.logger.Warn(w.Message, "location", w.Location)
	observability.Pipeline().OnWarning(c.ctx, kind)
}
