package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/relnet/pkg/cache"
	"github.com/matzehuels/relnet/pkg/httputil"
)

// errNoPageImage is recorded when a page exists but has no image.
var errNoPageImage = errors.New("page has no image")

// WikiProvider downloads page images from a MediaWiki API into a local
// directory. Names that already have a file are skipped.
type WikiProvider struct {
	settings Settings
	client   *httputil.Client
	lookups  *httputil.Cache
	logger   *log.Logger
}

// WikiOptions are the optional collaborators of a WikiProvider.
type WikiOptions struct {
	// Cache stores resolved image URLs across runs. Nil disables it.
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	// Client overrides the HTTP client built from the settings.
	Client *httputil.Client
}

// NewWikiProvider creates a provider for s.Endpoint.
func NewWikiProvider(s Settings, opts WikiOptions) *WikiProvider {
	client := opts.Client
	if client == nil {
		client = httputil.NewClient(httputil.ClientOptions{
			Timeout:           s.Timeout(),
			RequestsPerSecond: s.RateLimit,
			Burst:             s.Concurrency,
		})
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &WikiProvider{
		settings: s,
		client:   client,
		lookups:  httputil.NewCache(opts.Cache, opts.Keyer, "wiki:"+s.Endpoint, cache.TTLHTTP),
		logger:   logger,
	}
}

// Fetch downloads a page image for every name without an existing file.
// Downloads run concurrently up to Settings.Concurrency; Fetch returns once
// all have finished. Per-name failures are collected into a *FetchError.
func (p *WikiProvider) Fetch(ctx context.Context, names []string, cfg map[string]any) error {
	if err := os.MkdirAll(p.settings.Dir, 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}

	var (
		mu       sync.Mutex
		failures = make(map[string]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.settings.Concurrency)

	for _, name := range names {
		base := Sanitize(name)
		if base == "" {
			continue
		}
		if _, ok := existing(p.settings.Dir, base); ok {
			p.logger.Debug("image exists", "name", name)
			continue
		}
		g.Go(func() error {
			if err := p.fetchOne(gctx, name, base); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mu.Lock()
				failures[name] = err
				mu.Unlock()
				p.logger.Warn("no image", "name", name, "err", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(failures) > 0 {
		return &FetchError{Failures: failures}
	}
	return nil
}

// Locate returns the downloaded file for name, the default image, or ErrNotFound.
func (p *WikiProvider) Locate(name string) (string, error) {
	return locate(p.settings.Dir, p.settings.Default, name)
}

func (p *WikiProvider) fetchOne(ctx context.Context, name, base string) error {
	src, err := p.imageURL(ctx, name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := p.client.Download(ctx, src, &buf); err != nil {
		return err
	}

	ext := extensionOf(src)
	dst := filepath.Join(p.settings.Dir, base+"."+ext)
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	p.logger.Debug("downloaded image", "name", name, "path", dst)
	return nil
}

// pageImagesResponse is the subset of a prop=pageimages reply we read.
type pageImagesResponse struct {
	Query struct {
		Pages map[string]struct {
			Title    string `json:"title"`
			Original *struct {
				Source string `json:"source"`
			} `json:"original,omitempty"`
			Thumbnail *struct {
				Source   string `json:"source"`
				Original string `json:"original"`
			} `json:"thumbnail,omitempty"`
		} `json:"pages"`
	} `json:"query"`
}

// imageURL resolves a page title to its image URL, consulting the lookup cache.
func (p *WikiProvider) imageURL(ctx context.Context, title string) (string, error) {
	var cached string
	if ok, err := p.lookups.Get(ctx, title, &cached); err == nil && ok && cached != "" {
		return cached, nil
	}

	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("prop", "pageimages")
	q.Set("piprop", "original")
	q.Set("redirects", "1")
	q.Set("titles", title)

	var resp pageImagesResponse
	if err := p.client.GetJSON(ctx, p.settings.Endpoint+"?"+q.Encode(), &resp); err != nil {
		return "", err
	}

	var src string
	for _, page := range resp.Query.Pages {
		switch {
		case page.Original != nil && page.Original.Source != "":
			src = page.Original.Source
		case page.Thumbnail != nil && page.Thumbnail.Original != "":
			src = page.Thumbnail.Original
		case page.Thumbnail != nil && page.Thumbnail.Source != "":
			src = page.Thumbnail.Source
		}
	}
	if src == "" {
		return "", errNoPageImage
	}
	if err := p.lookups.Set(ctx, title, src); err != nil {
		p.logger.Debug("cache image url", "name", title, "err", err)
	}
	return src, nil
}

// extensionOf returns the lowercase extension of a URL path when it is one
// of Extensions, and jpg otherwise.
func extensionOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "jpg"
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if !slices.Contains(Extensions, ext) {
		return "jpg"
	}
	return ext
}

var _ Provider = (*WikiProvider)(nil)
