package image

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/relnet/pkg/cache"
)

// Options carries shared infrastructure for providers built by [New].
type Options struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// New builds the provider selected by s.Provider.
func New(s Settings, opts Options) Provider {
	if s.Provider == ProviderWiki {
		return NewWikiProvider(s, WikiOptions{Cache: opts.Cache, Keyer: opts.Keyer, Logger: opts.Logger})
	}
	return NewFileProvider(s)
}
