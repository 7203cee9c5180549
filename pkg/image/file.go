package image

import (
	"context"
)

// FileProvider locates images that already exist on disk. Fetch is a no-op.
type FileProvider struct {
	dir string
	def string
}

// NewFileProvider creates a provider reading from s.Dir.
func NewFileProvider(s Settings) *FileProvider {
	return &FileProvider{dir: s.Dir, def: s.Default}
}

// Fetch does nothing; files are expected to be in place.
func (p *FileProvider) Fetch(ctx context.Context, names []string, cfg map[string]any) error {
	return ctx.Err()
}

// Locate returns the preferred existing file for name, the default image, or
// ErrNotFound.
func (p *FileProvider) Locate(name string) (string, error) {
	return locate(p.dir, p.def, name)
}

var _ Provider = (*FileProvider)(nil)
