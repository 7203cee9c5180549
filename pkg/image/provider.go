package image

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ErrNotFound is returned by Locate when no image exists for a name.
var ErrNotFound = errors.New("image not found")

// Provider prepares and locates node images.
type Provider interface {
	// Fetch prepares images for names as a side effect. It blocks until the
	// whole batch is done; implementations may work concurrently inside.
	Fetch(ctx context.Context, names []string, cfg map[string]any) error
	// Locate returns the image path for name, or ErrNotFound.
	Locate(name string) (string, error)
}

// Extensions lists image extensions in order of preference.
var Extensions = []string{"jpg", "jpeg", "png", "svg"}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// Sanitize strips every character that is not a letter, digit or underscore.
func Sanitize(name string) string {
	return nonWord.ReplaceAllString(name, "")
}

// FetchError collects per-name fetch failures.
type FetchError struct {
	Failures map[string]error
}

// Names returns the failed names in sorted order.
func (e *FetchError) Names() []string {
	names := make([]string, 0, len(e.Failures))
	for n := range e.Failures {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (e *FetchError) Error() string {
	names := e.Names()
	if len(names) == 1 {
		return fmt.Sprintf("fetch image for %q: %v", names[0], e.Failures[names[0]])
	}
	return fmt.Sprintf("fetch images failed for %d names: %s", len(names), strings.Join(names, ", "))
}

// locate finds an existing file for name in dir, honoring extension
// preference, and falls back to def.
func locate(dir, def, name string) (string, error) {
	if base := Sanitize(name); base != "" {
		if path, ok := existing(dir, base); ok {
			return path, nil
		}
	}
	if def != "" {
		return def, nil
	}
	return "", ErrNotFound
}

// existing returns the preferred file dir/base.<ext>.
func existing(dir, base string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(base)+".*"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	slices.Sort(matches)
	for _, ext := range Extensions {
		for _, m := range matches {
			if strings.EqualFold(strings.TrimPrefix(filepath.Ext(m), "."), ext) {
				return m, true
			}
		}
	}
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			return m, true
		}
	}
	return "", false
}

// globEscape escapes glob metacharacters. Sanitized names never contain
// them, but the directory walk must not depend on that.
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
