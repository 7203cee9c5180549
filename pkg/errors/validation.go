package errors

import (
	"strings"
	"unicode"
)

// MaxNodeNameLength bounds the length of a node name.
const MaxNodeNameLength = 256

// ValidateNodeName validates a node name taken from the input document.
//
// Names are used verbatim as node identity and, via the image provider, as
// the stem of image filenames, so the rules reject anything that cannot be
// displayed on a single line:
//   - No empty or whitespace-only names
//   - No control characters (including newlines and null bytes)
//   - Maximum length of 256 characters
func ValidateNodeName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeStructure, "node name cannot be empty")
	}

	if len(name) > MaxNodeNameLength {
		return New(ErrCodeStructure, "node name too long (max %d characters)", MaxNodeNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeStructure, "node name %q contains control characters", name)
		}
	}

	return nil
}

// ValidateOutputPath validates a path the CLI is about to write an artifact to.
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "output path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
