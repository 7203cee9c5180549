// Package pipeline compiles relationship documents into rendered networks.
//
// This package is the one place where the compiler stages are wired
// together, so the CLI and the HTTP server behave identically.
//
// # Stages
//
// [Runner.Compile] drives a strict, non-reentrant state machine:
//
//	Empty → Classifying → Building → PostProcessed → Finalized
//
// The stages are:
//
//   - Classifying: every entry is classified and its attributes resolved,
//     in document order (sections, then blocks, then entries)
//   - Building: images are prepared in one batch, then nodes and edges are
//     created and the graph is sealed
//   - PostProcessed: degrees, size scaling, recoloring and the report
//   - Finalized: the result is assembled and cached
//
// [Runner.Execute] compiles and then renders the graph in the requested
// format, caching the artifact by graph content.
//
// # Usage
//
//	doc, err := document.Load("network.yaml")
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Execute(ctx, doc, pipeline.Options{Format: "svg"})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("network.svg", result.Artifact, 0o644)
package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/relnet/pkg/errors"
	"github.com/matzehuels/relnet/pkg/graph"
	"github.com/matzehuels/relnet/pkg/postprocess"
	"github.com/matzehuels/relnet/pkg/render/nodelink"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatSVG  = string(nodelink.FormatSVG)
	FormatPNG  = string(nodelink.FormatPNG)
	FormatDOT  = string(nodelink.FormatDOT)
)

// DefaultFormat is the output format when none is requested.
const DefaultFormat = FormatSVG

// DefaultImageTimeout bounds the whole image batch.
const DefaultImageTimeout = 2 * time.Minute

// ValidFormats lists the supported output formats.
var ValidFormats = []string{FormatSVG, FormatPNG, FormatDOT, FormatJSON}

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(ValidFormats, format) {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, dot, json)", format)
	}
	return nil
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one pipeline run. It supports JSON for API requests.
type Options struct {
	// Images forces image acquisition on or off. Nil follows the
	// document's config.download_images.
	Images *bool `json:"images,omitempty"`
	// StrictImages turns image failures into IMAGE_PROVIDER_ERROR.
	StrictImages bool `json:"strict_images,omitempty"`
	// ImageDir overrides config.images.dir.
	ImageDir string `json:"image_dir,omitempty"`
	// ImageConfig replaces the document's config.images when non-nil. The
	// HTTP server sets it so request bodies cannot pick the provider,
	// endpoint or directory.
	ImageConfig map[string]any `json:"-"`
	// ImageTimeout bounds the image batch (fetch and locate).
	ImageTimeout time.Duration `json:"-"`

	// Render options
	Format   string `json:"format,omitempty"`
	Layout   string `json:"layout,omitempty"`
	Detailed bool   `json:"detailed,omitempty"`

	// Refresh bypasses cached graphs and artifacts.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks options and applies defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if err := ValidateFormat(o.Format); err != nil {
		return err
	}
	layout, err := nodelink.ParseLayout(o.Layout)
	if err != nil {
		return err
	}
	o.Layout = string(layout)
	if o.ImageTimeout <= 0 {
		o.ImageTimeout = DefaultImageTimeout
	}
	o.validated = true
	return nil
}

// imagesEnabled combines the override with the document setting.
func (o *Options) imagesEnabled(configured bool) bool {
	if o.Images != nil {
		return *o.Images
	}
	return configured
}

// =============================================================================
// Result
// =============================================================================

// Warning is a non-fatal problem found while compiling.
type Warning struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

func (w Warning) String() string {
	if w.Location == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Location, w.Message)
}

// Warning kinds.
const (
	WarnImage       = "image"
	WarnReservedKey = "reserved_key"
	WarnClosed      = "closed"
)

// Result contains the outputs of a pipeline run.
type Result struct {
	// BuildID identifies this compilation in logs and API responses.
	BuildID string `json:"build_id"`

	Graph    *graph.Graph       `json:"graph"`
	Report   postprocess.Report `json:"report"`
	Warnings []Warning          `json:"warnings,omitempty"`

	// GraphHash is the content hash of the compiled graph.
	GraphHash string `json:"graph_hash"`

	// Artifact is the rendered output; set by Execute only.
	Artifact []byte `json:"-"`
	Format   string `json:"format,omitempty"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int           `json:"nodes"`
	EdgeCount    int           `json:"edges"`
	ClassifyTime time.Duration `json:"classify_ns"`
	BuildTime    time.Duration `json:"build_ns"`
	ProcessTime  time.Duration `json:"process_ns"`
	RenderTime   time.Duration `json:"render_ns"`
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	GraphHit  bool `json:"graph_hit"`
	RenderHit bool `json:"render_hit"`
}
