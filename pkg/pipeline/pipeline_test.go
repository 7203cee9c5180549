package pipeline

import (
	"context"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/relnet/pkg/attr"
	"github.com/matzehuels/relnet/pkg/cache"
	"github.com/matzehuels/relnet/pkg/document"
	"github.com/matzehuels/relnet/pkg/errors"
	"github.com/matzehuels/relnet/pkg/graph"
	"github.com/matzehuels/relnet/pkg/image"
)

func parse(t *testing.T, src string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(src), document.FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return doc
}

func quietRunner(c cache.Cache) *Runner {
	return NewRunner(c, nil, log.New(io.Discard))
}

func compile(t *testing.T, src string, opts Options) *Result {
	t.Helper()
	res, err := quietRunner(nil).Compile(context.Background(), parse(t, src), opts)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	return res
}

func node(t *testing.T, g *graph.Graph, name string) *graph.Node {
	t.Helper()
	n, ok := g.Node(name)
	if !ok {
		t.Fatalf("node %q not found", name)
	}
	return n
}

func edgeList(g *graph.Graph) []string {
	out := make([]string, len(g.Edges))
	for i, e := range g.Edges {
		out[i] = e.Source + "->" + e.Target
	}
	return out
}

// =============================================================================
// Options
// =============================================================================

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"dot", false},
		{"json", false},
		{"pdf", true},
		{"SVG", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Format != DefaultFormat {
		t.Errorf("Format = %q, want %q", opts.Format, DefaultFormat)
	}
	if opts.Layout != "neato" {
		t.Errorf("Layout = %q, want neato", opts.Layout)
	}
	if opts.ImageTimeout != DefaultImageTimeout {
		t.Errorf("ImageTimeout = %v, want %v", opts.ImageTimeout, DefaultImageTimeout)
	}

	bad := Options{Layout: "spring"}
	if err := bad.ValidateAndSetDefaults(); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestStateMachine(t *testing.T) {
	var m machine
	for _, s := range []State{StateClassifying, StateBuilding, StatePostProcessed, StateFinalized} {
		if err := m.advance(s); err != nil {
			t.Fatalf("advance(%s) error: %v", s, err)
		}
	}

	var skip machine
	err := skip.advance(StateBuilding)
	if !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("skipping a stage error = %v, want INTERNAL_ERROR", err)
	}
}

// =============================================================================
// Compile scenarios
// =============================================================================

func TestCompileSeriesScaling(t *testing.T) {
	res := compile(t, `
config:
  node: {scale_factor: 1, size: 10}
series:
  - items: [["A", "B", "C"]]
`, Options{})

	tests := []struct {
		name   string
		degree int
		size   float64
	}{
		{"A", 1, 11},
		{"B", 2, 12},
		{"C", 1, 11},
	}
	for _, tt := range tests {
		n := node(t, res.Graph, tt.name)
		if n.Degree != tt.degree {
			t.Errorf("%s degree = %d, want %d", tt.name, n.Degree, tt.degree)
		}
		if size, _ := attr.Float(n.Attrs[attr.KeySize]); size != tt.size {
			t.Errorf("%s size = %v, want %v", tt.name, size, tt.size)
		}
	}
	if res.BuildID == "" {
		t.Error("BuildID is empty")
	}
	if res.GraphHash == "" {
		t.Error("GraphHash is empty")
	}
}

func TestCompileClosedCircuit(t *testing.T) {
	res := compile(t, `
config:
  edge: {closed: true}
circuit:
  - items: [["X", "Y", "Z"]]
`, Options{})

	want := []string{"X->Y", "Y->Z", "Z->X"}
	if got := edgeList(res.Graph); !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	for _, e := range res.Graph.Edges {
		if _, ok := e.Attrs[attr.KeyClosed]; ok {
			t.Errorf("edge %d still carries closed", e.Index)
		}
	}
}

func TestCompileClosedWarnings(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		edges []string
		want  string
	}{
		{
			name: "global complete on branching",
			src: `
config:
  edge: {closed: complete}
convergence:
  - materials: [A, B]
    product: C
`,
			edges: []string{"A->C", "B->C"},
			want:  "closed has no effect on a branching entry",
		},
		{
			name: "complete on sequences",
			src: `
series:
  - items:
      - edge: {closed: complete}
        items: [[A, B], [C, D]]
`,
			edges: []string{"A->B", "C->D"},
			want:  "closed: complete has no effect on a linear entry",
		},
		{
			name: "ring on clique",
			src: `
clique:
  - edge: {closed: true}
    items: [A, B, C]
`,
			edges: []string{"A->B", "A->C", "B->C"},
			want:  "closed: true has no effect on a clique entry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compile(t, tt.src, Options{})
			if got := edgeList(res.Graph); !slices.Equal(got, tt.edges) {
				t.Errorf("edges = %v, want %v", got, tt.edges)
			}
			if len(res.Warnings) != 1 || res.Warnings[0].Kind != WarnClosed || res.Warnings[0].Message != tt.want {
				t.Errorf("Warnings = %+v, want %q", res.Warnings, tt.want)
			}
		})
	}
}

func TestCompileEdgeCounts(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		edges int
	}{
		{"linear open", "s:\n  - items: [[A, B, C, D]]\n", 3},
		{"linear closed", "s:\n  - edge: {closed: true}\n    items: [[A, B, C, D]]\n", 4},
		{"two sequences", "s:\n  - items: [[A, B], [C, D, E]]\n", 3},
		{"branching", "s:\n  - from: [A, B]\n    to: [C, D, E]\n", 6},
		{"materials", "s:\n  - materials: [A, B]\n    product: C\n", 2},
		{"clique section", "cliques:\n  - items: [A, B, C, D]\n", 6},
		{"clique kind", "s:\n  - kind: clique\n    items: [A, B, C, D, E]\n", 10},
		{"closed complete", "s:\n  - edge: {closed: complete}\n    items: [A, B, C]\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compile(t, tt.src, Options{})
			if got := res.Graph.EdgeCount(); got != tt.edges {
				t.Errorf("EdgeCount() = %d, want %d (%v)", got, tt.edges, edgeList(res.Graph))
			}
		})
	}
}

func TestCompileBranchingDirection(t *testing.T) {
	res := compile(t, `
convergence:
  - materials: [Water, Heat]
    product: Steam
`, Options{})

	for _, e := range res.Graph.Edges {
		if e.Target != "Steam" || !e.Directed {
			t.Errorf("edge %s->%s directed=%v, want x->Steam directed", e.Source, e.Target, e.Directed)
		}
		if c, _ := e.Color(); c != "purple" {
			t.Errorf("edge color = %q, want purple", c)
		}
		if e.Kind != "branching" {
			t.Errorf("edge kind = %q, want branching", e.Kind)
		}
	}
}

func TestCompileGlobalUndirected(t *testing.T) {
	res := compile(t, `
config:
  edge:
    directed: false
series:
  - items: [[A, B]]
convergence:
  - materials: [X]
    product: Y
`, Options{})

	if res.Graph.EdgeCount() != 2 {
		t.Fatalf("edges = %v", edgeList(res.Graph))
	}
	for _, e := range res.Graph.Edges {
		if e.Directed {
			t.Errorf("%s edge %s->%s is directed, want global directed: false", e.Kind, e.Source, e.Target)
		}
	}
}

func TestCompileCliqueUndirected(t *testing.T) {
	res := compile(t, `
clique:
  - items: [A, B, C]
`, Options{})

	want := []string{"A->B", "A->C", "B->C"}
	if got := edgeList(res.Graph); !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	for _, e := range res.Graph.Edges {
		if e.Directed {
			t.Errorf("clique edge %s->%s is directed", e.Source, e.Target)
		}
	}
}

func TestCompileMergePrecedence(t *testing.T) {
	res := compile(t, `
series:
  - node: {color: red, shape: box}
    items: [[A, B]]
  - node: {color: blue, font: mono}
    items: [[B, C]]
`, Options{})

	b := node(t, res.Graph, "B")
	want := map[string]any{"color": "blue", "shape": "box", "font": "mono"}
	for k, v := range want {
		if b.Attrs[k] != v {
			t.Errorf("B.%s = %v, want %v", k, b.Attrs[k], v)
		}
	}
	if a := node(t, res.Graph, "A"); a.Attrs["color"] != "red" {
		t.Errorf("A.color = %v, want red", a.Attrs["color"])
	}
}

func TestCompileCascade(t *testing.T) {
	res := compile(t, `
config:
  node: {shape: dot}
  edge: {width: 1}
  operation:
    series: {width: 2}
series:
  - edge: {width: 3}
    items:
      - [A, B]
      - items: [[C, D]]
        edge: {width: 4}
`, Options{})

	if got := res.Graph.Edges[0].Attrs["width"]; got != 3 {
		t.Errorf("block edge width = %v, want 3", got)
	}
	if got := res.Graph.Edges[1].Attrs["width"]; got != 4 {
		t.Errorf("entry edge width = %v, want 4", got)
	}
	e := res.Graph.Edges[0]
	if c, _ := e.Color(); c != "orange" {
		t.Errorf("series default color = %q, want orange", c)
	}
	if e.Attrs[attr.KeyTitle] != "series" {
		t.Errorf("edge title = %v, want series", e.Attrs[attr.KeyTitle])
	}
	if n := node(t, res.Graph, "A"); n.Attrs["shape"] != "dot" {
		t.Errorf("global node shape = %v, want dot", n.Attrs["shape"])
	}
}

func TestCompileCustomKindDefaults(t *testing.T) {
	res := compile(t, `
reactions:
  - kind: divergence
    root: Seed
    branches: [Root, Shoot]
`, Options{})

	for _, e := range res.Graph.Edges {
		if c, _ := e.Color(); c != "red" {
			t.Errorf("edge color = %q, want red from divergence defaults", c)
		}
	}
}

func TestCompileRecolor(t *testing.T) {
	res := compile(t, `
config:
  node: {recolor: true, table: true}
links:
  - edge: {color: red}
    items: [[N, A], [N, B]]
  - edge: {color: blue}
    items: [[N, C]]
`, Options{})

	if n := node(t, res.Graph, "N"); n.Color != "red" {
		t.Errorf("N.Color = %q, want red", n.Color)
	}
	if n := node(t, res.Graph, "C"); n.Color != "blue" {
		t.Errorf("C.Color = %q, want blue", n.Color)
	}
	if len(res.Report.Rows) != 4 || res.Report.Rows[0].Name != "N" || res.Report.Rows[0].Degree != 3 {
		t.Errorf("Report.Rows = %+v", res.Report.Rows)
	}
}

func TestCompileReservedKeyWarning(t *testing.T) {
	res := compile(t, `
series:
  - node: {scale_factor: 5}
    items: [[A, B]]
`, Options{})

	if len(res.Warnings) != 1 || res.Warnings[0].Kind != WarnReservedKey {
		t.Fatalf("Warnings = %+v, want one reserved_key warning", res.Warnings)
	}
	if !strings.Contains(res.Warnings[0].Message, "block scope") {
		t.Errorf("warning = %q", res.Warnings[0].Message)
	}
	n := node(t, res.Graph, "A")
	if _, ok := n.Attrs[attr.KeyScaleFactor]; ok {
		t.Error("scale_factor leaked into node attributes")
	}
	if size, _ := attr.Float(n.Attrs[attr.KeySize]); size != attr.DefaultNodeSize {
		t.Errorf("size = %v, want unscaled %v", size, attr.DefaultNodeSize)
	}
}

// =============================================================================
// Errors
// =============================================================================

func TestCompileStructureErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		block int
		entry int
	}{
		{"unknown keys", "series:\n  - items: [[A, B], {foo: bar}]\n", 0, 1},
		{"scalar entry", "series:\n  - items: [[A, B]]\n  - items: [[C, D], 5]\n", 1, 1},
		{"missing to", "fusion:\n  - from: A\n", 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietRunner(nil).Compile(context.Background(), parse(t, tt.src), Options{})
			if !errors.Is(err, errors.ErrCodeStructure) {
				t.Fatalf("error = %v, want STRUCTURE_ERROR", err)
			}
			loc, ok := errors.GetLocation(err)
			if !ok {
				t.Fatal("error has no location")
			}
			wantSection := strings.SplitN(tt.src, ":", 2)[0]
			if loc.Section != wantSection || loc.Block != tt.block || loc.Entry != tt.entry {
				t.Errorf("location = %s, want %s[%d] entry %d", loc, wantSection, tt.block, tt.entry)
			}
		})
	}
}

func TestCompileConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		key  string
	}{
		{"scale_factor", "config:\n  node: {scale_factor: big}\ns: [[A, B]]\n", "node.scale_factor"},
		{"closed", "s:\n  - edge: {closed: sometimes}\n    items: [[A, B]]\n", "edge.closed"},
		{"directed", "s:\n  - edge: {directed: yes please}\n    items: [[A, B]]\n", "edge.directed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietRunner(nil).Compile(context.Background(), parse(t, tt.src), Options{})
			if !errors.Is(err, errors.ErrCodeConfig) {
				t.Fatalf("error = %v, want CONFIG_ERROR", err)
			}
			loc, _ := errors.GetLocation(err)
			if loc.Key != tt.key {
				t.Errorf("location key = %q, want %q", loc.Key, tt.key)
			}
		})
	}
}

// =============================================================================
// Images
// =============================================================================

type fakeProvider struct {
	paths   map[string]string
	fetched [][]string
	fetchFn func(names []string) error
}

func (p *fakeProvider) Fetch(_ context.Context, names []string, _ map[string]any) error {
	p.fetched = append(p.fetched, slices.Clone(names))
	if p.fetchFn != nil {
		return p.fetchFn(names)
	}
	return nil
}

func (p *fakeProvider) Locate(name string) (string, error) {
	if path, ok := p.paths[name]; ok {
		return path, nil
	}
	return "", image.ErrNotFound
}

const imageDoc = `
config:
  download_images: true
series:
  - items: [[Water, Steam]]
  - items: [[Steam, Cloud]]
`

func runnerWith(p image.Provider) *Runner {
	r := quietRunner(nil)
	r.Provider = func(image.Settings) image.Provider { return p }
	return r
}

func TestCompileImages(t *testing.T) {
	p := &fakeProvider{paths: map[string]string{"Water": "images/Water.png", "Steam": "images/Steam.jpg"}}
	res, err := runnerWith(p).Compile(context.Background(), parse(t, imageDoc), Options{})
	if err != nil {
		t.Fatal(err)
	}

	if len(p.fetched) != 1 {
		t.Fatalf("Fetch called %d times, want 1", len(p.fetched))
	}
	if want := []string{"Water", "Steam", "Cloud"}; !slices.Equal(p.fetched[0], want) {
		t.Errorf("Fetch names = %v, want %v", p.fetched[0], want)
	}
	if got := node(t, res.Graph, "Water").Attrs[attr.KeyImage]; got != "images/Water.png" {
		t.Errorf("Water image = %v", got)
	}
	if _, ok := node(t, res.Graph, "Cloud").Attrs[attr.KeyImage]; ok {
		t.Error("Cloud should have no image")
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != WarnImage || !strings.Contains(res.Warnings[0].Message, "Cloud") {
		t.Errorf("Warnings = %+v, want one image warning for Cloud", res.Warnings)
	}
}

func TestCompileImagesDisabled(t *testing.T) {
	p := &fakeProvider{}
	off := false
	if _, err := runnerWith(p).Compile(context.Background(), parse(t, imageDoc), Options{Images: &off}); err != nil {
		t.Fatal(err)
	}
	if len(p.fetched) != 0 {
		t.Errorf("Fetch called %d times with images disabled", len(p.fetched))
	}
}

func TestCompileImageFetchFailure(t *testing.T) {
	p := &fakeProvider{
		paths: map[string]string{"Water": "w.png", "Steam": "s.png", "Cloud": "c.png"},
		fetchFn: func([]string) error {
			return &image.FetchError{Failures: map[string]error{"Cloud": io.ErrUnexpectedEOF}}
		},
	}
	res, err := runnerWith(p).Compile(context.Background(), parse(t, imageDoc), Options{})
	if err != nil {
		t.Fatalf("non-strict compile failed: %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Message, "Cloud") {
		t.Errorf("Warnings = %+v", res.Warnings)
	}

	_, err = runnerWith(p).Compile(context.Background(), parse(t, imageDoc), Options{StrictImages: true})
	if !errors.Is(err, errors.ErrCodeImageProvider) {
		t.Errorf("strict error = %v, want IMAGE_PROVIDER_ERROR", err)
	}
}

func TestCompileStrictMissingImage(t *testing.T) {
	p := &fakeProvider{paths: map[string]string{"Water": "w.png"}}
	_, err := runnerWith(p).Compile(context.Background(), parse(t, imageDoc), Options{StrictImages: true})
	if !errors.Is(err, errors.ErrCodeImageProvider) {
		t.Errorf("error = %v, want IMAGE_PROVIDER_ERROR", err)
	}
}

func TestCompileNoProvider(t *testing.T) {
	r := runnerWith(nil)
	r.Provider = func(image.Settings) image.Provider { return nil }

	res, err := r.Compile(context.Background(), parse(t, imageDoc), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != WarnImage {
		t.Errorf("Warnings = %+v", res.Warnings)
	}

	_, err = r.Compile(context.Background(), parse(t, imageDoc), Options{StrictImages: true})
	if !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("strict error = %v, want CONFIG_ERROR", err)
	}
}

func TestCompileImageConfigOverride(t *testing.T) {
	var got image.Settings
	r := runnerWith(&fakeProvider{})
	r.Provider = func(s image.Settings) image.Provider {
		got = s
		return &fakeProvider{}
	}

	src := `
config:
  download_images: true
  images:
    provider: wiki
    dir: /etc
series:
  - items: [[A, B]]
`
	res, err := r.Compile(context.Background(), parse(t, src), Options{
		ImageConfig: map[string]any{"provider": image.ProviderFile, "dir": "server-images"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Provider != image.ProviderFile || got.Dir != "server-images" {
		t.Errorf("provider settings = %+v, want file provider in server-images", got)
	}
	if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0].Message, "config.images is ignored") {
		t.Errorf("Warnings = %+v, want ignored config.images warning", res.Warnings)
	}
}

func TestCompileImagesBypassGraphCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p := &fakeProvider{paths: map[string]string{"Water": "w.png", "Steam": "s.png"}}
	r := quietRunner(fc)
	r.Provider = func(image.Settings) image.Provider { return p }

	first, err := r.Compile(context.Background(), parse(t, imageDoc), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := node(t, first.Graph, "Cloud").Attrs[attr.KeyImage]; ok {
		t.Fatal("Cloud should have no image on the first run")
	}

	// the image appears between runs
	p.paths["Cloud"] = "c.png"

	second, err := r.Compile(context.Background(), parse(t, imageDoc), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if second.CacheInfo.GraphHit {
		t.Error("graph with images was served from cache")
	}
	if len(p.fetched) != 2 {
		t.Errorf("Fetch called %d times, want once per run", len(p.fetched))
	}
	if got := node(t, second.Graph, "Cloud").Attrs[attr.KeyImage]; got != "c.png" {
		t.Errorf("Cloud image = %v, want c.png", got)
	}
	if len(second.Warnings) != 0 {
		t.Errorf("Warnings = %+v, want none", second.Warnings)
	}
}

// =============================================================================
// Execute and caching
// =============================================================================

func TestExecuteJSONCached(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := quietRunner(fc)
	src := "series:\n  - items: [[A, B, C]]\n"

	first, err := r.Execute(context.Background(), parse(t, src), Options{Format: FormatJSON})
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.GraphHit || first.CacheInfo.RenderHit {
		t.Errorf("first run CacheInfo = %+v, want misses", first.CacheInfo)
	}
	g, err := graph.Unmarshal(first.Artifact)
	if err != nil {
		t.Fatalf("artifact is not a graph: %v", err)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("artifact EdgeCount() = %d, want 2", g.EdgeCount())
	}

	second, err := r.Execute(context.Background(), parse(t, src), Options{Format: FormatJSON})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.GraphHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run CacheInfo = %+v, want hits", second.CacheInfo)
	}
	if second.GraphHash != first.GraphHash {
		t.Errorf("GraphHash changed: %s != %s", second.GraphHash, first.GraphHash)
	}
	if second.BuildID == first.BuildID {
		t.Error("BuildID should be unique per run")
	}

	refreshed, err := r.Execute(context.Background(), parse(t, src), Options{Format: FormatJSON, Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheInfo.GraphHit {
		t.Error("Refresh should bypass the graph cache")
	}
}

func TestExecuteDOT(t *testing.T) {
	res, err := quietRunner(nil).Execute(context.Background(), parse(t, "series:\n  - items: [[A, B]]\n"), Options{Format: FormatDOT})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(res.Artifact), `"A" -> "B"`) {
		t.Errorf("DOT artifact = %s", res.Artifact)
	}
	if res.Format != FormatDOT {
		t.Errorf("Format = %q, want dot", res.Format)
	}
}
