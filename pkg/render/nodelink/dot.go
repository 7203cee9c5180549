package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/relnet/pkg/attr"
	"github.com/matzehuels/relnet/pkg/errors"
	"github.com/matzehuels/relnet/pkg/graph"
)

// Format is an output format produced by [Render].
type Format string

const (
	FormatDOT Format = "dot"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// Formats lists every supported format.
var Formats = []Format{FormatSVG, FormatPNG, FormatDOT}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatDOT, FormatSVG, FormatPNG:
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported render format %q (want svg, png or dot)", s)
}

// Layout names a Graphviz layout engine.
type Layout string

const (
	LayoutDot   Layout = "dot"
	LayoutNeato Layout = "neato"
	LayoutFDP   Layout = "fdp"
	LayoutSFDP  Layout = "sfdp"
	LayoutCirco Layout = "circo"
	LayoutTwopi Layout = "twopi"
)

// Layouts lists every supported layout engine.
var Layouts = []Layout{LayoutNeato, LayoutDot, LayoutFDP, LayoutSFDP, LayoutCirco, LayoutTwopi}

// DefaultLayout is the force-directed engine closest to a physics simulation.
const DefaultLayout = LayoutNeato

// ParseLayout validates a layout engine name. Empty selects [DefaultLayout].
func ParseLayout(s string) (Layout, error) {
	l := Layout(strings.ToLower(strings.TrimSpace(s)))
	if l == "" {
		return DefaultLayout, nil
	}
	if slices.Contains(Layouts, l) {
		return l, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown layout %q", s)
}

// Options configures DOT generation.
type Options struct {
	// Detailed appends the node degree to every label.
	Detailed bool
}

// vis-network shape names mapped to Graphviz shapes.
var shapes = map[string]string{
	"dot":      "circle",
	"circle":   "circle",
	"ellipse":  "ellipse",
	"box":      "box",
	"square":   "square",
	"triangle": "triangle",
	"diamond":  "diamond",
	"star":     "star",
	"text":     "plaintext",
	"database": "cylinder",
}

// ToDOT converts a graph to Graphviz DOT source. The result is a digraph;
// undirected edges carry dir=none.
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  node [style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	for i := range g.Nodes {
		n := &g.Nodes[i]
		fmt.Fprintf(&buf, "  %s [%s];\n", quote(n.Name), strings.Join(nodeAttrs(n, opts), ", "))
	}

	buf.WriteString("\n")
	for i := range g.Edges {
		e := &g.Edges[i]
		attrs := edgeAttrs(e)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %s -> %s;\n", quote(e.Source), quote(e.Target))
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", quote(e.Source), quote(e.Target), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// dotEscaper escapes a DOT quoted string. Newlines become the \n line
// break escape; every other byte is passed through.
var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r\n", `\n`, "\n", `\n`, "\r", `\n`)

func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

func nodeAttrs(n *graph.Node, opts Options) []string {
	label := n.Name
	if s, ok := n.Attrs["label"].(string); ok && s != "" {
		label = s
	}
	if opts.Detailed {
		label += "\ndegree: " + strconv.Itoa(n.Degree)
	}
	out := []string{"label=" + quote(label), "tooltip=" + quote(n.Title())}

	color := n.Color
	if color == "" {
		color, _ = attr.ColorName(n.Attrs[attr.KeyColor])
	}
	if color != "" {
		out = append(out, "color="+quote(color), "fillcolor="+quote(color))
	}

	if img, ok := n.Attrs[attr.KeyImage].(string); ok && img != "" {
		out = append(out, "image="+quote(img), "imagescale=true", "labelloc=b", "shape=none")
	} else if s, ok := n.Attrs["shape"].(string); ok {
		if gv, ok := shapes[s]; ok {
			out = append(out, "shape="+gv)
		}
	}

	if n.BaseSize > 0 || n.Attrs[attr.KeySize] != nil {
		size := n.BaseSize
		if f, ok := attr.Float(n.Attrs[attr.KeySize]); ok {
			size = f
		}
		// vis-network sizes are pixel radii; Graphviz wants inches.
		in := strconv.FormatFloat(size*2/72, 'f', 2, 64)
		out = append(out, "width="+in, "height="+in)
	}
	return out
}

func edgeAttrs(e *graph.Edge) []string {
	var out []string
	if !e.Directed {
		out = append(out, "dir=none")
	}
	if c, ok := e.Color(); ok {
		out = append(out, "color="+quote(c))
	}
	if t, ok := e.Attrs[attr.KeyTitle].(string); ok && t != "" {
		out = append(out, "tooltip="+quote(t))
	}
	if w, ok := attr.Float(e.Attrs["width"]); ok && w > 0 {
		out = append(out, "penwidth="+strconv.FormatFloat(w, 'f', -1, 64))
	}
	if d, ok := e.Attrs["dashes"].(bool); ok && d {
		out = append(out, "style=dashed")
	}
	return out
}

// Render lays out DOT source with the given engine and encodes it. The DOT
// format returns the source unchanged.
func Render(ctx context.Context, dot string, format Format, layout Layout) ([]byte, error) {
	if format == FormatDOT {
		return []byte(dot), nil
	}
	if layout == "" {
		layout = DefaultLayout
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()
	gv.SetLayout(graphviz.Layout(layout))

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var gvFormat graphviz.Format
	switch format {
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported render format %q", format)
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
	}
	if format == FormatSVG {
		return normalizeViewBox(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with a plain
// viewBox so the diagram scales with its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
