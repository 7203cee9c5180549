// Package postprocess derives graph-wide values once all edges exist.
//
// [Process] computes node degrees, scales node sizes by degree, reassigns
// node colors from incident edges and collects a degree/color report. Every
// step reads only the sealed edge list and each node's BaseSize, so running
// it twice on the same graph gives the same result as running it once.
package postprocess

import (
	"github.com/matzehuels/relnet/pkg/attr"
	"github.com/matzehuels/relnet/pkg/graph"
)

// Options selects the post-processing steps. Degrees are always computed.
type Options struct {
	// ScaleFactor > 0 sets size = BaseSize + ScaleFactor*degree.
	ScaleFactor float64
	// Recolor assigns each node the most frequent color among its incident edges.
	Recolor bool
	// Table fills Report.Rows.
	Table bool
}

// Row is one line of the degree/color report.
type Row struct {
	Name   string `json:"name"`
	Degree int    `json:"degree"`
	Color  string `json:"color,omitempty"`
}

// Report summarizes the processed graph.
type Report struct {
	// Rows lists nodes in first-seen order; empty unless Options.Table is set.
	Rows []Row `json:"rows,omitempty"`
	// Recolored counts nodes whose color came from incident edges.
	Recolored int `json:"recolored"`
	// MaxDegree is the highest node degree in the graph.
	MaxDegree int `json:"max_degree"`
}

// Process mutates g in place and returns the report.
func Process(g *graph.Graph, opts Options) Report {
	var rep Report

	degrees := Degrees(g)
	for i := range g.Nodes {
		n := &g.Nodes[i]
		n.Degree = degrees[n.Name]
		rep.MaxDegree = max(rep.MaxDegree, n.Degree)
	}

	if opts.ScaleFactor > 0 {
		Scale(g, opts.ScaleFactor)
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if c, ok := attr.ColorName(n.Attrs[attr.KeyColor]); ok {
			n.Color = c
		}
	}
	if opts.Recolor {
		rep.Recolored = Recolor(g)
	}

	if opts.Table {
		rep.Rows = make([]Row, len(g.Nodes))
		for i, n := range g.Nodes {
			rep.Rows[i] = Row{Name: n.Name, Degree: n.Degree, Color: n.Color}
		}
	}
	return rep
}

// Degrees counts, per node, the edges where it is source plus the edges where
// it is target. A self-loop therefore counts twice.
func Degrees(g *graph.Graph) map[string]int {
	deg := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		deg[e.Source]++
		deg[e.Target]++
	}
	return deg
}

// Scale sets each node's size from its BaseSize and Degree.
func Scale(g *graph.Graph, factor float64) {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Attrs == nil {
			n.Attrs = make(attr.Attrs)
		}
		n.Attrs[attr.KeySize] = n.BaseSize + factor*float64(n.Degree)
	}
}

// Recolor sets each node's color to the most frequent color among its
// incident edges. Ties go to the color seen first in edge order. Nodes
// without colored edges keep their color. It returns the number of nodes
// recolored.
func Recolor(g *graph.Graph) int {
	type tally struct {
		counts map[string]int
		order  []string
	}
	tallies := make(map[string]*tally, len(g.Nodes))
	bump := func(name, color string) {
		t, ok := tallies[name]
		if !ok {
			t = &tally{counts: make(map[string]int)}
			tallies[name] = t
		}
		if t.counts[color] == 0 {
			t.order = append(t.order, color)
		}
		t.counts[color]++
	}

	for i := range g.Edges {
		c, ok := g.Edges[i].Color()
		if !ok {
			continue
		}
		bump(g.Edges[i].Source, c)
		bump(g.Edges[i].Target, c)
	}

	recolored := 0
	for i := range g.Nodes {
		n := &g.Nodes[i]
		t, ok := tallies[n.Name]
		if !ok {
			continue
		}
		best := t.order[0]
		for _, c := range t.order[1:] {
			if t.counts[c] > t.counts[best] {
				best = c
			}
		}
		if n.Attrs == nil {
			n.Attrs = make(attr.Attrs)
		}
		n.Attrs[attr.KeyColor] = best
		n.Color = best
		recolored++
	}
	return recolored
}
