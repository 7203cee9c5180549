package graph

import (
	"strings"
	"testing"

	"github.com/matzehuels/relnet/pkg/attr"
	"github.com/matzehuels/relnet/pkg/classify"
)

func sample(t *testing.T) *Graph {
	t.Helper()
	return build(t,
		Occurrence{Section: "series", Shape: linear([]string{"A", "B", "C"}), Node: attr.Attrs{"size": 10}, Edge: attr.Attrs{"color": "orange"}, Directed: true},
		Occurrence{Section: "cliques", Shape: classify.Clique{Members: []string{"C", "D"}}},
	)
}

func TestClone(t *testing.T) {
	g := sample(t)
	c := g.Clone()

	n, _ := c.Node("A")
	n.Attrs["size"] = 99
	n.Degree = 7
	c.Edges[0].Attrs["color"] = "black"

	orig, _ := g.Node("A")
	if orig.Attrs["size"] != 10 || orig.Degree != 0 {
		t.Errorf("Clone() shares node state: %+v", orig)
	}
	if g.Edges[0].Attrs["color"] != "orange" {
		t.Error("Clone() shares edge attrs")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	g := sample(t)
	g.Meta = map[string]any{"layout": "hierarchical"}

	data, err := Marshal(g)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"source": "A"`) {
		t.Errorf("Marshal() output missing edge source:\n%s", data)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.NodeCount() != g.NodeCount() || got.EdgeCount() != g.EdgeCount() {
		t.Fatalf("round trip: %d/%d, want %d/%d", got.NodeCount(), got.EdgeCount(), g.NodeCount(), g.EdgeCount())
	}
	if n, ok := got.Node("D"); !ok || n.BaseSize != attr.DefaultNodeSize {
		t.Errorf("Node(D) = %+v, %v", n, ok)
	}
	if got.Meta["layout"] != "hierarchical" {
		t.Errorf("Meta = %v", got.Meta)
	}
	if got.Edges[2].Kind != "clique" || got.Edges[2].Directed {
		t.Errorf("clique edge = %+v", got.Edges[2])
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad json", `{`},
		{"unknown endpoint", `{"nodes":[{"name":"A"}],"edges":[{"source":"A","target":"B"}]}`},
		{"duplicate node", `{"nodes":[{"name":"A"},{"name":"A"}],"edges":[]}`},
		{"empty name", `{"nodes":[{"name":""}],"edges":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(tt.data)); err == nil {
				t.Error("Unmarshal() error = nil")
			}
		})
	}
}
