package classify

import (
	"reflect"
	"testing"

	"github.com/matzehuels/relnet/pkg/attr"
	"github.com/matzehuels/relnet/pkg/document"
	"github.com/matzehuels/relnet/pkg/errors"
)

var loc = errors.Location{Section: "s", Block: 0, Entry: 1}

func TestClassifyLinear(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		want    Shape
		wantErr bool
	}{
		{
			name:  "flat list",
			entry: Entry{Payload: []any{"A", "B", "C"}},
			want:  Linear{Sequences: [][]string{{"A", "B", "C"}}},
		},
		{
			name:  "list of sequences",
			entry: Entry{Payload: []any{[]any{"A", "B"}, []any{"C", "D", "E"}}},
			want:  Linear{Sequences: [][]string{{"A", "B"}, {"C", "D", "E"}}},
		},
		{
			name:  "closed ring",
			entry: Entry{Payload: []any{"X", "Y", "Z"}, Closed: attr.ClosedRing},
			want:  Linear{Sequences: [][]string{{"X", "Y", "Z"}}, Closed: true},
		},
		{
			name:  "scalars rendered as names",
			entry: Entry{Payload: []any{1, 2.5, true}},
			want:  Linear{Sequences: [][]string{{"1", "2.5", "true"}}},
		},
		{
			name:  "repeats kept in sequence",
			entry: Entry{Payload: []any{"A", "B", "A"}},
			want:  Linear{Sequences: [][]string{{"A", "B", "A"}}},
		},
		{
			name:  "hint linear",
			entry: Entry{Payload: []any{"A", "B"}, Hint: "linear"},
			want:  Linear{Sequences: [][]string{{"A", "B"}}},
		},
		{
			name:  "unrelated hint ignored",
			entry: Entry{Payload: []any{"A", "B"}, Hint: "series"},
			want:  Linear{Sequences: [][]string{{"A", "B"}}},
		},
		{
			name:    "nested too deep",
			entry:   Entry{Payload: []any{[]any{[]any{"A"}}}},
			wantErr: true,
		},
		{
			name:    "mixed scalars and lists",
			entry:   Entry{Payload: []any{[]any{"A", "B"}, "C"}},
			wantErr: true,
		},
		{
			name:    "empty name",
			entry:   Entry{Payload: []any{"A", "  "}},
			wantErr: true,
		},
		{
			name:    "null name",
			entry:   Entry{Payload: []any{"A", nil}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.entry)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Classify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeStructure) {
					t.Errorf("error code = %v, want STRUCTURE_ERROR", errors.GetCode(err))
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestClassifyBranching(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    Shape
		wantErr bool
	}{
		{
			name:    "from to lists",
			payload: map[string]any{"from": []any{"A", "B"}, "to": []any{"C", "D", "E"}},
			want:    Branching{From: []string{"A", "B"}, To: []string{"C", "D", "E"}},
		},
		{
			name:    "materials product",
			payload: map[string]any{"materials": []any{"Water", "Fire"}, "product": "Steam"},
			want:    Branching{From: []string{"Water", "Fire"}, To: []string{"Steam"}},
		},
		{
			name:    "root branches",
			payload: map[string]any{"root": "Seed", "branches": []any{"Leaf", "Stem"}},
			want:    Branching{From: []string{"Seed"}, To: []string{"Leaf", "Stem"}},
		},
		{
			name:    "duplicates on a side dropped",
			payload: map[string]any{"from": []any{"A", "A", "B"}, "to": "C"},
			want:    Branching{From: []string{"A", "B"}, To: []string{"C"}},
		},
		{
			name:    "missing to",
			payload: map[string]any{"from": "A"},
			wantErr: true,
		},
		{
			name:    "missing from",
			payload: map[string]any{"product": "A"},
			wantErr: true,
		},
		{
			name:    "mixed pairs",
			payload: map[string]any{"from": "A", "to": "B", "root": "C", "branches": "D"},
			wantErr: true,
		},
		{
			name:    "unknown key",
			payload: map[string]any{"from": "A", "to": "B", "via": "C"},
			wantErr: true,
		},
		{
			name:    "empty side",
			payload: map[string]any{"from": []any{}, "to": "B"},
			wantErr: true,
		},
		{
			name:    "nested side",
			payload: map[string]any{"from": []any{[]any{"A"}}, "to": "B"},
			wantErr: true,
		},
		{
			name:    "no shape",
			payload: map[string]any{"name": "A"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(Entry{Loc: loc, Payload: tt.payload})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Classify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeStructure) {
					t.Errorf("error code = %v, want STRUCTURE_ERROR", errors.GetCode(err))
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestClassifyClique(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		want    Shape
		wantErr bool
	}{
		{
			name:  "clique section",
			entry: Entry{Payload: []any{"A", "B", "C"}, CliqueSection: true},
			want:  Clique{Members: []string{"A", "B", "C"}},
		},
		{
			name:  "closed complete",
			entry: Entry{Payload: []any{"A", "B"}, Closed: attr.ClosedComplete},
			want:  Clique{Members: []string{"A", "B"}},
		},
		{
			name:  "kind hint",
			entry: Entry{Payload: []any{"A", "B", "A"}, Hint: "clique"},
			want:  Clique{Members: []string{"A", "B"}},
		},
		{
			name:    "clique with sequences",
			entry:   Entry{Payload: []any{[]any{"A", "B"}, []any{"C"}}, CliqueSection: true},
			wantErr: true,
		},
		{
			name:    "clique with mapping",
			entry:   Entry{Payload: map[string]any{"from": "A", "to": "B"}, Hint: "clique"},
			wantErr: true,
		},
		{
			name:  "closed complete ignores mapping",
			entry: Entry{Payload: map[string]any{"from": "A", "to": "B"}, Closed: attr.ClosedComplete},
			want:  Branching{From: []string{"A"}, To: []string{"B"}},
		},
		{
			name:  "closed complete ignores sequences",
			entry: Entry{Payload: []any{[]any{"A", "B"}, []any{"C", "D"}}, Closed: attr.ClosedComplete},
			want:  Linear{Sequences: [][]string{{"A", "B"}, {"C", "D"}}},
		},
		{
			name:  "closed complete with linear hint",
			entry: Entry{Payload: []any{"A", "B"}, Closed: attr.ClosedComplete, Hint: "linear"},
			want:  Linear{Sequences: [][]string{{"A", "B"}}},
		},
		{
			name:    "clique section with linear hint",
			entry:   Entry{Payload: []any{"A", "B"}, CliqueSection: true, Hint: "linear"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.entry)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Classify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestClassifyHintMismatch(t *testing.T) {
	_, err := Classify(Entry{Loc: loc, Payload: []any{"A", "B"}, Hint: "branching"})
	if !errors.Is(err, errors.ErrCodeStructure) {
		t.Fatalf("Classify() error = %v, want STRUCTURE_ERROR", err)
	}
}

func TestClassifyUnclassifiableLocation(t *testing.T) {
	_, err := Classify(Entry{Loc: loc, Payload: "just a string"})
	if !errors.Is(err, errors.ErrCodeStructure) {
		t.Fatalf("Classify() error = %v, want STRUCTURE_ERROR", err)
	}
	got, ok := errors.GetLocation(err)
	if !ok || got.String() != "s[0].items[1]" {
		t.Errorf("location = %v, want s[0].items[1]", got)
	}
}

func TestClassifyBranchingKeyLocation(t *testing.T) {
	_, err := Classify(Entry{Loc: loc, Payload: map[string]any{"from": "A", "to": "B", "via": "C"}})
	got, _ := errors.GetLocation(err)
	if got.String() != "s[0].items[1].via" {
		t.Errorf("location = %v, want s[0].items[1].via", got)
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		shape Shape
		want  []string
	}{
		{Linear{Sequences: [][]string{{"A", "B"}, {"B", "C", "A"}}}, []string{"A", "B", "C"}},
		{Branching{From: []string{"A", "B"}, To: []string{"B", "C"}}, []string{"A", "B", "C"}},
		{Clique{Members: []string{"X", "Y"}}, []string{"X", "Y"}},
	}

	for _, tt := range tests {
		if got := tt.shape.Names(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s Names() = %v, want %v", tt.shape.Kind(), got, tt.want)
		}
	}
}

func TestFromDocument(t *testing.T) {
	b := document.Block{Kind: "clique"}
	e := document.Entry{Loc: loc, Payload: []any{"A"}, Kind: "linear"}

	in := FromDocument("complete", b, e, attr.ClosedNone)
	if in.Hint != "linear" {
		t.Errorf("Hint = %q, want entry kind to win", in.Hint)
	}
	if !in.CliqueSection {
		t.Error("CliqueSection = false for section \"complete\"")
	}
	if in.Loc != loc {
		t.Errorf("Loc = %v, want %v", in.Loc, loc)
	}
}

func TestKindString(t *testing.T) {
	for _, k := range []Kind{KindLinear, KindBranching, KindClique} {
		parsed, ok := ParseKind(k.String())
		if !ok || parsed != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), parsed, ok)
		}
	}
	if _, ok := ParseKind("series"); ok {
		t.Error("ParseKind(series) ok = true")
	}
}
