// Package classify decides the structural shape of a declared entry.
//
// Classification looks only at the entry's payload and explicit markers, never
// at the name of the section it lives in (apart from the conventional clique
// section names, which act as a marker). The result is one of three variants:
//
//   - [Linear]: one or more ordered name sequences, optionally closed into rings
//   - [Branching]: a "from" set connected to a "to" set
//   - [Clique]: a set of names connected pairwise
//
// Anything else is a STRUCTURE_ERROR carrying the entry's location.
package classify

import (
	"fmt"
	"slices"

	"github.com/matzehuels/relnet/pkg/attr"
	"github.com/matzehuels/relnet/pkg/document"
	"github.com/matzehuels/relnet/pkg/errors"
)

// Kind is the relationship kind of a classified entry.
type Kind int

const (
	KindLinear Kind = iota + 1
	KindBranching
	KindClique
)

// String returns the kind name used in config and edge tags.
func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindBranching:
		return "branching"
	case KindClique:
		return "clique"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a kind name to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "linear":
		return KindLinear, true
	case "branching":
		return KindBranching, true
	case "clique":
		return KindClique, true
	default:
		return 0, false
	}
}

// CliqueSections are section names whose entries are cliques.
var CliqueSections = []string{"clique", "cliques", "complete"}

// IsCliqueSection reports whether a section name marks its entries as cliques.
func IsCliqueSection(name string) bool {
	return slices.Contains(CliqueSections, name)
}

// BranchingKeys lists the accepted from/to key pairs in lookup order.
var BranchingKeys = [][2]string{
	{"from", "to"},
	{"materials", "product"},
	{"root", "branches"},
}

// Shape is the tagged result of classification.
type Shape interface {
	Kind() Kind
	// Names returns every referenced name in first-seen order, without duplicates.
	Names() []string
	shape()
}

// Linear connects consecutive names of each sequence.
type Linear struct {
	Sequences [][]string
	// Closed adds an edge from the last name of each sequence back to the first.
	Closed bool
}

// Branching connects every From name to every To name.
type Branching struct {
	From []string
	To   []string
}

// Clique connects every unordered pair of Members.
type Clique struct {
	Members []string
}

func (Linear) Kind() Kind    { return KindLinear }
func (Branching) Kind() Kind { return KindBranching }
func (Clique) Kind() Kind    { return KindClique }

func (l Linear) Names() []string    { return unique(slices.Concat(l.Sequences...)) }
func (b Branching) Names() []string { return unique(slices.Concat(b.From, b.To)) }
func (c Clique) Names() []string    { return slices.Clone(c.Members) }

func (Linear) shape()    {}
func (Branching) shape() {}
func (Clique) shape()    {}

// Entry is the classifier input: a payload plus the markers that can force a shape.
type Entry struct {
	Loc     errors.Location
	Payload any
	// Hint is an explicit kind name from the entry or its block. Names other
	// than linear, branching and clique do not constrain the shape.
	Hint string
	// CliqueSection is set when the containing section has a clique name.
	CliqueSection bool
	// Closed is the closed flag as set by the global, section, block and
	// entry edge layers.
	Closed attr.Closed
}

// FromDocument builds classifier input for a document entry.
func FromDocument(section string, b document.Block, e document.Entry, closed attr.Closed) Entry {
	hint := b.Kind
	if e.Kind != "" {
		hint = e.Kind
	}
	return Entry{
		Loc:           e.Loc,
		Payload:       e.Payload,
		Hint:          hint,
		CliqueSection: IsCliqueSection(section),
		Closed:        closed,
	}
}

// Classify determines the shape of one entry.
func Classify(e Entry) (Shape, error) {
	forced, hinted := ParseKind(e.Hint)
	if e.CliqueSection && hinted && forced != KindClique {
		return nil, errors.Structure(e.Loc, "entry in a clique section declares kind %q", e.Hint)
	}
	clique := e.CliqueSection || (hinted && forced == KindClique)

	var (
		s   Shape
		err error
	)
	switch p := e.Payload.(type) {
	case []any:
		// closed: complete only turns an unhinted flat list into a clique.
		complete := !hinted && e.Closed == attr.ClosedComplete && document.AllScalars(p)
		s, err = classifyList(p, e.Loc, clique || complete, e.Closed == attr.ClosedRing)
	case map[string]any:
		if clique {
			return nil, errors.Structure(e.Loc, "clique entry must be a list of names")
		}
		s, err = classifyBranching(p, e.Loc)
	default:
		return nil, errors.Structure(e.Loc, "entry is neither a list of names nor a from/to mapping (got %T)", e.Payload)
	}
	if err != nil {
		return nil, err
	}

	if hinted && s.Kind() != forced {
		return nil, errors.Structure(e.Loc, "entry declares kind %q but has a %s shape", e.Hint, s.Kind())
	}
	return s, nil
}

func classifyList(list []any, loc errors.Location, clique, ring bool) (Shape, error) {
	if document.AllScalars(list) {
		names, err := namesOf(list, loc)
		if err != nil {
			return nil, err
		}
		if clique {
			return Clique{Members: unique(names)}, nil
		}
		return Linear{Sequences: [][]string{names}, Closed: ring}, nil
	}

	if clique {
		return nil, errors.Structure(loc, "clique entry must be a single flat list of names")
	}

	seqs := make([][]string, 0, len(list))
	for i, raw := range list {
		seq, ok := raw.([]any)
		if !ok || !document.AllScalars(seq) {
			return nil, errors.Structure(loc, "sequence %d must be a flat list of names, got %T", i, raw)
		}
		names, err := namesOf(seq, loc)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, names)
	}
	return Linear{Sequences: seqs, Closed: ring}, nil
}

func classifyBranching(m map[string]any, loc errors.Location) (Shape, error) {
	var (
		pair  [2]string
		found bool
	)
	for _, p := range BranchingKeys {
		_, hasFrom := m[p[0]]
		_, hasTo := m[p[1]]
		switch {
		case hasFrom && hasTo:
			if found {
				return nil, errors.Structure(loc, "entry mixes %s/%s with %s/%s", pair[0], pair[1], p[0], p[1])
			}
			pair, found = p, true
		case hasFrom:
			return nil, errors.Structure(loc, "entry has %q but no %q", p[0], p[1])
		case hasTo:
			return nil, errors.Structure(loc, "entry has %q but no %q", p[1], p[0])
		}
	}
	if !found {
		return nil, errors.Structure(loc, "entry is neither a list of names nor a from/to mapping (keys: %v)", sortedKeys(m))
	}

	for k := range m {
		if k != pair[0] && k != pair[1] {
			return nil, errors.Structure(withKey(loc, k), "unexpected key in %s/%s entry", pair[0], pair[1])
		}
	}

	from, err := side(m[pair[0]], withKey(loc, pair[0]))
	if err != nil {
		return nil, err
	}
	to, err := side(m[pair[1]], withKey(loc, pair[1]))
	if err != nil {
		return nil, err
	}
	return Branching{From: from, To: to}, nil
}

// side reads one branching side: a single name or a flat list of names.
func side(raw any, loc errors.Location) ([]string, error) {
	var list []any
	switch v := raw.(type) {
	case []any:
		if !document.AllScalars(v) {
			return nil, errors.Structure(loc, "must be a name or a flat list of names")
		}
		list = v
	default:
		list = []any{v}
	}
	names, err := namesOf(list, loc)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.Structure(loc, "must name at least one node")
	}
	return unique(names), nil
}

func namesOf(list []any, loc errors.Location) ([]string, error) {
	names := make([]string, 0, len(list))
	for _, v := range list {
		if v == nil {
			return nil, errors.Structure(loc, "node name must not be null")
		}
		name := fmt.Sprint(v)
		if err := errors.ValidateNodeName(name); err != nil {
			if e, ok := err.(*errors.Error); ok {
				return nil, e.At(loc)
			}
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func withKey(loc errors.Location, key string) errors.Location {
	loc.Key = key
	return loc
}
