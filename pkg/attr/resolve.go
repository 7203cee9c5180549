package attr

import (
	"fmt"

	"github.com/matzehuels/relnet/pkg/errors"
)

// Scope names an override layer.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeKind
	ScopeBlock
	ScopeEntry
)

func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeKind:
		return "kind"
	case ScopeBlock:
		return "block"
	case ScopeEntry:
		return "entry"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Layer is one level of node and edge overrides.
type Layer struct {
	Node Attrs
	Edge Attrs
}

// Closed is the typed form of the edge "closed" key.
type Closed int

const (
	// ClosedNone leaves sequences open.
	ClosedNone Closed = iota
	// ClosedRing connects the last name of a sequence back to the first.
	ClosedRing
	// ClosedComplete turns a list into a clique.
	ClosedComplete
)

// closedCompleteValue selects ClosedComplete.
const closedCompleteValue = "complete"

// ParseClosed converts a raw "closed" value.
func ParseClosed(v any) (Closed, error) {
	switch c := v.(type) {
	case nil:
		return ClosedNone, nil
	case bool:
		if c {
			return ClosedRing, nil
		}
		return ClosedNone, nil
	case string:
		if c == closedCompleteValue {
			return ClosedComplete, nil
		}
	}
	return ClosedNone, fmt.Errorf("closed must be true, false or %q, got %v", closedCompleteValue, v)
}

// EdgeFlags holds the typed reserved edge keys after resolution.
type EdgeFlags struct {
	Closed Closed
	// Directed is nil when no layer set it; callers fall back to the kind default.
	Directed *bool
}

// Ignored records a reserved node key dropped at a scope finer than global.
type Ignored struct {
	Scope Scope
	Key   string
	Value any
}

// Resolved is the outcome of cascading four layers for one entry.
type Resolved struct {
	Node    Attrs
	Edge    Attrs
	Flags   EdgeFlags
	Ignored []Ignored
}

// Resolve merges global, kind, block and entry layers into final node and
// edge attributes for one entry.
//
// Reserved edge keys (closed, directed) are extracted from the merged edge map
// into [EdgeFlags]. Reserved node keys (scale_factor, recolor, table) are
// graph-wide: the global layer is expected to have had them extracted by the
// config loader, and occurrences in any finer layer are removed and reported
// in Resolved.Ignored.
//
// The returned error is a CONFIG_ERROR keyed by the offending attribute.
func Resolve(global, kind, block, entry Layer) (Resolved, error) {
	var res Resolved

	layers := []Layer{global, kind, block, entry}
	nodeLayers := make([]Attrs, len(layers))
	edgeLayers := make([]Attrs, len(layers))
	for i, l := range layers {
		nodeLayers[i] = l.Node
		edgeLayers[i] = l.Edge
		if Scope(i) == ScopeGlobal {
			continue
		}
		for _, k := range NodeReserved {
			if v, ok := l.Node[k]; ok {
				res.Ignored = append(res.Ignored, Ignored{Scope: Scope(i), Key: k, Value: v})
			}
		}
	}

	res.Node = Merge(nodeLayers...)
	for _, k := range NodeReserved {
		delete(res.Node, k)
	}

	res.Edge = Merge(edgeLayers...)
	flags, err := extractFlags(res.Edge)
	if err != nil {
		return Resolved{}, err
	}
	res.Flags = flags
	return res, nil
}

// extractFlags removes reserved keys from edge and returns their typed form.
func extractFlags(edge Attrs) (EdgeFlags, error) {
	var flags EdgeFlags

	if raw, ok := edge[KeyClosed]; ok {
		delete(edge, KeyClosed)
		c, err := ParseClosed(raw)
		if err != nil {
			return EdgeFlags{}, errors.Wrap(errors.ErrCodeConfig, err, "invalid edge attribute").At(errors.Location{Block: -1, Entry: -1, Key: "edge." + KeyClosed})
		}
		flags.Closed = c
	}

	if raw, ok := edge[KeyDirected]; ok {
		delete(edge, KeyDirected)
		b, ok := raw.(bool)
		if !ok {
			return EdgeFlags{}, errors.New(errors.ErrCodeConfig, "directed must be a boolean, got %T", raw).At(errors.Location{Block: -1, Entry: -1, Key: "edge." + KeyDirected})
		}
		flags.Directed = &b
	}
	return flags, nil
}

// ClosedFrom reports the closed flag as set by the given edge layers, highest
// precedence last, without merging anything else. The classifier uses it to
// detect clique markers before kind defaults can be selected.
func ClosedFrom(layers ...Attrs) (Closed, error) {
	var raw any
	for _, l := range layers {
		if v, ok := l[KeyClosed]; ok {
			raw = v
		}
	}
	c, err := ParseClosed(raw)
	if err != nil {
		return ClosedNone, errors.Wrap(errors.ErrCodeConfig, err, "invalid edge attribute").At(errors.Location{Block: -1, Entry: -1, Key: "edge." + KeyClosed})
	}
	return c, nil
}
