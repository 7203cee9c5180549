package document

import (
	"github.com/matzehuels/relnet/pkg/errors"
)

// Keys with structural meaning inside blocks and entries.
const (
	KeyItems = "items"
	KeyNode  = "node"
	KeyEdge  = "edge"
	KeyKind  = "kind"
)

// shorthandEdgeKeys are accepted directly on a block or entry mapping and
// applied as edge overrides beneath the explicit edge map at that scope.
var shorthandEdgeKeys = []string{"color", "smooth", "title"}

// Block is a group of entries sharing node/edge overrides.
type Block struct {
	Loc     errors.Location
	Node    map[string]any
	Edge    map[string]any
	Kind    string
	Entries []Entry
}

// Entry is the unit the classifier inspects. Payload is either a list of names,
// a list of name lists, or a mapping holding from/to style keys.
type Entry struct {
	Loc     errors.Location
	Payload any
	Node    map[string]any
	Edge    map[string]any
	Kind    string
}

// Blocks splits a section into blocks and entries in declaration order.
func (s Section) Blocks() ([]Block, error) {
	secLoc := errors.Location{Section: s.Name, Block: -1, Entry: -1}

	switch v := s.Value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		b, err := blockFrom(v, errors.Location{Section: s.Name, Block: 0, Entry: -1})
		if err != nil {
			return nil, err
		}
		return []Block{b}, nil
	case []any:
		if len(v) > 0 && AllScalars(v) {
			loc := errors.Location{Section: s.Name, Block: 0, Entry: -1}
			return []Block{{Loc: loc, Entries: []Entry{{Loc: loc, Payload: v}}}}, nil
		}
		blocks := make([]Block, 0, len(v))
		for i, raw := range v {
			b, err := blockFrom(raw, errors.Location{Section: s.Name, Block: i, Entry: -1})
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, b)
		}
		return blocks, nil
	default:
		return nil, errors.Structure(secLoc, "section must be a list of blocks or a single block mapping, got %T", s.Value)
	}
}

func blockFrom(raw any, loc errors.Location) (Block, error) {
	switch v := raw.(type) {
	case []any:
		return Block{Loc: loc, Entries: []Entry{{Loc: loc, Payload: v}}}, nil
	case map[string]any:
		node, edge, kind, rest, err := splitOverrides(v, loc)
		if err != nil {
			return Block{}, err
		}
		b := Block{Loc: loc, Node: node, Edge: edge, Kind: kind}

		items, ok := rest[KeyItems]
		if !ok {
			// The block is its own sole entry; overrides live at block scope only.
			b.Entries = []Entry{{Loc: loc, Payload: rest}}
			return b, nil
		}
		list, ok := items.([]any)
		if !ok {
			return Block{}, errors.Structure(withKey(loc, KeyItems), "items must be a list, got %T", items)
		}
		if AllScalars(list) {
			b.Entries = []Entry{{Loc: loc, Payload: list}}
			return b, nil
		}
		for i, e := range list {
			entry, err := entryFrom(e, errors.Location{Section: loc.Section, Block: loc.Block, Entry: i})
			if err != nil {
				return Block{}, err
			}
			b.Entries = append(b.Entries, entry)
		}
		return b, nil
	default:
		return Block{}, errors.Structure(loc, "block must be a mapping or a list of names, got %T", raw)
	}
}

func entryFrom(raw any, loc errors.Location) (Entry, error) {
	switch v := raw.(type) {
	case []any:
		return Entry{Loc: loc, Payload: v}, nil
	case map[string]any:
		node, edge, kind, rest, err := splitOverrides(v, loc)
		if err != nil {
			return Entry{}, err
		}
		e := Entry{Loc: loc, Node: node, Edge: edge, Kind: kind, Payload: rest}
		if items, ok := rest[KeyItems]; ok {
			e.Payload = items
		}
		return e, nil
	default:
		return Entry{}, errors.Structure(loc, "entry must be a list of names or a mapping, got %T", raw)
	}
}

// splitOverrides separates node/edge/kind and shorthand edge keys from the
// structural remainder of a block or entry mapping.
func splitOverrides(m map[string]any, loc errors.Location) (node, edge map[string]any, kind string, rest map[string]any, err error) {
	rest = make(map[string]any, len(m))
	for k, v := range m {
		rest[k] = v
	}

	if raw, ok := rest[KeyNode]; ok {
		delete(rest, KeyNode)
		if node, err = asMap(raw, withKey(loc, KeyNode)); err != nil {
			return nil, nil, "", nil, err
		}
	}

	for _, k := range shorthandEdgeKeys {
		if v, ok := rest[k]; ok {
			delete(rest, k)
			if edge == nil {
				edge = make(map[string]any)
			}
			edge[k] = v
		}
	}
	if raw, ok := rest[KeyEdge]; ok {
		delete(rest, KeyEdge)
		explicit, err := asMap(raw, withKey(loc, KeyEdge))
		if err != nil {
			return nil, nil, "", nil, err
		}
		if edge == nil {
			edge = make(map[string]any, len(explicit))
		}
		for k, v := range explicit {
			edge[k] = v
		}
	}

	if raw, ok := rest[KeyKind]; ok {
		delete(rest, KeyKind)
		s, ok := raw.(string)
		if !ok {
			return nil, nil, "", nil, errors.New(errors.ErrCodeConfig, "kind must be a string, got %T", raw).At(withKey(loc, KeyKind))
		}
		kind = s
	}
	return node, edge, kind, rest, nil
}

func asMap(raw any, loc errors.Location) (map[string]any, error) {
	switch m := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return m, nil
	default:
		return nil, errors.New(errors.ErrCodeConfig, "%s overrides must be a mapping, got %T", loc.Key, raw).At(loc)
	}
}

func withKey(loc errors.Location, key string) errors.Location {
	loc.Key = key
	return loc
}

// AllScalars reports whether no element of list is a list or mapping.
func AllScalars(list []any) bool {
	for _, v := range list {
		switch v.(type) {
		case []any, map[string]any:
			return false
		}
	}
	return true
}

// IsScalar reports whether v is a non-container value usable as a name.
func IsScalar(v any) bool {
	switch v.(type) {
	case nil, []any, map[string]any:
		return false
	}
	return true
}
