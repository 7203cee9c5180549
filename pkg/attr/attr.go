// Package attr resolves node and edge attributes through cascading overrides.
//
// Attributes are free-form maps forwarded to the rendering backend (size,
// shape, color, smooth, ...). They are resolved in four layers, lowest to
// highest precedence:
//
//	global config → relationship kind → block → entry
//
// Merging is per key: a later layer overwrites a key set by an earlier layer,
// and keys absent from the later layer survive untouched. A handful of keys
// carry meaning for the compiler itself and are extracted into typed fields
// instead of being forwarded; see [Resolve].
package attr

import "maps"

// Attribute keys the compiler reads or writes.
const (
	KeyScaleFactor = "scale_factor"
	KeyRecolor     = "recolor"
	KeyTable       = "table"
	KeyClosed      = "closed"
	KeyDirected    = "directed"
	KeyTitle       = "title"
	KeyColor       = "color"
	KeySize        = "size"
	KeyImage       = "image"
)

// DefaultNodeSize is the node size assumed when no layer sets one.
const DefaultNodeSize = 25

// NodeReserved lists node keys that configure graph-wide behavior.
// They are only honored in the global config layer.
var NodeReserved = []string{KeyScaleFactor, KeyRecolor, KeyTable}

// EdgeReserved lists edge keys that configure structure rather than appearance.
var EdgeReserved = []string{KeyClosed, KeyDirected}

// Attrs is a mapping of visual or behavioral properties.
type Attrs map[string]any

// Clone returns a shallow copy. A nil map clones to an empty map.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	maps.Copy(out, a)
	return out
}

// Update overwrites keys of a with the keys of src (last write wins per key).
func (a Attrs) Update(src Attrs) {
	maps.Copy(a, src)
}

// Merge combines layers left to right into a new map. Nil layers are skipped.
func Merge(layers ...Attrs) Attrs {
	out := make(Attrs)
	for _, l := range layers {
		out.Update(l)
	}
	return out
}

// Float converts a numeric attribute value to float64.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// ColorName extracts a comparable color from an attribute value. Colors may
// be plain strings or vis-style objects such as {color: red, highlight: ...}.
func ColorName(v any) (string, bool) {
	switch c := v.(type) {
	case string:
		return c, c != ""
	case map[string]any:
		return ColorName(c[KeyColor])
	case Attrs:
		return ColorName(c[KeyColor])
	default:
		return "", false
	}
}
