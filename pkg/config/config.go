// Package config resolves the process-wide defaults of a relnet build.
//
// The document's "config" key is deep-merged over built-in defaults, then the
// keys with compiler meaning are lifted into typed fields. Everything else is
// carried verbatim in [Config.Meta] for the rendering backend (physics,
// layout, interaction settings and the like).
package config

import (
	"maps"

	"github.com/matzehuels/relnet/pkg/attr"
	"github.com/matzehuels/relnet/pkg/errors"
)

// Top-level config keys.
const (
	KeyNode           = "node"
	KeyEdge           = "edge"
	KeyOperation      = "operation"
	KeyKinds          = "kinds"
	KeyDownloadImages = "download_images"
	KeyImages         = "images"
)

// Config is the resolved, read-only configuration for one build.
type Config struct {
	// Node and Edge are the global attribute layers. Node has the reserved
	// graph-wide keys removed; Edge may still carry closed/directed.
	Node attr.Attrs
	Edge attr.Attrs

	// Kinds maps a relationship kind or section name to its default layer.
	Kinds map[string]attr.Layer

	ScaleFactor float64
	Recolor     bool
	Table       bool

	DownloadImages bool
	// Images is forwarded to the image provider untouched.
	Images map[string]any

	// Meta holds pass-through keys for the rendering backend.
	Meta map[string]any
}

// Defaults returns the built-in configuration tree.
func Defaults() map[string]any {
	return map[string]any{
		KeyNode: map[string]any{attr.KeySize: attr.DefaultNodeSize},
		KeyEdge: map[string]any{},
		KeyOperation: map[string]any{
			"series":      map[string]any{attr.KeyColor: "orange", "smooth": true},
			"convergence": map[string]any{attr.KeyColor: "purple", "smooth": true},
			"parallel":    map[string]any{attr.KeyColor: "green", "smooth": false, attr.KeyDirected: false},
			"divergence":  map[string]any{attr.KeyColor: "red", "smooth": true},
		},
		KeyDownloadImages: false,
	}
}

// Load merges raw over [Defaults] and resolves the typed fields.
// A nil raw map yields the defaults.
func Load(raw map[string]any) (*Config, error) {
	if kinds, ok := raw[KeyKinds]; ok {
		raw = maps.Clone(raw)
		delete(raw, KeyKinds)
		if op, ok := raw[KeyOperation]; ok {
			raw[KeyOperation] = DeepMerge(asTree(op), asTree(kinds))
		} else {
			raw[KeyOperation] = kinds
		}
	}
	tree := DeepMerge(Defaults(), raw)

	cfg := &Config{
		Kinds: make(map[string]attr.Layer),
		Meta:  make(map[string]any),
	}

	node, err := mapAt(tree, KeyNode)
	if err != nil {
		return nil, err
	}
	cfg.Node = attr.Attrs(node).Clone()
	if err := cfg.liftReserved(); err != nil {
		return nil, err
	}

	edge, err := mapAt(tree, KeyEdge)
	if err != nil {
		return nil, err
	}
	cfg.Edge = attr.Attrs(edge).Clone()

	ops, err := mapAt(tree, KeyOperation)
	if err != nil {
		return nil, err
	}
	for name, v := range ops {
		layer, err := kindLayer(name, v)
		if err != nil {
			return nil, err
		}
		cfg.Kinds[name] = layer
	}

	if v, ok := tree[KeyDownloadImages]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return nil, errors.Config(KeyDownloadImages, "must be a boolean, got %T", v)
		}
		cfg.DownloadImages = b
	}

	if v, ok := tree[KeyImages]; ok && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, errors.Config(KeyImages, "must be a mapping, got %T", v)
		}
		cfg.Images = m
	}

	for k, v := range tree {
		switch k {
		case KeyNode, KeyEdge, KeyOperation, KeyDownloadImages, KeyImages:
		default:
			cfg.Meta[k] = v
		}
	}
	return cfg, nil
}

// liftReserved moves scale_factor, recolor and table out of the node layer.
func (c *Config) liftReserved() error {
	if v, ok := c.Node[attr.KeyScaleFactor]; ok {
		delete(c.Node, attr.KeyScaleFactor)
		if v != nil {
			f, ok := attr.Float(v)
			if !ok {
				return errors.Config(KeyNode+"."+attr.KeyScaleFactor, "must be a number, got %T", v)
			}
			if f < 0 {
				return errors.Config(KeyNode+"."+attr.KeyScaleFactor, "must not be negative, got %v", f)
			}
			c.ScaleFactor = f
		}
	}
	for _, f := range []struct {
		key string
		dst *bool
	}{
		{attr.KeyRecolor, &c.Recolor},
		{attr.KeyTable, &c.Table},
	} {
		v, ok := c.Node[f.key]
		if !ok {
			continue
		}
		delete(c.Node, f.key)
		if v == nil {
			continue
		}
		b, ok := v.(bool)
		if !ok {
			return errors.Config(KeyNode+"."+f.key, "must be a boolean, got %T", v)
		}
		*f.dst = b
	}
	return nil
}

// Global returns the global attribute layer.
func (c *Config) Global() attr.Layer {
	return attr.Layer{Node: c.Node, Edge: c.Edge}
}

// KindLayer returns the defaults for a classified kind followed by the
// defaults registered under the section's name, merged per key.
func (c *Config) KindLayer(kind, section string) attr.Layer {
	k := c.Kinds[kind]
	if kind == section {
		return attr.Layer{Node: k.Node.Clone(), Edge: k.Edge.Clone()}
	}
	s := c.Kinds[section]
	return attr.Layer{
		Node: attr.Merge(k.Node, s.Node),
		Edge: attr.Merge(k.Edge, s.Edge),
	}
}

// kindLayer interprets one operation entry. A value holding node/edge maps
// sets both layers; any other mapping is taken as edge attributes.
func kindLayer(name string, v any) (attr.Layer, error) {
	if v == nil {
		return attr.Layer{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return attr.Layer{}, errors.Config(KeyOperation+"."+name, "must be a mapping, got %T", v)
	}

	_, hasNode := m[KeyNode]
	_, hasEdge := m[KeyEdge]
	if !hasNode && !hasEdge {
		return attr.Layer{Edge: attr.Attrs(m).Clone()}, nil
	}

	node, err := mapAt(m, KeyNode)
	if err != nil {
		return attr.Layer{}, errors.Config(KeyOperation+"."+name+"."+KeyNode, "must be a mapping")
	}
	edge, err := mapAt(m, KeyEdge)
	if err != nil {
		return attr.Layer{}, errors.Config(KeyOperation+"."+name+"."+KeyEdge, "must be a mapping")
	}
	return attr.Layer{Node: attr.Attrs(node).Clone(), Edge: attr.Attrs(edge).Clone()}, nil
}

func mapAt(tree map[string]any, key string) (map[string]any, error) {
	v, ok := tree[key]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Config(key, "must be a mapping, got %T", v)
	}
	return m, nil
}

func asTree(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// DeepMerge returns a new tree with src merged over dst. Nested mappings are
// merged recursively; any other src value replaces the dst value.
func DeepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		sm, sok := v.(map[string]any)
		dm, dok := out[k].(map[string]any)
		if sok && dok {
			out[k] = DeepMerge(dm, sm)
			continue
		}
		out[k] = v
	}
	return out
}
