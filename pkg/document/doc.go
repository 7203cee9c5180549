// Package document loads relationship documents into an ordered tree.
//
// # Overview
//
// A relationship document is a YAML or TOML file whose top-level keys are
// arbitrary section names plus one reserved key, config:
//
//	config:
//	  node: {size: 10, scale_factor: 1}
//	series:
//	  - items: [[Egg, Chick, Hen]]
//	convergence:
//	  - materials: [Flour, Water]
//	    product: Dough
//
// Section order is significant to the compiler (later sections win attribute
// merges), so [Parse] keeps sections in declaration order. Everything below
// the section level is decoded into plain Go values: map[string]any, []any
// and scalars.
//
// # Formats
//
// YAML is decoded through gopkg.in/yaml.v3 node trees; TOML through
// github.com/BurntSushi/toml, with section order recovered from the decoder's
// key metadata. [FormatFromPath] chooses the format from a file extension.
package document
