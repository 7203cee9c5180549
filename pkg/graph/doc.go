// Package graph holds the compiled relationship network and its builder.
//
// A [Builder] accumulates nodes and edges in document order. Nodes are keyed
// purely by name: every reference to a name after the first merges its
// attributes into the existing record, last write wins per key. Edges are
// never deduplicated; each carries a sequence index, its relationship kind and
// the section that produced it.
//
// [Builder.Seal] ends the building stage and returns an independent [Graph]
// snapshot. Later stages (degree, scaling, recoloring) operate on the snapshot,
// never on the builder.
//
// # Serialization
//
// Graphs use a node-link JSON format:
//
//	{
//	  "meta":  {"physics": {"enabled": false}},
//	  "nodes": [{"name": "A", "attrs": {"size": 25}, "base_size": 25, "degree": 1}],
//	  "edges": [{"index": 0, "source": "A", "target": "B", "directed": true, "kind": "linear"}]
//	}
//
// Common operations:
//
//	data, _ := graph.Marshal(g)            // Graph → []byte
//	g, _ := graph.Unmarshal(data)          // []byte → Graph
//	graph.Write(g, os.Stdout)              // Graph → io.Writer
//
// # Concurrency
//
// Builders and graphs are not safe for concurrent writes.
package graph
