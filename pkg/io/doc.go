// Package io provides JSON snapshots of finalized layout trees.
//
// # Overview
//
// A snapshot is the frozen, derived view of a tree that downstream tools
// consume: one record per node in arena order with its type, extents,
// parent link, exponent linkage and the properties computed by
// [snode.Tree.Finalize]. Snapshots are read-only; they do not rebuild a
// tree.
//
// # JSON Format
//
//	{
//	  "id": "5d1c...-5...",
//	  "name": "particles",
//	  "nodes": [
//	    {"id": 0, "name": "S0", "type": "root", "parent": -1, "children": [1]},
//	    {"id": 1, "name": "S1", "type": "dense", "parent": 0,
//	     "axes": [{"axis": 0, "num_bits": 3, "num_elements": 5, ...}], ...}
//	  ]
//	}
//
// # Export
//
// Use [WriteJSON] to write to any io.Writer, or [ExportJSON] for a file. The
// tree must be finalized.
//
// # Import
//
// Use [ReadJSON] or [ImportJSON] to load a snapshot. Both check that node
// ids are dense, that every reference points at an existing node and that
// child and parent links agree.
//
// # Identity
//
// Every snapshot carries a version 5 UUID derived from its name and nodes,
// so the same layout built twice has the same id.
//
// # Publishing
//
// [MongoStore] keeps snapshots in a MongoDB collection keyed by id, for
// tools that compare layouts across builds.
package io
