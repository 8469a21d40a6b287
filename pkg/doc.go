// Package pkg provides the core libraries for sparsetree, a builder and
// inspector for hierarchical sparse/dense data-layout trees.
//
// # Overview
//
// A layout tree describes how multi-dimensional fields map onto memory:
// containers partition index axes (dense, pointer, hash, bitmasked,
// dynamic), bit-level containers pack narrow custom types into one word,
// and leaves bind fields. The pkg directory is organized as:
//
//  1. [snode] - the layout tree: builders, placement, gradients, queries
//  2. [dtype], [field] - element types and the fields leaves are bound to
//  3. [manifest] - TOML layout manifests and the layouts they build
//  4. [io] - JSON snapshots of finalized trees and their MongoDB store
//  5. [render] - Graphviz node-link diagrams and SVG conversion
//  6. [cache] - render artifact cache (file or Redis)
//  7. [errors], [observability], [buildinfo] - shared infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	TOML manifest
//	     ↓
//	[manifest] package (declare fields, grow the tree, place, lazy grad)
//	     ↓
//	[snode] package (Finalize: parent links, bit offsets, trailing bits)
//	     ↓
//	dump / query / DOT, SVG, PDF, PNG / JSON snapshot
//
// # Quick Start
//
// Build a tree by hand and query it:
//
//	import (
//	    "github.com/matzehuels/sparsetree/pkg/dtype"
//	    "github.com/matzehuels/sparsetree/pkg/field"
//	    "github.com/matzehuels/sparsetree/pkg/snode"
//	)
//
//	tree := snode.New()
//	block, _ := tree.Root().Pointer([]snode.Axis{0}, []int{64})
//	cells, _ := block.Dense([]snode.Axis{0}, []int{5})
//	x := field.NewDifferentiable("x", dtype.F32)
//	leaf, _ := cells.Place(x, nil)
//	_ = tree.Root().LazyGrad()
//	_ = tree.Finalize()
//
//	lsa, _ := leaf.LeastSparseAncestor() // the pointer container
//	bits, _ := leaf.NumBits(0)           // 6 + 3 = 9
//
// Or load a manifest:
//
//	m, _ := manifest.Load("particles.toml")
//	layout, _ := manifest.Build(m)
//	info, _ := layout.Describe("x")
//
// # CLI
//
// The sparsetree command wraps these packages:
//
//	sparsetree build particles.toml --dump
//	sparsetree query particles.toml x
//	sparsetree render particles.toml -f svg,png
//	sparsetree serve examples/layouts
//
// See the individual package documentation for details.
package pkg
