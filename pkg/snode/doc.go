// Package snode provides the hierarchical data-layout descriptor tree a
// tensor compiler uses to map logical multi-dimensional fields onto
// physical memory.
//
// # Overview
//
// A [Tree] is grown top-down from its root. Interior nodes are containers
// that partition one or more logical axes: dense blocks, sparse containers
// whose cells may be absent at run time (pointer, hash, bitmasked, dynamic),
// and bit-level containers that pack narrow custom types into one physical
// integer (bit_struct, bit_array). Leaves are place nodes, each backing
// exactly one user field.
//
// # Basic Usage
//
// Grow containers with the typed builders on [Node], bind fields with
// [Node.Place], then run [Tree.Finalize] before asking structural queries:
//
//	t := snode.New()
//	block, _ := t.Root().Pointer([]snode.Axis{0}, []int{16})
//	cell, _ := block.Dense([]snode.Axis{0}, []int{8})
//	leaf, _ := cell.Place(x, nil)
//	_ = t.Finalize()
//	sparse, _ := leaf.LeastSparseAncestor() // == block
//
// # Extents
//
// Every container extent is a power of two. A request for 5 cells along an
// axis is promoted to 8 with a debug log line. The per-axis [Extractor]
// records the promoted bit width (3) together with the requested element
// count (5): addressing uses the padded width, bounds checks the real count.
// Widths above [MaxBitsPerAxis] are rejected.
//
// # Shared Exponents
//
// Custom floats with an exponent component are stored as two leaves: a
// mantissa leaf bound to the field and an exponent leaf named "<field>_exp".
// Between [Node.BeginSharedExpPlacement] and [Node.EndSharedExpPlacement],
// every such placement in the container reuses the first exponent leaf, so N
// mantissa fields share one exponent. All fields in a session must use the
// identical exponent type.
//
// # Gradients
//
// [Node.LazyGrad] walks the subtree and places the adjoint of every
// differentiable primal leaf as a sibling of that leaf. Adjoints are
// collected per container before any of them is placed.
//
// # Parent Links
//
// Parent links are undefined while the tree grows because a later pass may
// still restructure it. [Tree.Finalize] is the distinct pass that sets them
// and derives the properties a structural compiler consumes (physical index
// positions, trailing bits, bit offsets of packed members). Inserting a node
// after finalization invalidates those properties until the next Finalize.
//
// # Identity
//
// Nodes live in an arena owned by the tree and are addressed by [NodeID].
// Exponent sharing and gradient pairing depend on node identity, so nodes
// cannot be duplicated: [Node] carries a no-copy marker checked by go vet,
// and every mutating method rejects a receiver that is not the arena's own
// node with an ErrCodeDuplicateNode error.
//
// # Concurrency
//
// Construction is single-threaded; callers must serialize all builder and
// placement calls on one tree. The only state that tolerates concurrent use
// is [Counter], which several trees may share to draw node serials from one
// numbering space.
package snode
