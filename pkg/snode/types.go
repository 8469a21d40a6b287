package snode

import (
	"github.com/matzehuels/sparsetree/pkg/errors"
)

// NodeType is the kind of a tree node.
type NodeType uint8

const (
	TypeRoot NodeType = iota
	TypeDense
	TypePointer
	TypeHash
	TypeBitmasked
	TypeDynamic
	TypePlace
	TypeBitStruct
	TypeBitArray
	TypeUndefined
)

var nodeTypeNames = [...]string{
	TypeRoot:      "root",
	TypeDense:     "dense",
	TypePointer:   "pointer",
	TypeHash:      "hash",
	TypeBitmasked: "bitmasked",
	TypeDynamic:   "dynamic",
	TypePlace:     "place",
	TypeBitStruct: "bit_struct",
	TypeBitArray:  "bit_array",
	TypeUndefined: "undefined",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "undefined"
}

// NeedsActivation reports whether cells of this container type may be
// absent at run time and so require activation tracking.
func (t NodeType) NeedsActivation() bool {
	switch t {
	case TypePointer, TypeHash, TypeBitmasked, TypeDynamic:
		return true
	default:
		return false
	}
}

// ParseNodeType returns the node type named s ("dense", "bit_struct", ...).
func ParseNodeType(s string) (NodeType, error) {
	for i, name := range nodeTypeNames {
		if name == s {
			return NodeType(i), nil
		}
	}
	return TypeUndefined, errors.New(errors.ErrCodeInvalidNodeType, "unknown node type %q", s)
}

// Axis is a physical index position, in [0, MaxNumIndices).
type Axis int

// NodeID addresses a node in its tree's arena.
type NodeID int32

// NoNode is the NodeID of an absent relationship (root parent, no exponent).
const NoNode NodeID = -1

// Extractor is the per-axis layout record of a node.
type Extractor struct {
	// Active is true when the node partitions this axis.
	Active bool
	// NumBits is the promoted (power-of-two) width contributed by the node.
	NumBits int
	// NumElements is the requested, unpromoted element count. 1 when inactive.
	NumElements int

	// Set by Tree.Finalize.

	// NumElementsFromRoot is the product of NumElements along the root path.
	NumElementsFromRoot int
	// TrailingBits is the width contributed by all descendants on this axis.
	TrailingBits int
	// AccOffset is the bit offset of this axis inside the node's cell index.
	AccOffset int
}

func (e *Extractor) activate(numBits int) {
	e.Active = true
	e.NumBits = numBits
}
