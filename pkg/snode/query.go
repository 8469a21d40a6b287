package snode

import (
	"slices"

	"github.com/matzehuels/sparsetree/pkg/errors"
)

// NeedActivation reports whether the node's cells may be absent at run time.
func (n *Node) NeedActivation() bool { return n.typ.NeedsActivation() }

// IsPlace reports whether the node is a leaf bound to a field.
func (n *Node) IsPlace() bool { return n.typ == TypePlace }

// IsScalar reports whether the node is a leaf with no active index along
// its root path. Valid after Finalize.
func (n *Node) IsScalar() bool { return n.IsPlace() && len(n.physicalIndexPosition) == 0 }

func (n *Node) requireFinalized() error {
	if err := n.checkOwned(); err != nil {
		return err
	}
	if !n.tree.finalized {
		return errors.New(errors.ErrCodeNotFinalized, "%s: tree must be finalized before walking parent links", n.Name())
	}
	return nil
}

// Parent returns the parent node, or nil for the root. It fails until the
// tree is finalized.
func (n *Node) Parent() (*Node, error) {
	if err := n.requireFinalized(); err != nil {
		return nil, err
	}
	if n.parent == NoNode {
		return nil, nil
	}
	return n.tree.nodes[n.parent], nil
}

// LeastSparseAncestor returns the nearest node on the path to the root,
// n included, whose cells need activation. It returns nil when the whole
// path is statically dense. Walking up requires a finalized tree.
func (n *Node) LeastSparseAncestor() (*Node, error) {
	if n.isPathAllDense {
		return nil, nil
	}
	if err := n.requireFinalized(); err != nil {
		return nil, err
	}
	cur := n
	for !cur.NeedActivation() {
		if cur.parent == NoNode {
			return nil, errors.New(errors.ErrCodeInternal, "%s: sparse path without a sparse ancestor", n.Name())
		}
		cur = n.tree.nodes[cur.parent]
	}
	return cur, nil
}

// NumBits returns the bit width of axis summed over n and all its
// ancestors.
func (n *Node) NumBits(axis Axis) (int, error) {
	if axis < 0 || axis >= MaxNumIndices {
		return 0, errors.New(errors.ErrCodeInvalidAxis, "axis %d out of range [0, %d)", axis, MaxNumIndices)
	}
	if err := n.requireFinalized(); err != nil {
		return 0, err
	}
	total := 0
	for cur := n; ; cur = n.tree.nodes[cur.parent] {
		total += cur.extractors[axis].NumBits
		if cur.parent == NoNode {
			return total, nil
		}
	}
}

// ShapeAlongAxis returns the padded physical extent of the i-th active
// index: the element count accumulated from the root times two to the
// bits reserved below n on that axis.
func (n *Node) ShapeAlongAxis(i int) (int, error) {
	if err := n.requireFinalized(); err != nil {
		return 0, err
	}
	if i < 0 || i >= len(n.physicalIndexPosition) {
		return 0, errors.New(errors.ErrCodeInvalidAxis, "%s: index %d out of range, node has %d active indices",
			n.Name(), i, len(n.physicalIndexPosition))
	}
	e := n.extractors[n.physicalIndexPosition[i]]
	return e.NumElementsFromRoot << e.TrailingBits, nil
}

// NumActiveIndices returns the number of axes active along the root path.
// Valid after Finalize.
func (n *Node) NumActiveIndices() int { return len(n.physicalIndexPosition) }

// PhysicalIndexPosition returns the active axes along the root path: the
// parent's, followed by the node's own new axes in ascending order.
func (n *Node) PhysicalIndexPosition() []Axis { return slices.Clone(n.physicalIndexPosition) }

// TotalNumBits returns the sum of the node's own extractor widths.
func (n *Node) TotalNumBits() int { return n.totalNumBits }

// BitOffset returns a packed member's offset inside its bit_struct or
// bit_array word.
func (n *Node) BitOffset() int { return n.bitOffset }

// BitsUsed returns how many bits of the physical word a bit_struct or
// bit_array occupies.
func (n *Node) BitsUsed() int { return n.bitsUsed }
