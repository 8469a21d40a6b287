package snode

import (
	"time"

	"github.com/matzehuels/sparsetree/pkg/errors"
	"github.com/matzehuels/sparsetree/pkg/observability"
)

// Finalize freezes the current shape of the tree for downstream passes. It
// sets parent links and derives the per-node layout properties: physical
// index positions, element counts from the root, per-axis bit offsets and
// totals, trailing bits, and the bit offsets of packed members.
//
// Finalize may be called again after further growth; every derived value is
// recomputed. On error the tree stays un-finalized.
func (t *Tree) Finalize() error {
	start := time.Now()
	err := t.finalize()
	t.finalized = err == nil
	observability.Tree().OnFinalized(len(t.nodes), time.Since(start), err)
	if err != nil {
		return err
	}
	t.logger.Debug("layout tree finalized", "nodes", len(t.nodes), "duration", time.Since(start))
	return nil
}

func (t *Tree) finalize() error {
	root := t.Root()
	root.parent = NoNode
	if err := t.inferProperties(root, nil, [MaxNumIndices]int{}); err != nil {
		return err
	}
	if err := t.computeTrailingBits(root); err != nil {
		return err
	}

	var err error
	t.Walk(func(n *Node) bool {
		if err != nil {
			return false
		}
		switch n.typ {
		case TypeBitStruct:
			err = n.layoutBitStruct()
		case TypeBitArray:
			err = n.layoutBitArray()
		}
		return err == nil
	})
	return err
}

// inferProperties runs top-down: a node's values depend only on its own
// extractors and its parent's already-computed values. fromRoot holds the
// per-axis widths of the ancestors.
func (t *Tree) inferProperties(n, parent *Node, fromRoot [MaxNumIndices]int) error {
	n.physicalIndexPosition = n.physicalIndexPosition[:0]
	if parent != nil {
		n.parent = parent.id
		n.physicalIndexPosition = append(n.physicalIndexPosition, parent.physicalIndexPosition...)
	}
	for ax := range MaxNumIndices {
		e := &n.extractors[ax]
		if e.Active && !containsAxis(n.physicalIndexPosition, Axis(ax)) {
			n.physicalIndexPosition = append(n.physicalIndexPosition, Axis(ax))
		}
		fromRoot[ax] += e.NumBits
		if fromRoot[ax] > MaxBitsFromRoot {
			return errors.New(errors.ErrCodeBitWidthOverflow,
				"%s: axis %d needs %d bits from the root, limit is %d", n.Name(), ax, fromRoot[ax], MaxBitsFromRoot)
		}
		e.NumElementsFromRoot = e.NumElements
		if parent != nil {
			e.NumElementsFromRoot *= parent.extractors[ax].NumElementsFromRoot
		}
	}

	acc := 0
	for ax := MaxNumIndices - 1; ax >= 0; ax-- {
		n.extractors[ax].AccOffset = acc
		acc += n.extractors[ax].NumBits
	}
	n.totalNumBits = acc

	for _, c := range n.children {
		if err := t.inferProperties(t.nodes[c], n, fromRoot); err != nil {
			return err
		}
	}
	return nil
}

func containsAxis(axes []Axis, ax Axis) bool {
	for _, a := range axes {
		if a == ax {
			return true
		}
	}
	return false
}

// computeTrailingBits runs bottom-up. On each axis, every child that uses
// the axis must reserve the same number of bits below n; children that do
// not use it are ignored. The root is exempt because its children are
// independent trees.
func (t *Tree) computeTrailingBits(n *Node) error {
	for _, c := range n.children {
		if err := t.computeTrailingBits(t.nodes[c]); err != nil {
			return err
		}
	}

	for ax := range MaxNumIndices {
		trailing := 0
		for _, id := range n.children {
			c := t.nodes[id]
			bits := c.extractors[ax].NumBits + c.extractors[ax].TrailingBits
			if bits == 0 {
				continue
			}
			if trailing == 0 {
				trailing = bits
				continue
			}
			if bits != trailing && n.typ != TypeRoot {
				return errors.New(errors.ErrCodeInconsistentLayout,
					"%s: children reserve %d and %d bits on axis %d", n.Name(), trailing, bits, ax)
			}
		}
		if n.typ == TypeRoot {
			trailing = 0
		}
		n.extractors[ax].TrailingBits = trailing
	}
	return nil
}

// layoutBitStruct assigns each member its offset inside the physical word,
// in placement order.
func (n *Node) layoutBitStruct() error {
	offset := 0
	for _, c := range n.Children() {
		if c.typ != TypePlace {
			return errors.New(errors.ErrCodeInvalidNodeType, "%s: bit_struct members must be place nodes, got %s", n.Name(), c.typ)
		}
		c.bitOffset = offset
		offset += c.dt.BitWidth()
	}
	n.bitsUsed = offset
	if limit := n.physicalType.BitWidth(); offset > limit {
		return errors.New(errors.ErrCodeBitLevelOverflow,
			"%s: members need %d bits, physical type %s holds %d", n.Name(), offset, n.physicalType, limit)
	}
	return nil
}

// layoutBitArray checks that every cell of the array fits the physical word.
func (n *Node) layoutBitArray() error {
	width := 0
	for _, c := range n.Children() {
		if c.typ != TypePlace {
			return errors.New(errors.ErrCodeInvalidNodeType, "%s: bit_array members must be place nodes, got %s", n.Name(), c.typ)
		}
		c.bitOffset = width
		width += c.dt.BitWidth()
	}
	n.bitsUsed = width * n.n
	if limit := n.physicalType.BitWidth(); n.bitsUsed > limit {
		return errors.New(errors.ErrCodeBitLevelOverflow,
			"%s: %d cells of %d bits need %d bits, physical type %s holds %d",
			n.Name(), n.n, width, n.bitsUsed, n.physicalType, limit)
	}
	return nil
}
