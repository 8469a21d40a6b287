package snode

import (
	"slices"

	"github.com/matzehuels/sparsetree/pkg/dtype"
	"github.com/matzehuels/sparsetree/pkg/errors"
	"github.com/matzehuels/sparsetree/pkg/observability"
)

// Place binds f to a new leaf under n and returns the leaf.
//
// Placing on the root goes through an implicit zero-axis dense wrapper. If
// f is a custom float with an exponent, an exponent leaf named
// "<field>_exp" is placed first, or the open shared-exponent session's
// exponent leaf is reused. Non-empty offsets are recorded on the leaf.
//
// Place fails if f already has a backing leaf, or if a session's exponent
// type differs from f's in width or signedness.
func (n *Node) Place(f Field, offsets []int) (*Node, error) {
	if err := n.checkOwned(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New(errors.ErrCodeInternal, "%s: nil field", n.Name())
	}
	if f.Leaf() != nil {
		return nil, errors.New(errors.ErrCodeAlreadyPlaced, "field %s has already been placed", f.Name())
	}
	if n.typ == TypeRoot {
		wrapper, err := n.Dense(nil, nil)
		if err != nil {
			return nil, err
		}
		return wrapper.Place(f, offsets)
	}
	if n.typ == TypePlace {
		return nil, errors.New(errors.ErrCodeInvalidNodeType, "%s: cannot place into a place node", n.Name())
	}

	exp, err := n.exponentFor(f)
	if err != nil {
		return nil, err
	}

	leaf, err := n.InsertChildren(TypePlace)
	if err != nil {
		return nil, err
	}
	f.SetLeaf(leaf)
	leaf.name = f.Name()
	leaf.field = f
	leaf.dt = f.DType()
	if v, ok := f.Ambient(); ok {
		leaf.hasAmbient = true
		leaf.ambient = v
	}
	if n.placingSharedExp {
		leaf.ownsSharedExponent = true
	}
	if exp != nil {
		leaf.exponent = exp.id
		exp.exponentUsers = append(exp.exponentUsers, leaf.id)
	}
	if len(offsets) > 0 {
		if err := leaf.SetIndexOffsets(offsets); err != nil {
			return nil, err
		}
	}

	observability.Tree().OnFieldPlaced(f.Name(), exp != nil, n.placingSharedExp)
	return leaf, nil
}

// exponentFor returns the exponent leaf f must reference, creating it when
// no session exponent can be reused. It returns nil for types without an
// exponent component.
func (n *Node) exponentFor(f Field) (*Node, error) {
	expType := dtype.ExponentOf(f.DType())
	if expType == nil {
		return nil, nil
	}

	if n.placingSharedExp && n.sharedExp != NoNode {
		if !sameCustomInt(n.sharedExpType, expType) {
			return nil, errors.New(errors.ErrCodeExponentTypeMismatch,
				"field %s: custom floats sharing an exponent must have the same exponent type (%s != %s)",
				f.Name(), expType, n.sharedExpType)
		}
		return n.tree.nodes[n.sharedExp], nil
	}

	exp, err := n.InsertChildren(TypePlace)
	if err != nil {
		return nil, err
	}
	exp.dt = expType
	exp.name = f.Name() + "_exp"
	if n.placingSharedExp {
		n.sharedExp = exp.id
		n.sharedExpType = expType
	}
	return exp, nil
}

// sameCustomInt compares by layout, so types from different factories match.
func sameCustomInt(a, b *dtype.CustomInt) bool {
	return a.Bits() == b.Bits() && a.Signed() == b.Signed()
}

// SetIndexOffsets records per-axis index offsets on a leaf. Offsets can be
// set once, must be non-empty and only apply to place nodes.
func (n *Node) SetIndexOffsets(offsets []int) error {
	if err := n.checkOwned(); err != nil {
		return err
	}
	if n.typ != TypePlace {
		return errors.New(errors.ErrCodeNotALeaf, "%s: index offsets apply to place nodes, not %s", n.Name(), n.typ)
	}
	if len(offsets) == 0 {
		return errors.New(errors.ErrCodeInvalidSize, "%s: empty index offsets", n.Name())
	}
	if len(n.indexOffsets) != 0 {
		return errors.New(errors.ErrCodeOffsetsAlreadySet, "%s: index offsets already set", n.Name())
	}
	n.indexOffsets = slices.Clone(offsets)
	return nil
}

// BeginSharedExpPlacement opens a shared-exponent session on the container.
// Until EndSharedExpPlacement, custom-float placements into n reuse the
// first exponent leaf created in the session.
func (n *Node) BeginSharedExpPlacement() error {
	if err := n.checkOwned(); err != nil {
		return err
	}
	if n.typ == TypeRoot || n.typ == TypePlace {
		return errors.New(errors.ErrCodeSessionState, "%s: shared exponents need a container, not %s", n.Name(), n.typ)
	}
	if n.placingSharedExp {
		return errors.New(errors.ErrCodeSessionState, "%s: shared exponent placement already in progress", n.Name())
	}
	n.placingSharedExp = true
	n.sharedExp = NoNode
	n.sharedExpType = nil
	n.tree.logger.Debug("shared exponent placement started", "node", n.Name())
	return nil
}

// EndSharedExpPlacement closes the session and forgets its exponent leaf.
// It fails when no session is open or when the session placed no exponent.
func (n *Node) EndSharedExpPlacement() error {
	if err := n.checkOwned(); err != nil {
		return err
	}
	if !n.placingSharedExp {
		return errors.New(errors.ErrCodeSessionState, "%s: no shared exponent placement in progress", n.Name())
	}
	if n.sharedExp == NoNode {
		return errors.New(errors.ErrCodeSessionState, "%s: shared exponent session placed no exponent", n.Name())
	}
	n.tree.logger.Debug("shared exponent placement finished",
		"node", n.Name(), "exponent", n.tree.nodes[n.sharedExp].Name(),
		"users", len(n.tree.nodes[n.sharedExp].exponentUsers))
	n.placingSharedExp = false
	n.sharedExp = NoNode
	n.sharedExpType = nil
	return nil
}

// PlacingSharedExp reports whether a shared-exponent session is open on n.
func (n *Node) PlacingSharedExp() bool { return n.placingSharedExp }
