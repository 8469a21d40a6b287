package snode

import (
	"github.com/matzehuels/sparsetree/pkg/dtype"
	"github.com/matzehuels/sparsetree/pkg/errors"
)

// LazyGrad places the adjoint of every differentiable primal leaf in the
// subtree as a sibling of that leaf. Children are processed first; within a
// container all pending adjoints are collected before any is placed, so the
// child list is never extended while it is being scanned.
func (n *Node) LazyGrad() error {
	if err := n.checkOwned(); err != nil {
		return err
	}
	if n.typ == TypePlace {
		return nil
	}

	for _, c := range n.Children() {
		if err := c.LazyGrad(); err != nil {
			return err
		}
	}

	var pending []Field
	for _, c := range n.Children() {
		if adj := c.pendingAdjoint(); adj != nil {
			pending = append(pending, adj)
		}
	}
	for _, adj := range pending {
		if _, err := n.Place(adj, nil); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "%s: placing gradient %s", n.Name(), adj.Name())
		}
	}
	if len(pending) > 0 {
		n.tree.logger.Debug("gradients placed", "node", n.Name(), "count", len(pending))
	}
	return nil
}

// pendingAdjoint returns the adjoint field still waiting for a leaf, or nil
// when n is not a differentiable primal leaf.
func (n *Node) pendingAdjoint() Field {
	if n.typ != TypePlace || !n.IsPrimal() || !dtype.NeedsGrad(n.dt) {
		return nil
	}
	adj := n.field.Adjoint()
	if adj == nil || adj.Leaf() != nil {
		return nil
	}
	return adj
}

// IsPrimal reports whether the leaf is bound to a primal field.
func (n *Node) IsPrimal() bool {
	return n.field != nil && n.field.IsPrimal()
}

// HasGrad reports whether the leaf is primal and its adjoint has been placed.
func (n *Node) HasGrad() bool {
	if !n.IsPrimal() {
		return false
	}
	adj := n.field.Adjoint()
	return adj != nil && adj.Leaf() != nil
}

// Grad returns the leaf backing the adjoint of this primal leaf.
func (n *Node) Grad() (*Node, error) {
	if !n.HasGrad() {
		return nil, errors.New(errors.ErrCodeNoGradient, "%s has no gradient leaf", n.Name())
	}
	return n.field.Adjoint().Leaf(), nil
}
