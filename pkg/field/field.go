// Package field declares the global variables a layout tree stores.
//
// A [Field] is the identity a place node backs: a name, an element type, an
// optional ambient value, and for differentiable fields a paired adjoint
// that [snode.Node.LazyGrad] places next to the primal.
package field

import (
	"github.com/matzehuels/sparsetree/pkg/dtype"
	"github.com/matzehuels/sparsetree/pkg/snode"
)

// GradSuffix is appended to a primal's name to name its adjoint.
const GradSuffix = "_grad"

// Field is a declared global variable. It implements [snode.Field].
type Field struct {
	name       string
	dt         dtype.Type
	primal     bool
	adjoint    *Field
	ambient    dtype.Constant
	hasAmbient bool
	leaf       *snode.Node
}

var _ snode.Field = (*Field)(nil)

// Option configures a Field.
type Option func(*Field)

// WithAmbient sets the value read from inactive or out-of-bounds cells.
func WithAmbient(v float64) Option {
	return func(f *Field) {
		f.ambient = dtype.Constant{Type: f.dt, Value: v}
		f.hasAmbient = true
	}
}

// New declares a primal field without an adjoint.
func New(name string, dt dtype.Type, opts ...Option) *Field {
	f := &Field{name: name, dt: dt, primal: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewDifferentiable declares a primal field together with its adjoint,
// named name+GradSuffix. Both share the element type and options.
func NewDifferentiable(name string, dt dtype.Type, opts ...Option) *Field {
	f := New(name, dt, opts...)
	adj := New(name+GradSuffix, dt, opts...)
	adj.primal = false
	adj.adjoint = f
	f.adjoint = adj
	return f
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// DType returns the element type.
func (f *Field) DType() dtype.Type { return f.dt }

// IsPrimal reports whether f is a primal rather than an adjoint.
func (f *Field) IsPrimal() bool { return f.primal }

// Adjoint returns the paired field: the adjoint of a primal, or the primal
// of an adjoint. It returns nil when f is not differentiable.
func (f *Field) Adjoint() snode.Field {
	if f.adjoint == nil {
		return nil
	}
	return f.adjoint
}

// Grad is Adjoint with the concrete type.
func (f *Field) Grad() *Field { return f.adjoint }

// Ambient returns the ambient value, if one was set.
func (f *Field) Ambient() (dtype.Constant, bool) { return f.ambient, f.hasAmbient }

// Leaf returns the backing leaf, or nil before placement.
func (f *Field) Leaf() *snode.Node { return f.leaf }

// SetLeaf records the backing leaf.
func (f *Field) SetLeaf(n *snode.Node) { f.leaf = n }

// Placed reports whether the field has a backing leaf.
func (f *Field) Placed() bool { return f.leaf != nil }

func (f *Field) String() string {
	return f.name + ":" + f.dt.String()
}
