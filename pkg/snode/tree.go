package snode

import (
	"io"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sparsetree/pkg/dtype"
	"github.com/matzehuels/sparsetree/pkg/observability"
)

// Field is a user-declared global variable that a leaf can back. It is
// implemented by the expression layer (see package field).
type Field interface {
	// Name is the identifier used to name the leaf ("x", exponent "x_exp").
	Name() string
	// DType is the declared element type.
	DType() dtype.Type
	// IsPrimal reports whether the field is a primal (not an adjoint).
	IsPrimal() bool
	// Adjoint returns the paired gradient field, or nil.
	Adjoint() Field
	// Ambient returns the value of out-of-bounds or inactive elements.
	Ambient() (dtype.Constant, bool)
	// Leaf returns the backing leaf, or nil before placement.
	Leaf() *Node
	// SetLeaf records the backing leaf.
	SetLeaf(*Node)
}

// Counter hands out node serials. It is safe for concurrent use, so trees
// built on different goroutines can share one numbering space.
type Counter struct {
	next atomic.Int64
}

// NewCounter returns a counter starting at 0.
func NewCounter() *Counter { return &Counter{} }

// Next returns the next serial.
func (c *Counter) Next() int64 { return c.next.Add(1) - 1 }

// Tree owns every node of one layout tree. Nodes are stored in an arena and
// addressed by NodeID; parent, exponent and gradient relations are IDs into
// the same arena. The whole tree is released as a unit.
//
// The zero value is not usable; create trees with [New].
type Tree struct {
	nodes     []*Node
	counter   *Counter
	logger    *log.Logger
	factory   *dtype.Factory
	finalized bool
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger used for debug diagnostics such as size
// promotion. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithCounter shares a serial counter between trees.
func WithCounter(c *Counter) Option {
	return func(t *Tree) {
		if c != nil {
			t.counter = c
		}
	}
}

// WithTypeFactory sets the factory that produces the physical integer types
// of bit-level containers. Defaults to dtype.Default().
func WithTypeFactory(f *dtype.Factory) Option {
	return func(t *Tree) {
		if f != nil {
			t.factory = f
		}
	}
}

// New creates a tree holding only its root node.
func New(opts ...Option) *Tree {
	t := &Tree{
		counter: NewCounter(),
		logger:  log.Default(),
		factory: dtype.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	root := t.newNode(0, TypeRoot)
	root.isPathAllDense = true
	return t
}

func (t *Tree) newNode(depth int, typ NodeType) *Node {
	n := &Node{
		tree:     t,
		id:       NodeID(len(t.nodes)),
		serial:   t.counter.Next(),
		depth:    depth,
		typ:      typ,
		parent:   NoNode,
		exponent: NoNode,
		n:        1,
		dt:       dtype.Gen,

		sharedExp: NoNode,
	}
	for i := range n.extractors {
		n.extractors[i].NumElements = 1
	}
	t.nodes = append(t.nodes, n)
	t.finalized = false
	observability.Tree().OnNodeCreated(typ.String(), depth)
	return n
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.nodes[0] }

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) (*Node, bool) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[id], true
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Finalized reports whether parent links and derived properties are
// current. Any insertion after Finalize resets it to false.
func (t *Tree) Finalized() bool { return t.finalized }

// Logger returns the tree's logger.
func (t *Tree) Logger() *log.Logger { return t.logger }

// Walk visits the tree depth first in child order, parents before children.
// Returning false from fn skips the node's subtree.
func (t *Tree) Walk(fn func(*Node) bool) {
	t.walk(t.Root(), fn)
}

func (t *Tree) walk(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		t.walk(t.nodes[c], fn)
	}
}

// Dump writes the whole tree to w, see [Node.Dump].
func (t *Tree) Dump(w io.Writer) error {
	return t.Root().Dump(w)
}
