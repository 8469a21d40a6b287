package snode

import (
	"fmt"

	"github.com/matzehuels/sparsetree/pkg/dtype"
	"github.com/matzehuels/sparsetree/pkg/errors"
	"github.com/matzehuels/sparsetree/pkg/observability"
)

// noCopy makes go vet's copylocks check flag any copy of a Node value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Node is one position in the layout tree. Nodes are created only through
// the builder methods and are always handled by pointer.
type Node struct {
	_ noCopy

	tree   *Tree
	id     NodeID
	serial int64
	depth  int
	typ    NodeType
	name   string

	children []NodeID
	parent   NodeID // valid only while tree.finalized

	extractors [MaxNumIndices]Extractor
	n          int // product of promoted extents
	chunkSize  int

	dt           dtype.Type
	physicalType dtype.Type
	field        Field
	indexOffsets []int

	isPathAllDense     bool
	isBitLevel         bool
	hasAmbient         bool
	ownsSharedExponent bool
	ambient            dtype.Constant

	exponent      NodeID
	exponentUsers []NodeID

	placingSharedExp bool
	sharedExp        NodeID
	sharedExpType    *dtype.CustomInt

	// Set by Tree.Finalize.
	physicalIndexPosition []Axis
	totalNumBits          int
	bitOffset             int
	bitsUsed              int
}

// checkOwned rejects receivers that are not the arena's own node, which is
// what a copied Node value looks like.
func (n *Node) checkOwned() error {
	if n == nil || n.tree == nil || int(n.id) >= len(n.tree.nodes) || n.tree.nodes[n.id] != n {
		return errors.New(errors.ErrCodeDuplicateNode, "node is not owned by a tree; nodes must not be copied")
	}
	return nil
}

// InsertChildren creates a child of the given type at depth+1, appends it to
// the child list and returns it. The child is not a root; place nodes
// cannot have children. Packed containers need a physical type and are
// created with BitStruct or BitArray.
func (n *Node) InsertChildren(t NodeType) (*Node, error) {
	if err := rejectPacked(t); err != nil {
		return nil, err
	}
	return n.insertChild(t)
}

func rejectPacked(t NodeType) error {
	if t == TypeBitStruct || t == TypeBitArray {
		return errors.New(errors.ErrCodeInvalidNodeType, "%s containers are created with BitStruct or BitArray", t)
	}
	return nil
}

func (n *Node) insertChild(t NodeType) (*Node, error) {
	if err := n.checkOwned(); err != nil {
		return nil, err
	}
	if t == TypeRoot {
		return nil, errors.New(errors.ErrCodeInvalidNodeType, "%s: a root node cannot be inserted as a child", n.Name())
	}
	if n.typ == TypePlace {
		return nil, errors.New(errors.ErrCodeInvalidNodeType, "%s: place nodes cannot have children", n.Name())
	}

	child := n.tree.newNode(n.depth+1, t)
	child.isPathAllDense = n.isPathAllDense && !t.NeedsActivation()
	child.isBitLevel = n.isBitLevel || n.typ == TypeBitStruct || n.typ == TypeBitArray
	n.children = append(n.children, child.id)
	return child, nil
}

// CreateNode creates a container partitioning axes with the given extents.
// sizes holds one extent per axis, or a single extent applied to every axis.
// Extents that are not powers of two are promoted to the next power of two.
// Hash containers must be children of the root. Packed containers are
// created with BitStruct or BitArray.
func (n *Node) CreateNode(axes []Axis, sizes []int, t NodeType) (*Node, error) {
	if err := rejectPacked(t); err != nil {
		return nil, err
	}
	return n.createNode(axes, sizes, t)
}

func (n *Node) createNode(axes []Axis, sizes []int, t NodeType) (*Node, error) {
	if err := n.checkOwned(); err != nil {
		return nil, err
	}
	if t == TypeHash && n.depth != 0 {
		return nil, errors.New(errors.ErrCodeHashNotAtRoot,
			"%s: hash containers must be children of the root (zero-initialization assumes root placement), depth is %d",
			n.Name(), n.depth)
	}
	plan, err := planAxes(axes, sizes)
	if err != nil {
		return nil, err
	}

	child, err := n.insertChild(t)
	if err != nil {
		return nil, err
	}
	child.n = 1
	for _, a := range plan {
		if a.promoted != a.requested {
			n.tree.logger.Debug("non-power-of-two node size promoted",
				"node", child.Name(), "axis", a.axis, "size", a.requested, "promoted", a.promoted)
			observability.Tree().OnSizePromoted(a.requested, a.promoted)
		}
		child.n *= a.promoted
		child.extractors[a.axis].activate(a.bits)
		child.extractors[a.axis].NumElements = a.requested
	}
	return child, nil
}

// Dense creates a dense container.
func (n *Node) Dense(axes []Axis, sizes []int) (*Node, error) {
	return n.CreateNode(axes, sizes, TypeDense)
}

// Pointer creates a pointer container whose cells are allocated on demand.
func (n *Node) Pointer(axes []Axis, sizes []int) (*Node, error) {
	return n.CreateNode(axes, sizes, TypePointer)
}

// Hash creates a hashed container. n must be the root.
func (n *Node) Hash(axes []Axis, sizes []int) (*Node, error) {
	return n.CreateNode(axes, sizes, TypeHash)
}

// Bitmasked creates a dense container with a per-cell activation bit.
func (n *Node) Bitmasked(axes []Axis, sizes []int) (*Node, error) {
	return n.CreateNode(axes, sizes, TypeBitmasked)
}

// Dynamic creates a variable-length container along axis with capacity
// size, growing in increments of chunkSize cells.
func (n *Node) Dynamic(axis Axis, size, chunkSize int) (*Node, error) {
	if chunkSize <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidSize, "%s: chunk size %d must be positive", n.Name(), chunkSize)
	}
	child, err := n.CreateNode([]Axis{axis}, []int{size}, TypeDynamic)
	if err != nil {
		return nil, err
	}
	child.chunkSize = chunkSize
	return child, nil
}

// BitStruct creates a zero-axis container whose children are packed into
// one unsigned integer of numBits bits.
func (n *Node) BitStruct(numBits int) (*Node, error) {
	pt, err := n.physicalInt(numBits)
	if err != nil {
		return nil, err
	}
	child, err := n.createNode(nil, nil, TypeBitStruct)
	if err != nil {
		return nil, err
	}
	child.physicalType = pt
	return child, nil
}

// BitArray creates a fixed-shape container whose cells are packed into one
// unsigned integer of bits bits.
func (n *Node) BitArray(axes []Axis, sizes []int, bits int) (*Node, error) {
	pt, err := n.physicalInt(bits)
	if err != nil {
		return nil, err
	}
	child, err := n.createNode(axes, sizes, TypeBitArray)
	if err != nil {
		return nil, err
	}
	child.physicalType = pt
	return child, nil
}

func (n *Node) physicalInt(bits int) (dtype.Type, error) {
	if err := n.checkOwned(); err != nil {
		return nil, err
	}
	pt, err := n.tree.factory.PrimitiveIntType(bits, false)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSize, err, "%s: physical storage", n.Name())
	}
	return pt, nil
}

// ID returns the node's arena index.
func (n *Node) ID() NodeID { return n.id }

// Serial returns the diagnostic number drawn from the tree's counter.
func (n *Node) Serial() int64 { return n.serial }

// Tree returns the owning tree.
func (n *Node) Tree() *Tree { return n.tree }

// Depth returns the distance from the root.
func (n *Node) Depth() int { return n.depth }

// Type returns the node type.
func (n *Node) Type() NodeType { return n.typ }

// NodeTypeName returns the generated name "S<serial>".
func (n *Node) NodeTypeName() string { return fmt.Sprintf("S%d", n.serial) }

// Name returns the field-derived name of a leaf, or the generated name.
func (n *Node) Name() string {
	if n.name != "" {
		return n.name
	}
	return n.NodeTypeName()
}

// Children returns the children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	for i, c := range n.children {
		out[i] = n.tree.nodes[c]
	}
	return out
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int { return len(n.children) }

// Child returns the i-th child.
func (n *Node) Child(i int) *Node { return n.tree.nodes[n.children[i]] }

// Extractor returns the layout record of axis.
func (n *Node) Extractor(axis Axis) Extractor { return n.extractors[axis] }

// NumCells returns the product of the promoted extents (1 for leaves).
func (n *Node) NumCells() int { return n.n }

// ChunkSize returns the growth increment of a dynamic container.
func (n *Node) ChunkSize() int { return n.chunkSize }

// DType returns the element type of a leaf (dtype.Gen elsewhere).
func (n *Node) DType() dtype.Type { return n.dt }

// PhysicalType returns the packed storage type of bit_struct and bit_array
// containers, or nil.
func (n *Node) PhysicalType() dtype.Type { return n.physicalType }

// Field returns the field bound to a leaf, or nil.
func (n *Node) Field() Field { return n.field }

// IndexOffsets returns the per-axis index offsets of a leaf.
func (n *Node) IndexOffsets() []int { return n.indexOffsets }

// IsPathAllDense reports whether no node on the root path needs activation.
func (n *Node) IsPathAllDense() bool { return n.isPathAllDense }

// IsBitLevel reports whether the node lives inside a bit-level container.
func (n *Node) IsBitLevel() bool { return n.isBitLevel }

// HasAmbient reports whether the leaf carries an ambient value.
func (n *Node) HasAmbient() bool { return n.hasAmbient }

// Ambient returns the leaf's ambient value.
func (n *Node) Ambient() (dtype.Constant, bool) { return n.ambient, n.hasAmbient }

// OwnsSharedExponent reports whether the leaf was placed inside a
// shared-exponent session.
func (n *Node) OwnsSharedExponent() bool { return n.ownsSharedExponent }

// ExponentNode returns the exponent leaf of a custom-float leaf, or nil.
func (n *Node) ExponentNode() *Node {
	if n.exponent == NoNode {
		return nil
	}
	return n.tree.nodes[n.exponent]
}

// ExponentUsers returns the leaves using this exponent leaf, in placement
// order.
func (n *Node) ExponentUsers() []*Node {
	out := make([]*Node, len(n.exponentUsers))
	for i, u := range n.exponentUsers {
		out[i] = n.tree.nodes[u]
	}
	return out
}
