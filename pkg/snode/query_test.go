package snode_test

import (
	"testing"

	"github.com/matzehuels/sparsetree/pkg/dtype"
	"github.com/matzehuels/sparsetree/pkg/errors"
	"github.com/matzehuels/sparsetree/pkg/field"
	"github.com/matzehuels/sparsetree/pkg/snode"
)

func finalize(t *testing.T, tree *snode.Tree) {
	t.Helper()
	if err := tree.Finalize(); err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}
}

func TestLeastSparseAncestor(t *testing.T) {
	must := mustNode(t)
	tree := snode.New()

	dense := must(tree.Root().Dense(axes(0), sizes(4)))
	x := must(dense.Place(field.New("x", dtype.F32), nil))

	ptr := must(tree.Root().Pointer(axes(0), sizes(4)))
	a := must(ptr.Dense(axes(1), sizes(4)))
	b := must(a.Dense(axes(2), sizes(4)))
	y := must(b.Place(field.New("y", dtype.F32), nil))

	got, err := x.LeastSparseAncestor()
	if err != nil || got != nil {
		t.Errorf("all-dense LeastSparseAncestor() = %v, %v, want nil", got, err)
	}

	if _, err := y.LeastSparseAncestor(); !errors.Is(err, errors.ErrCodeNotFinalized) {
		t.Errorf("LeastSparseAncestor() before Finalize error = %v", err)
	}

	finalize(t, tree)
	for _, n := range []*snode.Node{ptr, a, b, y} {
		got, err := n.LeastSparseAncestor()
		if err != nil {
			t.Fatal(err)
		}
		if got != ptr {
			t.Errorf("%s.LeastSparseAncestor() = %v, want %s", n.Name(), got, ptr.Name())
		}
	}
}

func TestNumBits(t *testing.T) {
	must := mustNode(t)
	tree := snode.New()
	n := tree.Root()
	for range 3 {
		n = must(n.Dense(axes(0), sizes(4)))
	}

	if _, err := n.NumBits(0); !errors.Is(err, errors.ErrCodeNotFinalized) {
		t.Errorf("NumBits() before Finalize error = %v", err)
	}
	finalize(t, tree)

	got, err := n.NumBits(0)
	if err != nil || got != 6 {
		t.Errorf("NumBits(0) = %d, %v, want 6", got, err)
	}
	if got, _ := n.NumBits(1); got != 0 {
		t.Errorf("NumBits(1) = %d, want 0", got)
	}
	if _, err := n.NumBits(snode.MaxNumIndices); !errors.Is(err, errors.ErrCodeInvalidAxis) {
		t.Errorf("NumBits(out of range) error = %v", err)
	}
}

func TestFinalizeParents(t *testing.T) {
	must := mustNode(t)
	tree := snode.New()
	a := must(tree.Root().Dense(axes(0), sizes(4)))
	b := must(a.Bitmasked(axes(1), sizes(4)))

	if _, err := b.Parent(); !errors.Is(err, errors.ErrCodeNotFinalized) {
		t.Errorf("Parent() before Finalize error = %v", err)
	}
	finalize(t, tree)
	if !tree.Finalized() {
		t.Fatal("Finalized() = false")
	}
	if p, err := b.Parent(); err != nil || p != a {
		t.Errorf("Parent() = %v, %v, want %s", p, err, a.Name())
	}
	if p, err := tree.Root().Parent(); err != nil || p != nil {
		t.Errorf("root Parent() = %v, %v", p, err)
	}

	must(b.Place(field.New("x", dtype.F32), nil))
	if tree.Finalized() {
		t.Error("insertion after Finalize left the tree finalized")
	}
	if _, err := b.Parent(); !errors.Is(err, errors.ErrCodeNotFinalized) {
		t.Errorf("Parent() after growth error = %v", err)
	}
}

func TestFinalizeIndexLayout(t *testing.T) {
	must := mustNode(t)
	tree := snode.New()
	a := must(tree.Root().Dense(axes(0), sizes(3)))
	b := must(a.Dense(axes(1, 0), sizes(2, 8)))
	x := must(b.Place(field.New("x", dtype.F32), nil))
	finalize(t, tree)

	if got := x.PhysicalIndexPosition(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("PhysicalIndexPosition() = %v, want [0 1]", got)
	}
	if x.NumActiveIndices() != 2 || a.NumActiveIndices() != 1 {
		t.Errorf("NumActiveIndices: x=%d a=%d", x.NumActiveIndices(), a.NumActiveIndices())
	}
	if x.IsScalar() {
		t.Error("x reports IsScalar")
	}

	tests := []struct {
		name string
		node *snode.Node
		i    int
		want int
	}{
		{"leaf axis 0", x, 0, 24},
		{"leaf axis 1", x, 1, 2},
		{"outer block", a, 0, 3 << 3},
		{"inner axis 0", b, 0, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.node.ShapeAlongAxis(tt.i)
			if err != nil || got != tt.want {
				t.Errorf("ShapeAlongAxis(%d) = %d, %v, want %d", tt.i, got, err, tt.want)
			}
		})
	}
	if _, err := a.ShapeAlongAxis(1); !errors.Is(err, errors.ErrCodeInvalidAxis) {
		t.Errorf("ShapeAlongAxis(inactive) error = %v", err)
	}

	if e := a.Extractor(0); e.TrailingBits != 3 || e.NumElementsFromRoot != 3 {
		t.Errorf("a.Extractor(0) = %+v", e)
	}
	if b.TotalNumBits() != 4 {
		t.Errorf("TotalNumBits() = %d, want 4", b.TotalNumBits())
	}
	if b.Extractor(0).AccOffset != 1 || b.Extractor(1).AccOffset != 0 {
		t.Errorf("AccOffset: axis0=%d axis1=%d", b.Extractor(0).AccOffset, b.Extractor(1).AccOffset)
	}
}

func TestFinalizeScalar(t *testing.T) {
	must := mustNode(t)
	tree := snode.New()
	s := must(tree.Root().Place(field.New("s", dtype.F32), nil))
	finalize(t, tree)
	if !s.IsScalar() {
		t.Error("root-placed leaf is not scalar")
	}
}

func TestFinalizeInconsistentTrailingBits(t *testing.T) {
	must := mustNode(t)
	tree := snode.New()
	// Independent trees under the root may differ.
	must(tree.Root().Dense(axes(0), sizes(4)))
	must(tree.Root().Dense(axes(0), sizes(8)))
	finalize(t, tree)

	block := must(tree.Root().Dense(axes(0), sizes(4)))
	must(block.Dense(axes(1), sizes(4)))
	must(block.Dense(axes(1), sizes(8)))
	if err := tree.Finalize(); !errors.Is(err, errors.ErrCodeInconsistentLayout) {
		t.Errorf("Finalize() error = %v, want %s", err, errors.ErrCodeInconsistentLayout)
	}
	if tree.Finalized() {
		t.Error("failed Finalize left the tree finalized")
	}
}

func TestFinalizeBitStruct(t *testing.T) {
	must := mustNode(t)
	f := dtype.NewFactory()
	tree := snode.New(snode.WithTypeFactory(f))
	cu5, _ := f.CustomIntType(5, false)
	ci12, _ := f.CustomIntType(12, true)

	bs := must(must(tree.Root().Dense(axes(0), sizes(4))).BitStruct(32))
	a := must(bs.Place(field.New("a", cu5), nil))
	b := must(bs.Place(field.New("b", ci12), nil))
	finalize(t, tree)

	if a.BitOffset() != 0 || b.BitOffset() != 5 || bs.BitsUsed() != 17 {
		t.Errorf("offsets a=%d b=%d used=%d", a.BitOffset(), b.BitOffset(), bs.BitsUsed())
	}
	if !a.IsBitLevel() {
		t.Error("bit_struct member is not bit-level")
	}

	must(bs.Place(field.New("c", ci12), nil))
	must(bs.Place(field.New("d", ci12), nil))
	if err := tree.Finalize(); !errors.Is(err, errors.ErrCodeBitLevelOverflow) {
		t.Errorf("Finalize() error = %v, want %s", err, errors.ErrCodeBitLevelOverflow)
	}
}

func TestFinalizeBitArray(t *testing.T) {
	must := mustNode(t)
	f := dtype.NewFactory()
	cu4, _ := f.CustomIntType(4, false)
	cu5, _ := f.CustomIntType(5, false)

	tree := snode.New(snode.WithTypeFactory(f))
	ba := must(tree.Root().BitArray(axes(0), sizes(8), 32))
	must(ba.Place(field.New("flags", cu4), nil))
	finalize(t, tree)
	if ba.BitsUsed() != 32 {
		t.Errorf("BitsUsed() = %d, want 32", ba.BitsUsed())
	}

	tree = snode.New(snode.WithTypeFactory(f))
	ba = must(tree.Root().BitArray(axes(0), sizes(8), 32))
	must(ba.Place(field.New("wide", cu5), nil))
	if err := tree.Finalize(); !errors.Is(err, errors.ErrCodeBitLevelOverflow) {
		t.Errorf("Finalize() error = %v, want %s", err, errors.ErrCodeBitLevelOverflow)
	}
}

func TestFinalizeBitStructRejectsContainers(t *testing.T) {
	must := mustNode(t)
	tree := snode.New()
	bs := must(tree.Root().BitStruct(32))
	must(bs.Dense(axes(0), sizes(2)))
	if err := tree.Finalize(); !errors.Is(err, errors.ErrCodeInvalidNodeType) {
		t.Errorf("Finalize() error = %v, want %s", err, errors.ErrCodeInvalidNodeType)
	}
}

func TestPackedContainersNeedBuilders(t *testing.T) {
	must := mustNode(t)
	tree := snode.New()
	block := must(tree.Root().Dense(axes(0), sizes(4)))

	tests := []struct {
		name   string
		create func() (*snode.Node, error)
	}{
		{"insert bit_struct", func() (*snode.Node, error) { return block.InsertChildren(snode.TypeBitStruct) }},
		{"insert bit_array", func() (*snode.Node, error) { return block.InsertChildren(snode.TypeBitArray) }},
		{"create bit_struct", func() (*snode.Node, error) { return block.CreateNode(nil, nil, snode.TypeBitStruct) }},
		{"create bit_array", func() (*snode.Node, error) {
			return block.CreateNode(axes(1), sizes(8), snode.TypeBitArray)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.create(); !errors.Is(err, errors.ErrCodeInvalidNodeType) {
				t.Errorf("error = %v, want %s", err, errors.ErrCodeInvalidNodeType)
			}
		})
	}

	if block.NumChildren() != 0 {
		t.Errorf("rejected requests left %d children", block.NumChildren())
	}
	finalize(t, tree)
}

func TestFinalizeAccumulatedWidthOverflow(t *testing.T) {
	must := mustNode(t)
	tree := snode.New()
	n := tree.Root()
	for range 3 {
		n = must(n.Dense(axes(0), sizes(1<<snode.MaxBitsPerAxis)))
	}
	if err := tree.Finalize(); !errors.Is(err, errors.ErrCodeBitWidthOverflow) {
		t.Fatalf("Finalize() error = %v, want %s", err, errors.ErrCodeBitWidthOverflow)
	}
	if tree.Finalized() {
		t.Error("failed Finalize left the tree finalized")
	}
	if _, err := n.ShapeAlongAxis(0); !errors.Is(err, errors.ErrCodeNotFinalized) {
		t.Errorf("ShapeAlongAxis() error = %v, want %s", err, errors.ErrCodeNotFinalized)
	}

	// Two levels stay within the limit; other axes are counted separately.
	tree = snode.New()
	n = must(tree.Root().Dense(axes(0), sizes(1<<snode.MaxBitsPerAxis)))
	n = must(n.Dense(axes(0, 1), sizes(1<<snode.MaxBitsPerAxis)))
	finalize(t, tree)
	if got, err := n.NumBits(0); err != nil || got != 2*snode.MaxBitsPerAxis {
		t.Errorf("NumBits(0) = %d, %v; want %d", got, err, 2*snode.MaxBitsPerAxis)
	}
	if got, err := n.ShapeAlongAxis(0); err != nil || got != 1<<(2*snode.MaxBitsPerAxis) {
		t.Errorf("ShapeAlongAxis(0) = %d, %v; want %d", got, err, 1<<(2*snode.MaxBitsPerAxis))
	}
}
