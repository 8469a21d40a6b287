package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matzehuels/sparsetree/pkg/dtype"
	"github.com/matzehuels/sparsetree/pkg/errors"
	"github.com/matzehuels/sparsetree/pkg/snode"
)

func TestLoad(t *testing.T) {
	m, err := Load(filepath.Join("testdata", "particles.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Name != "particles" || !m.LazyGrad {
		t.Errorf("Name = %q, LazyGrad = %v", m.Name, m.LazyGrad)
	}
	if len(m.Fields) != 5 {
		t.Errorf("got %d fields, want 5", len(m.Fields))
	}
	if len(m.Root.Children) != 1 || len(m.Root.Children[0].Children) != 2 {
		t.Fatalf("unexpected tree shape: %+v", m.Root)
	}
	if got := m.Root.Children[0].Children[0].Offsets["x"]; len(got) != 1 || got[0] != -16 {
		t.Errorf("offsets = %v", got)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Load() error = %v, want %s", err, errors.ErrCodeNotFound)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", `name = `},
		{"unknown key", "name = \"a\"\ncolour = \"red\"\n"},
		{"unnamed field", "[[field]]\ntype = \"f32\"\n"},
		{"duplicate field", "[[field]]\nname = \"x\"\ntype = \"f32\"\n[[field]]\nname = \"x\"\ntype = \"i32\"\n"},
		{"missing type", "[[field]]\nname = \"x\"\n"},
		{"type and digits", "[[field]]\nname = \"x\"\ntype = \"f32\"\ndigits = \"cu8\"\n"},
		{"root axes", "[root]\naxes = [0]\nsizes = [4]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, errors.ErrCodeInvalidManifest) {
				t.Errorf("Parse() error = %v, want %s", err, errors.ErrCodeInvalidManifest)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	m, err := Load(filepath.Join("testdata", "particles.toml"))
	if err != nil {
		t.Fatal(err)
	}
	l, err := Build(m, WithTypeFactory(dtype.NewFactory()))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !l.Tree.Finalized() {
		t.Error("built tree is not finalized")
	}

	x, ok := l.Field("x")
	if !ok || x.Leaf() == nil {
		t.Fatal("field x not placed")
	}
	if !x.Leaf().HasGrad() {
		t.Error("lazy_grad did not place x_grad")
	}
	if got := x.Leaf().IndexOffsets(); len(got) != 1 || got[0] != -16 {
		t.Errorf("x offsets = %v", got)
	}
	if n, _ := x.Leaf().ShapeAlongAxis(0); n != 64*5 {
		t.Errorf("x shape = %d, want %d", n, 64*5)
	}

	id, _ := l.Field("id")
	if !id.Leaf().IsScalar() {
		t.Error("root-placed id is not scalar")
	}

	qa, _ := l.Field("qa")
	qb, _ := l.Field("qb")
	exp := qa.Leaf().ExponentNode()
	if exp == nil || exp != qb.Leaf().ExponentNode() {
		t.Fatal("qa and qb do not share an exponent")
	}
	if exp.Name() != "qa_exp" || len(exp.ExponentUsers()) != 2 {
		t.Errorf("exponent %q with %d users", exp.Name(), len(exp.ExponentUsers()))
	}
	bs := l.Tree.Root().Child(1).Child(1)
	if bs.Type() != snode.TypeBitStruct || bs.BitsUsed() != 26 {
		t.Errorf("bit_struct %s uses %d bits, want 26", bs.Type(), bs.BitsUsed())
	}

	names := make([]string, 0, len(l.Fields()))
	for _, f := range l.Fields() {
		names = append(names, f.Name())
	}
	if len(names) != 5 || names[0] != "x" || names[4] != "qb" {
		t.Errorf("Fields() = %v", names)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.Code
	}{
		{
			"undeclared field",
			"[[root.child]]\ntype = \"dense\"\naxes = [0]\nsizes = [4]\nplace = [\"ghost\"]\n",
			errors.ErrCodeInvalidManifest,
		},
		{
			"axis wider than an int",
			"[[root.child]]\ntype = \"dense\"\naxes = [0]\nsizes = [1073741824]\n" +
				"[[root.child.child]]\ntype = \"dense\"\naxes = [0]\nsizes = [1073741824]\n" +
				"[[root.child.child.child]]\ntype = \"dense\"\naxes = [0]\nsizes = [1073741824]\n",
			errors.ErrCodeBitWidthOverflow,
		},
		{
			"placed twice",
			"[[field]]\nname = \"x\"\ntype = \"f32\"\n[root]\nplace = [\"x\", \"x\"]\n",
			errors.ErrCodeAlreadyPlaced,
		},
		{
			"nested hash",
			"[[root.child]]\ntype = \"dense\"\naxes = [0]\nsizes = [4]\n[[root.child.child]]\ntype = \"hash\"\naxes = [1]\nsizes = [4]\n",
			errors.ErrCodeHashNotAtRoot,
		},
		{
			"place as container",
			"[[root.child]]\ntype = \"place\"\n",
			errors.ErrCodeInvalidManifest,
		},
		{
			"bad type",
			"[[field]]\nname = \"x\"\ntype = \"f128\"\n",
			errors.ErrCodeInvalidManifest,
		},
		{
			"offsets for other field",
			"[[field]]\nname = \"x\"\ntype = \"f32\"\n[[root.child]]\ntype = \"dense\"\naxes = [0]\nsizes = [4]\noffsets = { x = [1] }\n",
			errors.ErrCodeInvalidManifest,
		},
		{
			"exponent mismatch",
			"[[field]]\nname = \"a\"\ndigits = \"cu8\"\nexponent = \"cu5\"\n[[field]]\nname = \"b\"\ndigits = \"cu8\"\nexponent = \"cu6\"\n" +
				"[[root.child]]\ntype = \"bit_struct\"\nbits = 32\nplace = [\"a\", \"b\"]\nshared_exponent = true\n",
			errors.ErrCodeExponentTypeMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.data))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			_, err = Build(m, WithTypeFactory(dtype.NewFactory()))
			if !errors.Is(err, tt.code) {
				t.Errorf("Build() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestExampleLayouts(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "layouts", "*.toml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range paths {
		t.Run(filepath.Base(p), func(t *testing.T) {
			if _, err := os.Stat(p); err != nil {
				t.Skip(err)
			}
			m, err := Load(p)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if _, err := Build(m); err != nil {
				t.Fatalf("Build() error: %v", err)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	m, err := Load(filepath.Join("testdata", "particles.toml"))
	if err != nil {
		t.Fatal(err)
	}
	l, err := Build(m, WithTypeFactory(dtype.NewFactory()))
	if err != nil {
		t.Fatal(err)
	}

	x, err := l.Describe("x")
	if err != nil {
		t.Fatal(err)
	}
	want := FieldInfo{
		Name:           "x",
		DType:          "f32",
		Placed:         true,
		Leaf:           "S5place<f32>",
		SparseAncestor: "S3pointer",
		Shape:          []int{320},
		Bits:           []AxisBits{{Axis: 0, Bits: 9}},
		Grad:           "S11place<f32>",
	}
	if !reflect.DeepEqual(x, want) {
		t.Errorf("Describe(x) =\n%+v\nwant\n%+v", x, want)
	}

	id, _ := l.Describe("id")
	if !id.Scalar || id.SparseAncestor != "" || len(id.Shape) != 0 {
		t.Errorf("Describe(id) = %+v", id)
	}

	qb, _ := l.Describe("qb")
	if qb.Exponent != "qa_exp" || !qb.SharedExponent || qb.Shape[0] != 64 {
		t.Errorf("Describe(qb) = %+v", qb)
	}

	if _, err := l.Describe("nope"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Describe(nope) error = %v", err)
	}

	all, err := l.DescribeAll()
	if err != nil || len(all) != 5 || all[4].Name != "qb" {
		t.Errorf("DescribeAll() = %d fields, err %v", len(all), err)
	}
}
