package manifest

import (
	"github.com/matzehuels/sparsetree/pkg/errors"
	"github.com/matzehuels/sparsetree/pkg/field"
)

// FieldInfo is the layout of one declared field as a lowering pass sees
// it. Node references are hinted names ("S5place<f32>").
type FieldInfo struct {
	Name           string     `json:"name"`
	DType          string     `json:"dtype"`
	Placed         bool       `json:"placed"`
	Leaf           string     `json:"leaf,omitempty"`
	SparseAncestor string     `json:"sparse_ancestor,omitempty"`
	Scalar         bool       `json:"scalar,omitempty"`
	Shape          []int      `json:"shape,omitempty"`
	Bits           []AxisBits `json:"bits,omitempty"`
	Exponent       string     `json:"exponent,omitempty"`
	SharedExponent bool       `json:"shared_exponent,omitempty"`
	Grad           string     `json:"grad,omitempty"`
}

// AxisBits is the bit width of one active axis summed from the root.
type AxisBits struct {
	Axis int `json:"axis"`
	Bits int `json:"bits"`
}

// Describe returns the layout of the field called name.
func (l *Layout) Describe(name string) (FieldInfo, error) {
	f, ok := l.Field(name)
	if !ok {
		return FieldInfo{}, errors.New(errors.ErrCodeNotFound, "layout %q has no field %q", l.Name, name)
	}
	return describe(f)
}

// DescribeAll returns the layout of every field in manifest order.
func (l *Layout) DescribeAll() ([]FieldInfo, error) {
	fields := l.Fields()
	out := make([]FieldInfo, 0, len(fields))
	for _, f := range fields {
		info, err := describe(f)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func describe(f *field.Field) (FieldInfo, error) {
	info := FieldInfo{Name: f.Name(), DType: f.DType().String()}
	leaf := f.Leaf()
	if leaf == nil {
		return info, nil
	}
	info.Placed = true
	info.Leaf = leaf.HintedName()
	info.Scalar = leaf.IsScalar()

	lsa, err := leaf.LeastSparseAncestor()
	if err != nil {
		return FieldInfo{}, errors.Wrap(errors.GetCode(err), err, "field %s", f.Name())
	}
	if lsa != nil {
		info.SparseAncestor = lsa.HintedName()
	}

	for i, ax := range leaf.PhysicalIndexPosition() {
		shape, err := leaf.ShapeAlongAxis(i)
		if err != nil {
			return FieldInfo{}, errors.Wrap(errors.GetCode(err), err, "field %s", f.Name())
		}
		bits, err := leaf.NumBits(ax)
		if err != nil {
			return FieldInfo{}, errors.Wrap(errors.GetCode(err), err, "field %s", f.Name())
		}
		info.Shape = append(info.Shape, shape)
		info.Bits = append(info.Bits, AxisBits{Axis: int(ax), Bits: bits})
	}

	if exp := leaf.ExponentNode(); exp != nil {
		info.Exponent = exp.Name()
		info.SharedExponent = leaf.OwnsSharedExponent()
	}
	if g, err := leaf.Grad(); err == nil {
		info.Grad = g.HintedName()
	}
	return info, nil
}
