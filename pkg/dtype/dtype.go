// Package dtype describes the element types stored in layout tree leaves.
//
// Three kinds of types exist:
//
//   - [Primitive]: machine types (i8..i64, u8..u64, f16, f32, f64)
//   - [CustomInt]: a narrow integer of 1 to 64 bits, computed in the
//     smallest primitive integer that holds it
//   - [CustomFloat]: a narrow float made of a digits (mantissa) integer and
//     an optional exponent integer; when the exponent is present, placing a
//     field of this type also places an exponent leaf
//
// Custom types are interned by a [Factory], so two requests for the same
// shape return the same pointer. Identity comparison is what the placement
// engine uses to decide whether several fields may share one exponent.
package dtype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/sparsetree/pkg/errors"
)

// Type is an element type that can be stored in a leaf or used as the
// physical storage of a bit-level container.
type Type interface {
	// String returns the short name used in node names and manifests.
	String() string
	// BitWidth returns the number of bits one value occupies in storage.
	BitWidth() int
}

// Primitive is a machine-level numeric type.
type Primitive uint8

const (
	// Gen is the placeholder type of nodes that carry no element type.
	Gen Primitive = iota
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F16
	F32
	F64
)

var primitiveNames = [...]string{
	Gen: "gen",
	I8:  "i8",
	I16: "i16",
	I32: "i32",
	I64: "i64",
	U8:  "u8",
	U16: "u16",
	U32: "u32",
	U64: "u64",
	F16: "f16",
	F32: "f32",
	F64: "f64",
}

// String returns the short name of the type (e.g. "f32").
func (p Primitive) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return "unknown"
}

// BitWidth returns the storage width in bits, or 0 for [Gen].
func (p Primitive) BitWidth() int {
	switch p {
	case I8, U8:
		return 8
	case I16, U16, F16:
		return 16
	case I32, U32, F32:
		return 32
	case I64, U64, F64:
		return 64
	default:
		return 0
	}
}

// IsReal reports whether p is a floating-point type.
func (p Primitive) IsReal() bool { return p == F16 || p == F32 || p == F64 }

// IsInteger reports whether p is a signed or unsigned integer type.
func (p Primitive) IsInteger() bool { return p >= I8 && p <= U64 }

// IsSigned reports whether p is a signed integer or a real type.
func (p Primitive) IsSigned() bool { return (p >= I8 && p <= I64) || p.IsReal() }

// CustomInt is a narrow integer type. Values are stored in Bits bits and
// widened to Compute for arithmetic.
type CustomInt struct {
	bits    int
	signed  bool
	compute Primitive
}

// Bits returns the storage width.
func (c *CustomInt) Bits() int { return c.bits }

// Signed reports whether the type is signed.
func (c *CustomInt) Signed() bool { return c.signed }

// Compute returns the primitive type used for arithmetic.
func (c *CustomInt) Compute() Primitive { return c.compute }

// BitWidth implements [Type].
func (c *CustomInt) BitWidth() int { return c.bits }

// String returns "ci<bits>" for signed and "cu<bits>" for unsigned types.
func (c *CustomInt) String() string {
	if c.signed {
		return "ci" + strconv.Itoa(c.bits)
	}
	return "cu" + strconv.Itoa(c.bits)
}

// CustomFloat is a narrow float type made of a digits integer scaled by
// Scale, with an optional exponent integer.
type CustomFloat struct {
	digits   *CustomInt
	exponent *CustomInt
	compute  Primitive
	scale    float64
}

// Digits returns the mantissa type.
func (c *CustomFloat) Digits() *CustomInt { return c.digits }

// ExponentType returns the exponent component, or nil when the type is a
// fixed-point float without exponent.
func (c *CustomFloat) ExponentType() *CustomInt { return c.exponent }

// Compute returns the primitive real type used for arithmetic.
func (c *CustomFloat) Compute() Primitive { return c.compute }

// Scale returns the fixed-point scale applied to the digits.
func (c *CustomFloat) Scale() float64 { return c.scale }

// BitWidth returns the width of the digits component. The exponent lives in
// its own leaf and is not counted here.
func (c *CustomFloat) BitWidth() int { return c.digits.bits }

// String returns a descriptive name such as "cf(d=cu10 e=cu5 c=f32 s=1)".
func (c *CustomFloat) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cf(d=%s", c.digits)
	if c.exponent != nil {
		fmt.Fprintf(&b, " e=%s", c.exponent)
	}
	fmt.Fprintf(&b, " c=%s s=%s)", c.compute, strconv.FormatFloat(c.scale, 'g', -1, 64))
	return b.String()
}

// ExponentOf returns the exponent component of t if t is a [CustomFloat]
// with an exponent, or nil otherwise.
func ExponentOf(t Type) *CustomInt {
	if cf, ok := t.(*CustomFloat); ok {
		return cf.exponent
	}
	return nil
}

// NeedsGrad reports whether fields of type t take part in automatic
// differentiation. Real primitives and custom floats do; integers don't.
func NeedsGrad(t Type) bool {
	switch v := t.(type) {
	case Primitive:
		return v.IsReal()
	case *CustomFloat:
		return true
	default:
		return false
	}
}

// Constant is a typed scalar value, used for ambient (out-of-bounds) values.
type Constant struct {
	Type  Type
	Value float64
}

// String formats the constant as "<value>:<type>".
func (c Constant) String() string {
	name := "gen"
	if c.Type != nil {
		name = c.Type.String()
	}
	return strconv.FormatFloat(c.Value, 'g', -1, 64) + ":" + name
}

// ParsePrimitive returns the primitive type named s.
func ParsePrimitive(s string) (Primitive, error) {
	for i, name := range primitiveNames {
		if name == s {
			return Primitive(i), nil
		}
	}
	return Gen, errors.New(errors.ErrCodeInvalidType, "unknown primitive type %q", s)
}
