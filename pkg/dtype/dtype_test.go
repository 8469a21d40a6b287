package dtype

import (
	"testing"

	"github.com/matzehuels/sparsetree/pkg/errors"
)

func TestPrimitiveIntType(t *testing.T) {
	f := NewFactory()
	tests := []struct {
		bits    int
		signed  bool
		want    Primitive
		wantErr bool
	}{
		{bits: 8, want: U8},
		{bits: 16, want: U16},
		{bits: 32, want: U32},
		{bits: 64, want: U64},
		{bits: 32, signed: true, want: I32},
		{bits: 12, wantErr: true},
		{bits: 0, wantErr: true},
	}

	for _, tt := range tests {
		got, err := f.PrimitiveIntType(tt.bits, tt.signed)
		if (err != nil) != tt.wantErr {
			t.Fatalf("PrimitiveIntType(%d) error = %v, wantErr %v", tt.bits, err, tt.wantErr)
		}
		if err != nil {
			if !errors.Is(err, errors.ErrCodeInvalidType) {
				t.Errorf("PrimitiveIntType(%d) code = %v", tt.bits, errors.GetCode(err))
			}
			continue
		}
		if got != tt.want {
			t.Errorf("PrimitiveIntType(%d, %v) = %v, want %v", tt.bits, tt.signed, got, tt.want)
		}
		if got.BitWidth() != tt.bits {
			t.Errorf("%v.BitWidth() = %d, want %d", got, got.BitWidth(), tt.bits)
		}
	}
}

func TestCustomIntInterned(t *testing.T) {
	f := NewFactory()
	a, err := f.CustomIntType(5, false)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := f.CustomIntType(5, false)
	c, _ := f.CustomIntType(5, true)

	if a != b {
		t.Error("equal custom ints should share one pointer")
	}
	if a == c {
		t.Error("signedness must distinguish custom ints")
	}
	if a.String() != "cu5" || c.String() != "ci5" {
		t.Errorf("names = %s, %s", a, c)
	}
	if a.Compute() != U8 || c.Compute() != I8 {
		t.Errorf("compute = %v, %v", a.Compute(), c.Compute())
	}

	if _, err := f.CustomIntType(0, false); err == nil {
		t.Error("zero-width custom int should fail")
	}
	if _, err := f.CustomIntType(65, false); err == nil {
		t.Error("65-bit custom int should fail")
	}
}

func TestCustomFloat(t *testing.T) {
	f := NewFactory()
	digits, _ := f.CustomIntType(10, false)
	exp, _ := f.CustomIntType(5, false)

	cf, err := f.CustomFloatType(digits, exp, F32, 1)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := f.CustomFloatType(digits, exp, F32, 1)
	if cf != again {
		t.Error("equal custom floats should share one pointer")
	}
	if ExponentOf(cf) != exp {
		t.Error("ExponentOf should return the exponent component")
	}
	if cf.BitWidth() != 10 {
		t.Errorf("BitWidth() = %d, want 10", cf.BitWidth())
	}
	if got := cf.String(); got != "cf(d=cu10 e=cu5 c=f32 s=1)" {
		t.Errorf("String() = %q", got)
	}

	fixed, _ := f.CustomFloatType(digits, nil, F32, 0.5)
	if ExponentOf(fixed) != nil {
		t.Error("fixed-point float has no exponent")
	}

	if _, err := f.CustomFloatType(digits, exp, I32, 1); err == nil {
		t.Error("integer compute type should fail")
	}
	if _, err := f.CustomFloatType(nil, exp, F32, 1); err == nil {
		t.Error("missing digits should fail")
	}
}

func TestNeedsGrad(t *testing.T) {
	f := NewFactory()
	ci, _ := f.CustomIntType(7, true)
	cf, _ := f.CustomFloatType(ci, nil, F32, 1)

	tests := []struct {
		name string
		typ  Type
		want bool
	}{
		{"f32", F32, true},
		{"f64", F64, true},
		{"i32", I32, false},
		{"custom int", ci, false},
		{"custom float", cf, true},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsGrad(tt.typ); got != tt.want {
				t.Errorf("NeedsGrad() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	f := NewFactory()
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "f32", want: "f32"},
		{in: "u16", want: "u16"},
		{in: "cu7", want: "cu7"},
		{in: "ci3", want: "ci3"},
		{in: "cux", wantErr: true},
		{in: "float", wantErr: true},
	}
	for _, tt := range tests {
		got, err := f.Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got.String() != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestConstantString(t *testing.T) {
	c := Constant{Type: F32, Value: -1.5}
	if got := c.String(); got != "-1.5:f32" {
		t.Errorf("String() = %q", got)
	}
}
