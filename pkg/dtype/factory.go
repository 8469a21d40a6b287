package dtype

import (
	"strconv"
	"strings"
	"sync"

	"github.com/matzehuels/sparsetree/pkg/errors"
)

// MaxCustomIntBits is the widest custom integer the factory will create.
const MaxCustomIntBits = 64

type customIntKey struct {
	bits   int
	signed bool
}

type customFloatKey struct {
	digits   *CustomInt
	exponent *CustomInt
	compute  Primitive
	scale    float64
}

// Factory interns custom types so that equal shapes share one pointer.
// A Factory is safe for concurrent use.
type Factory struct {
	mu           sync.Mutex
	customInts   map[customIntKey]*CustomInt
	customFloats map[customFloatKey]*CustomFloat
}

// NewFactory creates an empty type factory.
func NewFactory() *Factory {
	return &Factory{
		customInts:   make(map[customIntKey]*CustomInt),
		customFloats: make(map[customFloatKey]*CustomFloat),
	}
}

var defaultFactory = NewFactory()

// Default returns the process-wide factory.
func Default() *Factory { return defaultFactory }

// PrimitiveIntType returns the primitive integer of exactly bits bits.
// Only 8, 16, 32 and 64 are valid widths.
func (f *Factory) PrimitiveIntType(bits int, signed bool) (Primitive, error) {
	var p Primitive
	switch bits {
	case 8:
		p = U8
	case 16:
		p = U16
	case 32:
		p = U32
	case 64:
		p = U64
	default:
		return Gen, errors.New(errors.ErrCodeInvalidType, "no primitive integer with %d bits", bits)
	}
	if signed {
		p -= U8 - I8
	}
	return p, nil
}

// CustomIntType returns the interned custom integer of the given width.
func (f *Factory) CustomIntType(bits int, signed bool) (*CustomInt, error) {
	if bits < 1 || bits > MaxCustomIntBits {
		return nil, errors.New(errors.ErrCodeInvalidType, "custom int width %d out of range [1, %d]", bits, MaxCustomIntBits)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := customIntKey{bits: bits, signed: signed}
	if ci, ok := f.customInts[key]; ok {
		return ci, nil
	}
	ci := &CustomInt{bits: bits, signed: signed, compute: computeIntFor(bits, signed)}
	f.customInts[key] = ci
	return ci, nil
}

// CustomFloatType returns the interned custom float. exponent may be nil.
// compute must be a real primitive and scale must be positive.
func (f *Factory) CustomFloatType(digits, exponent *CustomInt, compute Primitive, scale float64) (*CustomFloat, error) {
	if digits == nil {
		return nil, errors.New(errors.ErrCodeInvalidType, "custom float requires a digits type")
	}
	if !compute.IsReal() {
		return nil, errors.New(errors.ErrCodeInvalidType, "custom float compute type %s is not real", compute)
	}
	if scale <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidType, "custom float scale %g must be positive", scale)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := customFloatKey{digits: digits, exponent: exponent, compute: compute, scale: scale}
	if cf, ok := f.customFloats[key]; ok {
		return cf, nil
	}
	cf := &CustomFloat{digits: digits, exponent: exponent, compute: compute, scale: scale}
	f.customFloats[key] = cf
	return cf, nil
}

// Parse resolves a primitive ("f32") or custom integer ("cu5", "ci12")
// name. Custom floats have no short name and must be built with
// [Factory.CustomFloatType].
func (f *Factory) Parse(s string) (Type, error) {
	if strings.HasPrefix(s, "ci") || strings.HasPrefix(s, "cu") {
		bits, err := strconv.Atoi(s[2:])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidType, err, "custom int %q", s)
		}
		return f.CustomIntType(bits, s[1] == 'i')
	}
	return ParsePrimitive(s)
}

func computeIntFor(bits int, signed bool) Primitive {
	var p Primitive
	switch {
	case bits <= 8:
		p = U8
	case bits <= 16:
		p = U16
	case bits <= 32:
		p = U32
	default:
		p = U64
	}
	if signed {
		p -= U8 - I8
	}
	return p
}
