package snode

import (
	"math/bits"

	"github.com/matzehuels/sparsetree/pkg/errors"
)

const (
	// MaxNumIndices is the size of the fixed extractor table.
	MaxNumIndices = 8

	// MaxBitsPerAxis bounds the promoted width a single node may contribute
	// to one axis. Wider requests fail with ErrCodeBitWidthOverflow.
	MaxBitsPerAxis = 30

	// MaxBitsFromRoot bounds the width of one axis summed along a root
	// path, so that element counts and shapes fit an int. Finalize fails
	// with ErrCodeBitWidthOverflow beyond it.
	MaxBitsFromRoot = 62

	// maxBitsPerNode bounds the sum over all axes of one node, so that its
	// cell count fits an int.
	maxBitsPerNode = 62
)

// IsPowerOfTwo reports whether x is a positive power of two.
func IsPowerOfTwo(x int) bool {
	return x > 0 && x&(x-1) == 0
}

// LeastPowerOfTwoBound returns the smallest power of two >= x, for x >= 1.
func LeastPowerOfTwoBound(x int) int {
	if x <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(x-1))
}

// Log2 returns floor(log2(x)) for x >= 1.
func Log2(x int) int {
	return bits.Len(uint(x)) - 1
}

// axisLayout is the bit-layout of one requested axis.
type axisLayout struct {
	axis      Axis
	requested int
	promoted  int
	bits      int
}

// planAxes validates the axes and sizes of a container request and computes
// the promoted layout of every axis. A single size is broadcast to every
// axis.
func planAxes(axes []Axis, sizes []int) ([]axisLayout, error) {
	if len(sizes) != len(axes) && len(sizes) != 1 {
		return nil, errors.New(errors.ErrCodeInvalidSize,
			"got %d sizes for %d axes; want one per axis or a single broadcast size", len(sizes), len(axes))
	}

	plan := make([]axisLayout, len(axes))
	var seen [MaxNumIndices]bool
	total := 0
	for i, ax := range axes {
		if ax < 0 || ax >= MaxNumIndices {
			return nil, errors.New(errors.ErrCodeInvalidAxis, "axis %d out of range [0, %d)", ax, MaxNumIndices)
		}
		if seen[ax] {
			return nil, errors.New(errors.ErrCodeInvalidAxis, "axis %d listed twice", ax)
		}
		seen[ax] = true

		s := sizes[0]
		if len(sizes) == len(axes) {
			s = sizes[i]
		}
		if s <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidSize, "axis %d: size %d must be positive", ax, s)
		}
		if s > 1<<MaxBitsPerAxis {
			return nil, errors.New(errors.ErrCodeBitWidthOverflow,
				"axis %d: size %d needs more than %d bits", ax, s, MaxBitsPerAxis)
		}

		promoted := LeastPowerOfTwoBound(s)
		b := Log2(promoted)
		total += b
		if total > maxBitsPerNode {
			return nil, errors.New(errors.ErrCodeBitWidthOverflow,
				"node needs %d bits across its axes, limit is %d", total, maxBitsPerNode)
		}
		plan[i] = axisLayout{axis: ax, requested: s, promoted: promoted, bits: b}
	}
	return plan, nil
}
