package tensor

import (
	"fmt"
	"math/bits"
)

// MaxRank is the largest supported number of dimensions.
const MaxRank = 8

// Shape represents the dimensions of an array.
type Shape []int

// NumElements returns the product of the dimensions.
// It does not check for overflow; see CheckedNumElements.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// CheckedNumElements returns the element count and the byte capacity for
// elements of elemSize bytes, failing with ErrIntegerOverflow instead of wrapping.
func (s Shape) CheckedNumElements(elemSize int) (count, capacity int, err error) {
	n := uint64(1)
	for _, dim := range s {
		hi, lo := bits.Mul64(n, uint64(dim))
		if hi != 0 || lo > maxInt {
			return 0, 0, fmt.Errorf("%w: element count of %v", ErrIntegerOverflow, []int(s))
		}
		n = lo
	}
	hi, lo := bits.Mul64(n, uint64(elemSize))
	if hi != 0 || lo > maxInt {
		return 0, 0, fmt.Errorf("%w: byte capacity of %v x %d", ErrIntegerOverflow, []int(s), elemSize)
	}
	return int(n), int(lo), nil
}

const maxInt = uint64(^uint(0) >> 1)

// Validate checks the rank and that all dimensions are > 0.
func (s Shape) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: zero-rank shape", ErrInvalidArgument)
	}
	if len(s) > MaxRank {
		return fmt.Errorf("%w: rank %d exceeds %d", ErrInvalidArgument, len(s), MaxRank)
	}
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("%w: dimension %d is %d (must be > 0)", ErrInvalidArgument, i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major byte strides for elements of elemSize bytes.
// stride[i] = elemSize * product of all dimensions after i.
func (s Shape) ComputeStrides(elemSize int) []int {
	strides := make([]int, len(s))
	acc := elemSize
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= s[i]
	}
	return strides
}

// NormalizeAxis maps a possibly negative axis into [0, rank).
func NormalizeAxis(axis, rank int) (int, error) {
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return 0, fmt.Errorf("%w: axis %d out of range for rank %d", ErrInvalidAxis, axis, rank)
	}
	return axis, nil
}

// ReduceAxis returns the output shape of an axis reduction.
//
// With keepDim the reduced axis becomes 1. Without it the axis is removed;
// reducing a rank-1 shape then yields Shape{1} since zero-rank arrays do not exist.
//
// Examples:
//
//	(2, 3, 4).ReduceAxis(1, true)  → (2, 1, 4)
//	(2, 3, 4).ReduceAxis(-1, false) → (2, 3)
//	(5).ReduceAxis(0, false)       → (1)
func (s Shape) ReduceAxis(axis int, keepDim bool) (Shape, error) {
	axis, err := NormalizeAxis(axis, len(s))
	if err != nil {
		return nil, err
	}
	if keepDim {
		out := s.Clone()
		out[axis] = 1
		return out, nil
	}
	if len(s) == 1 {
		return Shape{1}, nil
	}
	out := make(Shape, 0, len(s)-1)
	out = append(out, s[:axis]...)
	return append(out, s[axis+1:]...), nil
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Rules:
// 1. Compare shapes element-wise from right to left
// 2. Dimensions are compatible if:
//   - They are equal, OR
//   - One of them is 1
//
// 3. Missing dimensions are treated as 1
//
// Returns the broadcasted shape and a flag indicating if broadcasting is needed.
// Incompatible shapes fail with ErrIncompatibleShapes.
//
// Examples:
//
//	(3, 1) + (1, 4) → (3, 4), true, nil
//	(3, 5) + (5)    → (3, 5), true, nil
//	(3, 5) + (3, 5) → (3, 5), false, nil
//	(3, 4) + (3, 5) → nil, false, Error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	maxLen := max(len(a), len(b))
	result := make(Shape, maxLen)
	needsBroadcast := len(a) != len(b)

	for i := 0; i < maxLen; i++ {
		aIdx := len(a) - 1 - i
		bIdx := len(b) - 1 - i

		aDim := 1
		if aIdx >= 0 {
			aDim = a[aIdx]
		}

		bDim := 1
		if bIdx >= 0 {
			bDim = b[bIdx]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[maxLen-1-i] = aDim
			needsBroadcast = true
		default:
			return nil, false, fmt.Errorf("%w: %v vs %v (dimension %d: %d vs %d)",
				ErrIncompatibleShapes, []int(a), []int(b), maxLen-1-i, aDim, bDim)
		}
	}

	return result, needsBroadcast, nil
}
