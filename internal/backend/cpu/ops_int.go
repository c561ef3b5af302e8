package cpu

import (
	"math"

	"github.com/born-ml/ndarray/internal/tensor"
)

// intDiv returns truncating division for T.
//
// Division by zero saturates: a positive dividend yields the maximum, a
// negative one the minimum and 0/0 yields 0. For signed types MIN / -1
// saturates to the maximum. 8 and 16-bit operands are divided through
// float32, 32-bit operands through float64; both are exact for these ranges.
func intDiv[T tensor.Integer]() func(x, y T) T {
	lo, hi := tensor.Bounds[T]()
	signed := tensor.DTypeOf[T]().IsSigned()
	conv := tensor.Saturator[T]()

	byZero := func(x T) T {
		switch {
		case x > 0:
			return hi
		case x < 0:
			return lo
		default:
			return 0
		}
	}

	switch tensor.DTypeOf[T]().Size() {
	case 1, 2:
		return func(x, y T) T {
			if y == 0 {
				return byZero(x)
			}
			return conv(float64(float32(x) / float32(y)))
		}
	case 4:
		return func(x, y T) T {
			if y == 0 {
				return byZero(x)
			}
			return conv(float64(x) / float64(y))
		}
	default:
		return func(x, y T) T {
			if y == 0 {
				return byZero(x)
			}
			if signed && x == lo && y+1 == 0 {
				return hi
			}
			return x / y
		}
	}
}

// intPow returns integer exponentiation with wrapping overflow.
//
// Negative exponents truncate toward zero: base 1 gives 1, base -1 gives
// +1 or -1 by parity and every other base gives 0. 8 and 16-bit types use a
// fixed number of squaring steps with no data-dependent branches; wider types
// stop once the exponent is exhausted.
func intPow[T tensor.Integer]() func(base, exp T) T {
	dt := tensor.DTypeOf[T]()
	signed := dt.IsSigned()

	steps := 0
	if dt.Size() <= 2 {
		steps = dt.Size() * 8
		if signed {
			steps--
		}
	}

	return func(base, exp T) T {
		if signed && exp < 0 {
			switch {
			case base == 1:
				return 1
			case base+1 == 0:
				if exp&1 == 0 {
					return 1
				}
				return base
			default:
				return 0
			}
		}

		result := T(1)
		if steps > 0 {
			e := uint64(exp)
			for i := 0; i < steps; i++ {
				mask := T(0) - T((e>>i)&1)
				result *= ((base - 1) & mask) + 1
				base *= base
			}
			return result
		}
		for exp > 0 {
			if exp&1 == 1 {
				result *= base
			}
			base *= base
			exp >>= 1
		}
		return result
	}
}

// intAbs wraps at the minimum of signed types and is the identity for unsigned.
func intAbs[T tensor.Integer](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// intLog returns the saturated natural log, 0 for x <= 0.
func intLog[T tensor.Integer]() func(x T) T {
	conv := tensor.Saturator[T]()
	return func(x T) T {
		if x <= 0 {
			return 0
		}
		return conv(math.Log(float64(x)))
	}
}

// intExp returns the saturated exponential.
func intExp[T tensor.Integer]() func(x T) T {
	conv := tensor.Saturator[T]()
	return func(x T) T {
		return conv(math.Exp(float64(x)))
	}
}

// intSqrt returns the truncated square root, 0 for negative inputs.
func intSqrt[T tensor.Integer]() func(x T) T {
	conv := tensor.Saturator[T]()
	return func(x T) T {
		if x <= 0 {
			return 0
		}
		return conv(math.Sqrt(float64(x)))
	}
}
