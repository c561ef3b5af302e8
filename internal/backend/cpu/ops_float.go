package cpu

import (
	"math"

	"github.com/born-ml/ndarray/internal/tensor"
)

// Float element functions follow IEEE 754: NaN and Inf propagate.

func floatPow[T tensor.Float](x, y T) T {
	return T(math.Pow(float64(x), float64(y)))
}

func floatAbs[T tensor.Float](x T) T {
	return T(math.Abs(float64(x)))
}

func floatLog[T tensor.Float](x T) T {
	return T(math.Log(float64(x)))
}

func floatExp[T tensor.Float](x T) T {
	return T(math.Exp(float64(x)))
}

func floatSqrt[T tensor.Float](x T) T {
	return T(math.Sqrt(float64(x)))
}
