package cpu

import (
	"github.com/born-ml/ndarray/internal/tensor"
)

// Kernel signatures. Buffers start at element 0 of their run; strides are in
// bytes and an input stride of 0 repeats a single value.
type (
	// BinaryKernel computes out[i] = a[i] op b[i] for n elements.
	BinaryKernel func(a, b, out []byte, n, sa, sb, so int)

	// UnaryKernel computes out[i] = op(a[i]) for n elements.
	UnaryKernel func(a, out []byte, n, sa, so int)

	// ClipKernel clamps n elements of a into [lo, hi] (converted to the dtype).
	ClipKernel func(a, out []byte, n, sa, so int, lo, hi float64)
)

// binaryOp enumerates the element-wise binary operations.
type binaryOp int

const (
	opAdd binaryOp = iota
	opSub
	opMul
	opDiv
	opPow
	opMaximum
	opMinimum
	numBinaryOps
)

var binaryOpNames = [numBinaryOps]string{"add", "sub", "mul", "div", "pow", "maximum", "minimum"}

// unaryOp enumerates the element-wise unary operations.
type unaryOp int

const (
	opNeg unaryOp = iota
	opAbs
	opLog
	opExp
	opSqrt
	numUnaryOps
)

var unaryOpNames = [numUnaryOps]string{"neg", "abs", "log", "exp", "sqrt"}

// Kernel tables, indexed by operation then dtype.
var (
	binaryKernels [numBinaryOps][tensor.NumDataTypes]BinaryKernel
	unaryKernels  [numUnaryOps][tensor.NumDataTypes]UnaryKernel
	clipKernels   [tensor.NumDataTypes]ClipKernel
)

func init() {
	for op := range numBinaryOps {
		binaryKernels[op] = [tensor.NumDataTypes]BinaryKernel{
			tensor.Int8:    binaryKernel(intBinary[int8](op)),
			tensor.Int16:   binaryKernel(intBinary[int16](op)),
			tensor.Int32:   binaryKernel(intBinary[int32](op)),
			tensor.Int64:   binaryKernel(intBinary[int64](op)),
			tensor.Uint8:   binaryKernel(intBinary[uint8](op)),
			tensor.Uint16:  binaryKernel(intBinary[uint16](op)),
			tensor.Uint32:  binaryKernel(intBinary[uint32](op)),
			tensor.Uint64:  binaryKernel(intBinary[uint64](op)),
			tensor.Float32: binaryKernel(floatBinary[float32](op)),
			tensor.Float64: binaryKernel(floatBinary[float64](op)),
		}
	}
	for op := range numUnaryOps {
		unaryKernels[op] = [tensor.NumDataTypes]UnaryKernel{
			tensor.Int8:    unaryKernel(intUnary[int8](op)),
			tensor.Int16:   unaryKernel(intUnary[int16](op)),
			tensor.Int32:   unaryKernel(intUnary[int32](op)),
			tensor.Int64:   unaryKernel(intUnary[int64](op)),
			tensor.Uint8:   unaryKernel(intUnary[uint8](op)),
			tensor.Uint16:  unaryKernel(intUnary[uint16](op)),
			tensor.Uint32:  unaryKernel(intUnary[uint32](op)),
			tensor.Uint64:  unaryKernel(intUnary[uint64](op)),
			tensor.Float32: unaryKernel(floatUnary[float32](op)),
			tensor.Float64: unaryKernel(floatUnary[float64](op)),
		}
	}
	clipKernels = [tensor.NumDataTypes]ClipKernel{
		tensor.Int8:    clipKernel[int8](),
		tensor.Int16:   clipKernel[int16](),
		tensor.Int32:   clipKernel[int32](),
		tensor.Int64:   clipKernel[int64](),
		tensor.Uint8:   clipKernel[uint8](),
		tensor.Uint16:  clipKernel[uint16](),
		tensor.Uint32:  clipKernel[uint32](),
		tensor.Uint64:  clipKernel[uint64](),
		tensor.Float32: clipKernel[float32](),
		tensor.Float64: clipKernel[float64](),
	}
	initReduceKernels()
}

// binaryKernel lifts an element function into a strided kernel.
//
// Cases, in order: contiguous in-place, contiguous, right scalar, left scalar,
// generic strided.
func binaryKernel[T tensor.Number](f func(x, y T) T) BinaryKernel {
	es := sizeOf[T]()
	return func(a, b, out []byte, n, sa, sb, so int) {
		av, bv, ov := tensor.View[T](a), tensor.View[T](b), tensor.View[T](out)
		ea, eb, eo := sa/es, sb/es, so/es

		switch {
		case ea == 1 && eb == 1 && eo == 1 && sameStart(a, out):
			ov, bv = ov[:n], bv[:n]
			for i := range ov {
				ov[i] = f(ov[i], bv[i])
			}
		case ea == 1 && eb == 1 && eo == 1:
			av, bv, ov = av[:n], bv[:n], ov[:n]
			for i := range ov {
				ov[i] = f(av[i], bv[i])
			}
		case ea == 1 && eb == 0 && eo == 1:
			s := bv[0]
			av, ov = av[:n], ov[:n]
			for i := range ov {
				ov[i] = f(av[i], s)
			}
		case ea == 0 && eb == 1 && eo == 1:
			s := av[0]
			bv, ov = bv[:n], ov[:n]
			for i := range ov {
				ov[i] = f(s, bv[i])
			}
		default:
			for i := 0; i < n; i++ {
				ov[i*eo] = f(av[i*ea], bv[i*eb])
			}
		}
	}
}

// unaryKernel lifts an element function into a strided kernel.
func unaryKernel[T tensor.Number](f func(x T) T) UnaryKernel {
	es := sizeOf[T]()
	return func(a, out []byte, n, sa, so int) {
		av, ov := tensor.View[T](a), tensor.View[T](out)
		ea, eo := sa/es, so/es

		switch {
		case ea == 1 && eo == 1 && sameStart(a, out):
			ov = ov[:n]
			for i := range ov {
				ov[i] = f(ov[i])
			}
		case ea == 1 && eo == 1:
			av, ov = av[:n], ov[:n]
			for i := range ov {
				ov[i] = f(av[i])
			}
		case ea == 0 && eo == 1:
			v := f(av[0])
			ov = ov[:n]
			for i := range ov {
				ov[i] = v
			}
		default:
			for i := 0; i < n; i++ {
				ov[i*eo] = f(av[i*ea])
			}
		}
	}
}

// clipKernel clamps with x < lo ? lo : (x > hi ? hi : x).
func clipKernel[T tensor.Number]() ClipKernel {
	conv := tensor.Saturator[T]()
	return func(a, out []byte, n, sa, so int, lo, hi float64) {
		l, h := conv(lo), conv(hi)
		unaryKernel(func(x T) T {
			if x < l {
				return l
			}
			if x > h {
				return h
			}
			return x
		})(a, out, n, sa, so)
	}
}

// intBinary returns the element function of op for an integer type.
func intBinary[T tensor.Integer](op binaryOp) func(x, y T) T {
	switch op {
	case opAdd:
		return func(x, y T) T { return x + y }
	case opSub:
		return func(x, y T) T { return x - y }
	case opMul:
		return func(x, y T) T { return x * y }
	case opDiv:
		return intDiv[T]()
	case opPow:
		return intPow[T]()
	case opMaximum:
		return maximum[T]
	case opMinimum:
		return minimum[T]
	default:
		panic("unknown binary op")
	}
}

// floatBinary returns the element function of op for a floating-point type.
func floatBinary[T tensor.Float](op binaryOp) func(x, y T) T {
	switch op {
	case opAdd:
		return func(x, y T) T { return x + y }
	case opSub:
		return func(x, y T) T { return x - y }
	case opMul:
		return func(x, y T) T { return x * y }
	case opDiv:
		return func(x, y T) T { return x / y }
	case opPow:
		return floatPow[T]
	case opMaximum:
		return maximum[T]
	case opMinimum:
		return minimum[T]
	default:
		panic("unknown binary op")
	}
}

// intUnary returns the element function of op for an integer type.
func intUnary[T tensor.Integer](op unaryOp) func(x T) T {
	switch op {
	case opNeg:
		return func(x T) T { return -x }
	case opAbs:
		return intAbs[T]
	case opLog:
		return intLog[T]()
	case opExp:
		return intExp[T]()
	case opSqrt:
		return intSqrt[T]()
	default:
		panic("unknown unary op")
	}
}

// floatUnary returns the element function of op for a floating-point type.
func floatUnary[T tensor.Float](op unaryOp) func(x T) T {
	switch op {
	case opNeg:
		return func(x T) T { return -x }
	case opAbs:
		return floatAbs[T]
	case opLog:
		return floatLog[T]
	case opExp:
		return floatExp[T]
	case opSqrt:
		return floatSqrt[T]
	default:
		panic("unknown unary op")
	}
}

// maximum returns x if x > y, else y. A NaN x yields y.
func maximum[T tensor.Number](x, y T) T {
	if x > y {
		return x
	}
	return y
}

// minimum returns x if x < y, else y. A NaN x yields y.
func minimum[T tensor.Number](x, y T) T {
	if x < y {
		return x
	}
	return y
}

func sizeOf[T tensor.Number]() int {
	return tensor.DTypeOf[T]().Size()
}

// sameStart reports whether two buffers begin at the same byte.
func sameStart(a, b []byte) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}
