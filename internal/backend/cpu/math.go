package cpu

import (
	"github.com/born-ml/ndarray/internal/tensor"
)

func (cpu *CPUBackend) unary(name string, k func(dt tensor.DataType) UnaryKernel, out, a *tensor.Array) error {
	if err := validate(out, a); err != nil {
		return cpu.fail(name, err, out, a)
	}
	if err := sameDType(name, out, a); err != nil {
		return cpu.fail(name, err, out)
	}
	if !a.Shape().Equal(out.Shape()) {
		return cpu.fail(name, tensor.NewOpError(name, tensor.ErrShapeMismatch,
			"out %v, input %v", out.Shape(), a.Shape()), out)
	}

	cpu.runUnary(k(out.DType()), out, arrayOperand(a, out.Shape()))
	return nil
}

func (cpu *CPUBackend) unaryOp(op unaryOp, out, a *tensor.Array) error {
	return cpu.unary(unaryOpNames[op], func(dt tensor.DataType) UnaryKernel {
		return unaryKernels[op][dt]
	}, out, a)
}

// Neg computes out = -a. Integer negation wraps.
func (cpu *CPUBackend) Neg(out, a *tensor.Array) error { return cpu.unaryOp(opNeg, out, a) }

// Abs computes out = |a|. The minimum of a signed type maps to itself and
// unsigned inputs are copied.
func (cpu *CPUBackend) Abs(out, a *tensor.Array) error { return cpu.unaryOp(opAbs, out, a) }

// Log computes the natural logarithm. Integer inputs <= 0 give 0.
func (cpu *CPUBackend) Log(out, a *tensor.Array) error { return cpu.unaryOp(opLog, out, a) }

// Exp computes e**a. Integer results saturate.
func (cpu *CPUBackend) Exp(out, a *tensor.Array) error { return cpu.unaryOp(opExp, out, a) }

// Sqrt computes the square root. Negative integers give 0.
func (cpu *CPUBackend) Sqrt(out, a *tensor.Array) error { return cpu.unaryOp(opSqrt, out, a) }

// Clip clamps a into [lo, hi]; bounds are saturated to the dtype first.
// Elements below lo take lo before hi is considered.
func (cpu *CPUBackend) Clip(out, a *tensor.Array, lo, hi float64) error {
	return cpu.unary("clip", func(dt tensor.DataType) UnaryKernel {
		ck := clipKernels[dt]
		return func(x, o []byte, n, sx, so int) {
			ck(x, o, n, sx, so, lo, hi)
		}
	}, out, a)
}

// NegInPlace computes a = -a.
func (cpu *CPUBackend) NegInPlace(a *tensor.Array) error { return cpu.unaryOp(opNeg, a, a) }

// AbsInPlace computes a = |a|.
func (cpu *CPUBackend) AbsInPlace(a *tensor.Array) error { return cpu.unaryOp(opAbs, a, a) }

// LogInPlace computes a = log(a).
func (cpu *CPUBackend) LogInPlace(a *tensor.Array) error { return cpu.unaryOp(opLog, a, a) }

// ExpInPlace computes a = exp(a).
func (cpu *CPUBackend) ExpInPlace(a *tensor.Array) error { return cpu.unaryOp(opExp, a, a) }

// SqrtInPlace computes a = sqrt(a).
func (cpu *CPUBackend) SqrtInPlace(a *tensor.Array) error { return cpu.unaryOp(opSqrt, a, a) }

// ClipInPlace clamps a into [lo, hi].
func (cpu *CPUBackend) ClipInPlace(a *tensor.Array, lo, hi float64) error {
	return cpu.Clip(a, a, lo, hi)
}
