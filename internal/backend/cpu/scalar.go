package cpu

import (
	"github.com/born-ml/ndarray/internal/tensor"
)

// Scalar operations - element-wise operations with a scalar value. The scalar
// is converted to the array dtype with saturation (truncating for integers)
// and read as a zero-stride operand.

func (cpu *CPUBackend) scalar(op binaryOp, name string, out, a *tensor.Array, s float64) error {
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

	shape := out.Shape()
	cpu.runBinary(binaryKernels[op][out.DType()], out,
		arrayOperand(a, shape), scalarOperand(out.DType(), s, len(shape)))
	return nil
}

// AddScalar computes out = a + s.
func (cpu *CPUBackend) AddScalar(out, a *tensor.Array, s float64) error {
	return cpu.scalar(opAdd, "add_scalar", out, a, s)
}

// SubScalar computes out = a - s.
func (cpu *CPUBackend) SubScalar(out, a *tensor.Array, s float64) error {
	return cpu.scalar(opSub, "sub_scalar", out, a, s)
}

// MulScalar computes out = a * s.
func (cpu *CPUBackend) MulScalar(out, a *tensor.Array, s float64) error {
	return cpu.scalar(opMul, "mul_scalar", out, a, s)
}

// DivScalar computes out = a / s. Integer division by a zero scalar saturates.
func (cpu *CPUBackend) DivScalar(out, a *tensor.Array, s float64) error {
	return cpu.scalar(opDiv, "div_scalar", out, a, s)
}

// AddScalarInPlace computes a += s.
func (cpu *CPUBackend) AddScalarInPlace(a *tensor.Array, s float64) error {
	return cpu.scalar(opAdd, "add_scalar", a, a, s)
}

// SubScalarInPlace computes a -= s.
func (cpu *CPUBackend) SubScalarInPlace(a *tensor.Array, s float64) error {
	return cpu.scalar(opSub, "sub_scalar", a, a, s)
}

// MulScalarInPlace computes a *= s.
func (cpu *CPUBackend) MulScalarInPlace(a *tensor.Array, s float64) error {
	return cpu.scalar(opMul, "mul_scalar", a, a, s)
}

// DivScalarInPlace computes a /= s.
func (cpu *CPUBackend) DivScalarInPlace(a *tensor.Array, s float64) error {
	return cpu.scalar(opDiv, "div_scalar", a, a, s)
}
