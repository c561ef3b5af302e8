package tensor

// Backend defines the operations a compute backend provides over arrays.
//
// Every operation writes into a caller-provided output array bound to a
// context; nothing allocates except the temporary materialization of a
// non-contiguous input to a full reduction. Validation happens before any
// write, so a failed call leaves out untouched.
//
// InPlace variants use their first operand as the output.
type Backend interface {
	// Name returns the backend name.
	Name() string

	// Element-wise binary operations with broadcasting. out must have the broadcast shape.
	Add(out, a, b *Array) error     // a + b.
	Sub(out, a, b *Array) error     // a - b.
	Mul(out, a, b *Array) error     // a * b.
	Div(out, a, b *Array) error     // a / b.
	Pow(out, a, b *Array) error     // a ** b.
	Maximum(out, a, b *Array) error // Element-wise max.
	Minimum(out, a, b *Array) error // Element-wise min.

	AddInPlace(a, b *Array) error
	SubInPlace(a, b *Array) error
	MulInPlace(a, b *Array) error
	DivInPlace(a, b *Array) error
	PowInPlace(a, b *Array) error
	MaximumInPlace(a, b *Array) error
	MinimumInPlace(a, b *Array) error

	// Scalar operations. The scalar is converted to the array dtype.
	AddScalar(out, a *Array, s float64) error
	SubScalar(out, a *Array, s float64) error
	MulScalar(out, a *Array, s float64) error
	DivScalar(out, a *Array, s float64) error

	AddScalarInPlace(a *Array, s float64) error
	SubScalarInPlace(a *Array, s float64) error
	MulScalarInPlace(a *Array, s float64) error
	DivScalarInPlace(a *Array, s float64) error

	// Unary operations.
	Neg(out, a *Array) error
	Abs(out, a *Array) error
	Log(out, a *Array) error
	Exp(out, a *Array) error
	Sqrt(out, a *Array) error
	Clip(out, a *Array, lo, hi float64) error

	NegInPlace(a *Array) error
	AbsInPlace(a *Array) error
	LogInPlace(a *Array) error
	ExpInPlace(a *Array) error
	SqrtInPlace(a *Array) error
	ClipInPlace(a *Array, lo, hi float64) error

	// Matrix product of 2D arrays: (M, K) @ (K, N) -> (M, N). out must be
	// contiguous and distinct from the inputs.
	MatMul(out, a, b *Array) error

	// Full reductions into a single-element output.
	Sum(out, a *Array) error
	Mean(out, a *Array) error
	Max(out, a *Array) error
	Min(out, a *Array) error
	Argmax(out, a *Array) error // out is Int64.
	Argmin(out, a *Array) error // out is Int64.

	// Axis reductions. out must have shape a.Shape().ReduceAxis(axis, keepDim).
	SumAxis(out, a *Array, axis int, keepDim bool) error
	MeanAxis(out, a *Array, axis int, keepDim bool) error
	MaxAxis(out, a *Array, axis int, keepDim bool) error
	MinAxis(out, a *Array, axis int, keepDim bool) error
	ArgmaxAxis(out, a *Array, axis int, keepDim bool) error // out is Int64.
	ArgminAxis(out, a *Array, axis int, keepDim bool) error // out is Int64.
}
