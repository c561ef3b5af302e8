// Package cpu implements the CPU backend: dtype-specialized kernels driven by
// a broadcasting, stride-aware dispatcher.
package cpu

import (
	"github.com/born-ml/ndarray/internal/logging"
	"github.com/born-ml/ndarray/internal/parallel"
	"github.com/born-ml/ndarray/internal/tensor"
)

// CPUBackend implements tensor.Backend on the host CPU.
type CPUBackend struct {
	cfg    parallel.Config
	logger *logging.Logger
}

var _ tensor.Backend = (*CPUBackend)(nil)

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithParallel sets the data-parallel configuration.
func WithParallel(cfg parallel.Config) Option {
	return func(b *CPUBackend) {
		b.cfg = cfg
	}
}

// WithLogger sets the logger used for failures on arrays without a live context.
func WithLogger(l *logging.Logger) Option {
	return func(b *CPUBackend) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a new CPU backend. Parallelism defaults to parallel.DefaultConfig.
func New(opts ...Option) *CPUBackend {
	b := &CPUBackend{
		cfg:    parallel.DefaultConfig(),
		logger: logging.NoopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger.Debug("cpu backend ready",
		"parallel", b.cfg.Enabled,
		"workers", b.cfg.NumWorkers,
		"features", Capabilities().Features(),
	)
	return b
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Parallel returns the data-parallel configuration.
func (cpu *CPUBackend) Parallel() parallel.Config {
	return cpu.cfg
}

// fail logs err through the first live context among arrays and returns it
// as a *tensor.OpError.
func (cpu *CPUBackend) fail(op string, err error, arrays ...*tensor.Array) error {
	for _, a := range arrays {
		if a != nil && a.Context() != nil {
			return a.Context().Fail(op, err)
		}
	}
	oe := tensor.NewOpError(op, err, "")
	cpu.logger.LogFailure(op, oe)
	return oe
}

// validate checks every array for nil and a released context.
func validate(arrays ...*tensor.Array) error {
	for _, a := range arrays {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// sameDType checks that every array has the dtype of out.
func sameDType(op string, out *tensor.Array, arrays ...*tensor.Array) error {
	for _, a := range arrays {
		if a.DType() != out.DType() {
			return tensor.NewOpError(op, tensor.ErrTypeMismatch, "%s vs %s", a.DType(), out.DType())
		}
	}
	return nil
}

// operand is an input read as the output shape.
type operand struct {
	data    []byte
	strides []int // byte strides at output rank, 0 where broadcast
	flat    bool  // contiguous and as large as the output
	scalar  bool  // a single element
}

func arrayOperand(a *tensor.Array, outShape tensor.Shape) operand {
	return operand{
		data:    a.Bytes(),
		strides: computeBroadcastStrides(a, outShape),
		flat:    a.IsContiguous() && a.Size() == outShape.NumElements(),
		scalar:  a.Size() == 1,
	}
}

func scalarOperand(dtype tensor.DataType, v float64, rank int) operand {
	return operand{
		data:    tensor.ScalarBytes(dtype, v),
		strides: make([]int, rank),
		scalar:  true,
	}
}

// linear reports whether element i of the output reads element i*step.
func (o operand) linear() bool { return o.flat || o.scalar }

func (o operand) step(es int) int {
	if o.flat {
		return es
	}
	return 0
}

// runBinary drives k over out. Flat and scalar-broadcast operands into a
// contiguous output are split across goroutines; anything else walks the
// sorted, collapsed geometry with k applied to the innermost axis.
func (cpu *CPUBackend) runBinary(k BinaryKernel, out *tensor.Array, x, y operand) {
	es, n, ob := out.ElemSize(), out.Size(), out.Bytes()

	if out.IsContiguous() && x.linear() && y.linear() {
		sx, sy := x.step(es), y.step(es)
		parallel.For(n, es, func(lo, hi int) {
			k(x.data[lo*sx:], y.data[lo*sy:], ob[lo*es:], hi-lo, sx, sy, es)
		}, cpu.cfg)
		return
	}

	shape, st := iterGeometry(out.Shape(), x.strides, y.strides, out.Strides())
	last := len(shape) - 1
	inner, sx, sy, so := shape[last], st[0][last], st[1][last], st[2][last]
	forEachIndex(shape[:last], outerStrides(st), func(offs *[maxOperands]int) {
		k(x.data[offs[0]:], y.data[offs[1]:], ob[offs[2]:], inner, sx, sy, so)
	})
}

// runUnary drives k over out reading x.
func (cpu *CPUBackend) runUnary(k UnaryKernel, out *tensor.Array, x operand) {
	es, n, ob := out.ElemSize(), out.Size(), out.Bytes()

	if out.IsContiguous() && x.linear() {
		sx := x.step(es)
		parallel.For(n, es, func(lo, hi int) {
			k(x.data[lo*sx:], ob[lo*es:], hi-lo, sx, es)
		}, cpu.cfg)
		return
	}

	shape, st := iterGeometry(out.Shape(), x.strides, out.Strides())
	last := len(shape) - 1
	inner, sx, so := shape[last], st[0][last], st[1][last]
	forEachIndex(shape[:last], outerStrides(st), func(offs *[maxOperands]int) {
		k(x.data[offs[0]:], ob[offs[1]:], inner, sx, so)
	})
}

// binary validates and dispatches a broadcasting binary operation.
func (cpu *CPUBackend) binary(op binaryOp, out, a, b *tensor.Array) error {
	name := binaryOpNames[op]
	if err := validate(out, a, b); err != nil {
		return cpu.fail(name, err, out, a, b)
	}
	if err := sameDType(name, out, a, b); err != nil {
		return cpu.fail(name, err, out)
	}

	shape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		return cpu.fail(name, err, out)
	}
	if !shape.Equal(out.Shape()) {
		return cpu.fail(name, tensor.NewOpError(name, tensor.ErrShapeMismatch,
			"out %v, broadcast %v", out.Shape(), shape), out)
	}

	cpu.runBinary(binaryKernels[op][out.DType()], out, arrayOperand(a, shape), arrayOperand(b, shape))
	return nil
}

// Add computes out = a + b with broadcasting. Integer overflow wraps.
func (cpu *CPUBackend) Add(out, a, b *tensor.Array) error { return cpu.binary(opAdd, out, a, b) }

// Sub computes out = a - b with broadcasting.
func (cpu *CPUBackend) Sub(out, a, b *tensor.Array) error { return cpu.binary(opSub, out, a, b) }

// Mul computes out = a * b with broadcasting.
func (cpu *CPUBackend) Mul(out, a, b *tensor.Array) error { return cpu.binary(opMul, out, a, b) }

// Div computes out = a / b with broadcasting. Integer division truncates and
// saturates on a zero divisor.
func (cpu *CPUBackend) Div(out, a, b *tensor.Array) error { return cpu.binary(opDiv, out, a, b) }

// Pow computes out = a ** b with broadcasting.
func (cpu *CPUBackend) Pow(out, a, b *tensor.Array) error { return cpu.binary(opPow, out, a, b) }

// Maximum computes the element-wise maximum with broadcasting.
func (cpu *CPUBackend) Maximum(out, a, b *tensor.Array) error {
	return cpu.binary(opMaximum, out, a, b)
}

// Minimum computes the element-wise minimum with broadcasting.
func (cpu *CPUBackend) Minimum(out, a, b *tensor.Array) error {
	return cpu.binary(opMinimum, out, a, b)
}

// AddInPlace computes a += b. b must broadcast to the shape of a.
func (cpu *CPUBackend) AddInPlace(a, b *tensor.Array) error { return cpu.binary(opAdd, a, a, b) }

// SubInPlace computes a -= b.
func (cpu *CPUBackend) SubInPlace(a, b *tensor.Array) error { return cpu.binary(opSub, a, a, b) }

// MulInPlace computes a *= b.
func (cpu *CPUBackend) MulInPlace(a, b *tensor.Array) error { return cpu.binary(opMul, a, a, b) }

// DivInPlace computes a /= b.
func (cpu *CPUBackend) DivInPlace(a, b *tensor.Array) error { return cpu.binary(opDiv, a, a, b) }

// PowInPlace computes a **= b.
func (cpu *CPUBackend) PowInPlace(a, b *tensor.Array) error { return cpu.binary(opPow, a, a, b) }

// MaximumInPlace computes a = max(a, b).
func (cpu *CPUBackend) MaximumInPlace(a, b *tensor.Array) error {
	return cpu.binary(opMaximum, a, a, b)
}

// MinimumInPlace computes a = min(a, b).
func (cpu *CPUBackend) MinimumInPlace(a, b *tensor.Array) error {
	return cpu.binary(opMinimum, a, a, b)
}
