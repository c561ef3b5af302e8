package cpu

import (
	"unsafe"

	xcpu "golang.org/x/sys/cpu"

	"github.com/born-ml/ndarray/internal/parallel"
	"github.com/born-ml/ndarray/internal/tensor"
)

// checkReduceOut validates dtypes for op: arg reductions write Int64, the
// others write the input dtype.
func checkReduceOut(op reduceOp, name string, out, a *tensor.Array) error {
	if op.isArg() {
		if out.DType() != tensor.Int64 {
			return tensor.NewOpError(name, tensor.ErrTypeMismatch, "index output must be int64, got %s", out.DType())
		}
		return nil
	}
	return sameDType(name, out, a)
}

// reduceAll reduces every element of a into the single element of out.
// A non-contiguous input is materialized into a temporary that is released
// before returning.
func (cpu *CPUBackend) reduceAll(op reduceOp, out, a *tensor.Array) error {
	name := reduceOpNames[op]
	if err := validate(out, a); err != nil {
		return cpu.fail(name, err, out, a)
	}
	if err := checkReduceOut(op, name, out, a); err != nil {
		return cpu.fail(name, err, out)
	}
	if out.Size() != 1 {
		return cpu.fail(name, tensor.NewOpError(name, tensor.ErrShapeMismatch,
			"out must hold one element, has %d", out.Size()), out)
	}

	src := a
	if !a.IsContiguous() {
		ctx := a.Context()
		cp := ctx.Checkpoint()
		tmp, err := a.Copy()
		if err != nil {
			return cpu.fail(name, err, out)
		}
		defer func() { _ = ctx.Restore(cp) }()
		src = tmp
	}

	cpu.reduceFlat(op, out.Bytes(), src.Bytes(), src.Size(), src.DType())
	return nil
}

// reduceFlat reduces n contiguous elements of a into out.
func (cpu *CPUBackend) reduceFlat(op reduceOp, out, a []byte, n int, dt tensor.DataType) {
	es := dt.Size()
	chunks := parallel.Chunks(n, es, cpu.cfg)

	switch op {
	case opSum, opMean:
		switch {
		case chunks > 1 && dt.IsFloat():
			treeSumKernels[dt](a, out, n, cpu.cfg)
		case chunks > 1:
			cpu.chunked(reduceKernels[opSum][dt], a, out, n, es, chunks)
		default:
			reduceKernels[opSum][dt](a, out, n, es)
		}
		if op == opMean {
			countKernels[dt](out, 1, n)
		}
	case opMax, opMin:
		if chunks > 1 {
			cpu.chunked(reduceKernels[op][dt], a, out, n, es, chunks)
			return
		}
		reduceKernels[op][dt](a, out, n, es)
	default:
		reduceKernels[op][dt](a, out, n, es)
	}
}

// partial holds one chunk result on its own cache line.
type partial struct {
	bits uint64
	_    xcpu.CacheLinePad
}

var partialSize = int(unsafe.Sizeof(partial{}))

func (p *partial) bytes() []byte {
	//nolint:gosec // fixed 8-byte view of an aligned uint64
	return unsafe.Slice((*byte)(unsafe.Pointer(&p.bits)), 8)
}

// chunked reduces contiguous chunks concurrently, then reduces the partials
// with the same kernel. Only valid for order-independent kernels: integer
// sums (wrapping addition is associative), max and min.
func (cpu *CPUBackend) chunked(k ReduceKernel, a, out []byte, n, es, chunks int) {
	parts := make([]partial, chunks)
	parallel.ForEach(chunks, func(i int) {
		lo, hi := parallel.Bounds(n, chunks, i)
		k(a[lo*es:], parts[i].bytes(), hi-lo, es)
	}, cpu.cfg)

	//nolint:gosec // byte view of the partials slice, length derived from len(parts)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(parts))), len(parts)*partialSize)
	k(raw, out, chunks, partialSize)
}

// reduceAxis reduces a along axis into out.
func (cpu *CPUBackend) reduceAxis(op reduceOp, out, a *tensor.Array, axis int, keepDim bool) error {
	name := reduceOpNames[op] + "_axis"
	if err := validate(out, a); err != nil {
		return cpu.fail(name, err, out, a)
	}
	if err := checkReduceOut(op, name, out, a); err != nil {
		return cpu.fail(name, err, out)
	}

	ax, err := tensor.NormalizeAxis(axis, a.Rank())
	if err != nil {
		return cpu.fail(name, err, out)
	}
	want, err := a.Shape().ReduceAxis(ax, keepDim)
	if err != nil {
		return cpu.fail(name, err, out)
	}
	if !want.Equal(out.Shape()) {
		return cpu.fail(name, tensor.NewOpError(name, tensor.ErrShapeMismatch,
			"out %v, want %v", out.Shape(), want), out)
	}

	if !op.isArg() && cpu.reduceAxisFast(op, out, a, ax) {
		return nil
	}
	cpu.reduceAxisGeneric(op, out, a, ax, keepDim)
	return nil
}

// reduceAxisFast handles inputs whose dimensions after axis form one
// contiguous block of more than one element and whose dimensions before axis
// collapse to a single stride. Each output block is folded row by row.
// It reports false, touching nothing, when the layout does not qualify.
func (cpu *CPUBackend) reduceAxisFast(op reduceOp, out, a *tensor.Array, ax int) bool {
	if !out.IsContiguous() {
		return false
	}
	shape, strides, es := a.Shape(), a.Strides(), a.ElemSize()

	inner := shape[ax+1:].NumElements()
	if inner <= 1 || !tensor.IsCContiguous(shape[ax+1:], strides[ax+1:], es) {
		return false
	}
	outerShape, outerSt := tensor.CollapseDims(shape[:ax], strides[:ax])
	if len(outerShape) != 1 {
		return false
	}
	outer, outerStride := outerShape[0], outerSt[0][0]

	dt := a.DType()
	nrows, rowStride := shape[ax], strides[ax]
	ab, ob := a.Bytes(), out.Bytes()
	blockBytes := inner * es

	var fold RowKernel
	if op == opMax || op == opMin {
		fold = rowKernels[op][dt]
	} else {
		fold = rowKernels[opSum][dt]
	}

	for o := 0; o < outer; o++ {
		base := ab[o*outerStride:]
		dst := ob[o*blockBytes : (o+1)*blockBytes]
		// Max and min start from the type's extreme so NaN rows are skipped
		// exactly as in the strided kernels.
		if seed := rowSeeds[op][dt]; seed != nil {
			seed(dst, inner)
		} else {
			clear(dst)
		}
		parallel.For(inner, es*nrows, func(lo, hi int) {
			fold(base[lo*es:], rowStride, nrows, dst[lo*es:], hi-lo)
		}, cpu.cfg)
	}

	if op == opMean {
		countKernels[dt](ob, out.Size(), nrows)
	}
	return true
}

// reduceAxisGeneric walks every index of the non-reduced dimensions and runs
// the reduction kernel along axis.
func (cpu *CPUBackend) reduceAxisGeneric(op reduceOp, out, a *tensor.Array, ax int, keepDim bool) {
	shape, strides := a.Shape(), a.Strides()
	outStrides := out.Strides()

	outerShape := make(tensor.Shape, 0, len(shape)-1)
	inStr := make([]int, 0, len(shape)-1)
	outStr := make([]int, 0, len(shape)-1)
	for d := range shape {
		if d == ax {
			continue
		}
		outerShape = append(outerShape, shape[d])
		inStr = append(inStr, strides[d])
		od := d
		if !keepDim && d > ax {
			od = d - 1
		}
		outStr = append(outStr, outStrides[od])
	}

	cs, st := tensor.CollapseDims(outerShape, inStr, outStr)
	k := reduceKernels[op][a.DType()]
	n, sa := shape[ax], strides[ax]
	ab, ob := a.Bytes(), out.Bytes()

	forEachIndex(cs, st, func(offs *[maxOperands]int) {
		k(ab[offs[0]:], ob[offs[1]:], n, sa)
	})
}

// Sum reduces all elements into out. Floats use pairwise summation; integers
// wrap.
func (cpu *CPUBackend) Sum(out, a *tensor.Array) error { return cpu.reduceAll(opSum, out, a) }

// Mean reduces all elements into out. Integer means truncate toward zero.
func (cpu *CPUBackend) Mean(out, a *tensor.Array) error { return cpu.reduceAll(opMean, out, a) }

// Max reduces all elements into out. NaN elements are skipped.
func (cpu *CPUBackend) Max(out, a *tensor.Array) error { return cpu.reduceAll(opMax, out, a) }

// Min reduces all elements into out. NaN elements are skipped.
func (cpu *CPUBackend) Min(out, a *tensor.Array) error { return cpu.reduceAll(opMin, out, a) }

// Argmax writes the flat logical index of the first maximum into the Int64 out.
func (cpu *CPUBackend) Argmax(out, a *tensor.Array) error { return cpu.reduceAll(opArgmax, out, a) }

// Argmin writes the flat logical index of the first minimum into the Int64 out.
func (cpu *CPUBackend) Argmin(out, a *tensor.Array) error { return cpu.reduceAll(opArgmin, out, a) }

// SumAxis sums along axis. Negative axes count from the end.
func (cpu *CPUBackend) SumAxis(out, a *tensor.Array, axis int, keepDim bool) error {
	return cpu.reduceAxis(opSum, out, a, axis, keepDim)
}

// MeanAxis averages along axis.
func (cpu *CPUBackend) MeanAxis(out, a *tensor.Array, axis int, keepDim bool) error {
	return cpu.reduceAxis(opMean, out, a, axis, keepDim)
}

// MaxAxis takes the maximum along axis.
func (cpu *CPUBackend) MaxAxis(out, a *tensor.Array, axis int, keepDim bool) error {
	return cpu.reduceAxis(opMax, out, a, axis, keepDim)
}

// MinAxis takes the minimum along axis.
func (cpu *CPUBackend) MinAxis(out, a *tensor.Array, axis int, keepDim bool) error {
	return cpu.reduceAxis(opMin, out, a, axis, keepDim)
}

// ArgmaxAxis writes the index along axis of the first maximum into the Int64 out.
func (cpu *CPUBackend) ArgmaxAxis(out, a *tensor.Array, axis int, keepDim bool) error {
	return cpu.reduceAxis(opArgmax, out, a, axis, keepDim)
}

// ArgminAxis writes the index along axis of the first minimum into the Int64 out.
func (cpu *CPUBackend) ArgminAxis(out, a *tensor.Array, axis int, keepDim bool) error {
	return cpu.reduceAxis(opArgmin, out, a, axis, keepDim)
}
