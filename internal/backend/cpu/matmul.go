package cpu

import (
	"github.com/born-ml/ndarray/internal/parallel"
	"github.com/born-ml/ndarray/internal/tensor"
)

// MatMulKernel computes rows of out = a @ b for C-contiguous operands, where
// a holds rows x k elements, b holds k x n and out holds rows x n.
type MatMulKernel func(a, b, out []byte, rows, k, n int)

var matmulKernels [tensor.NumDataTypes]MatMulKernel

func init() {
	matmulKernels[tensor.Int8] = matmulKernel[int8]
	matmulKernels[tensor.Int16] = matmulKernel[int16]
	matmulKernels[tensor.Int32] = matmulKernel[int32]
	matmulKernels[tensor.Int64] = matmulKernel[int64]
	matmulKernels[tensor.Uint8] = matmulKernel[uint8]
	matmulKernels[tensor.Uint16] = matmulKernel[uint16]
	matmulKernels[tensor.Uint32] = matmulKernel[uint32]
	matmulKernels[tensor.Uint64] = matmulKernel[uint64]
	matmulKernels[tensor.Float32] = matmulKernel[float32]
	matmulKernels[tensor.Float64] = matmulKernel[float64]
}

// matmulKernel uses the i-k-j order so the inner loop streams a row of b
// and a row of out. Integer products and sums wrap in T.
func matmulKernel[T tensor.Number](a, b, out []byte, rows, k, n int) {
	av := tensor.View[T](a)[:rows*k]
	bv := tensor.View[T](b)[:k*n]
	ov := tensor.View[T](out)[:rows*n]
	clear(ov)

	for i := 0; i < rows; i++ {
		orow := ov[i*n : (i+1)*n]
		for kk := 0; kk < k; kk++ {
			aik := av[i*k+kk]
			brow := bv[kk*n : (kk+1)*n]
			for j := range orow {
				orow[j] += aik * brow[j]
			}
		}
	}
}

// MatMul computes out = a @ b for 2D arrays: (M, K) @ (K, N) -> (M, N).
// out must be contiguous and must not share data with a or b. Non-contiguous
// inputs are materialized into temporaries released before returning.
func (cpu *CPUBackend) MatMul(out, a, b *tensor.Array) error {
	const name = "matmul"
	if err := validate(out, a, b); err != nil {
		return cpu.fail(name, err, out, a, b)
	}
	if err := sameDType(name, out, a, b); err != nil {
		return cpu.fail(name, err, out)
	}
	if a.Rank() != 2 || b.Rank() != 2 || out.Rank() != 2 {
		return cpu.fail(name, tensor.NewOpError(name, tensor.ErrShapeMismatch,
			"ranks %d, %d, %d; all must be 2", a.Rank(), b.Rank(), out.Rank()), out)
	}
	m, k, n := a.Dim(0), a.Dim(1), b.Dim(1)
	if b.Dim(0) != k {
		return cpu.fail(name, tensor.NewOpError(name, tensor.ErrShapeMismatch,
			"inner dimensions differ: %v @ %v", a.Shape(), b.Shape()), out)
	}
	if out.Dim(0) != m || out.Dim(1) != n {
		return cpu.fail(name, tensor.NewOpError(name, tensor.ErrShapeMismatch,
			"out %v, want [%d %d]", out.Shape(), m, n), out)
	}
	if !out.IsContiguous() {
		return cpu.fail(name, tensor.NewOpError(name, tensor.ErrNotContiguous, "out %s", out), out)
	}
	if tensor.SameData(out, a) || tensor.SameData(out, b) {
		return cpu.fail(name, tensor.NewOpError(name, tensor.ErrInvalidArgument, "out aliases an input"), out)
	}

	av, releaseA, err := contiguousInput(a)
	if err != nil {
		return cpu.fail(name, err, out)
	}
	defer releaseA()
	bv, releaseB, err := contiguousInput(b)
	if err != nil {
		return cpu.fail(name, err, out)
	}
	defer releaseB()

	kern := matmulKernels[out.DType()]
	es := out.ElemSize()
	ab, bb, ob := av.Bytes(), bv.Bytes(), out.Bytes()
	parallel.For(m, k*n*es, func(lo, hi int) {
		kern(ab[lo*k*es:], bb, ob[lo*n*es:], hi-lo, k, n)
	}, cpu.cfg)
	return nil
}

// contiguousInput returns a, or a contiguous copy of it in a's context
// together with the func that releases the copy.
func contiguousInput(a *tensor.Array) (*tensor.Array, func(), error) {
	if a.IsContiguous() {
		return a, func() {}, nil
	}
	ctx := a.Context()
	cp := ctx.Checkpoint()
	c, err := a.Copy()
	if err != nil {
		_ = ctx.Restore(cp)
		return nil, nil, err
	}
	return c, func() { _ = ctx.Restore(cp) }, nil
}
