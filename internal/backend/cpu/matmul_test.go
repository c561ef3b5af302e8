package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ndarray/internal/parallel"
	"github.com/born-ml/ndarray/internal/tensor"
)

// naiveMatMul is the textbook triple loop over float64 values.
func naiveMatMul(a, b []float64, m, k, n int) []float64 {
	out := make([]float64, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var s float64
			for kk := 0; kk < k; kk++ {
				s += a[i*k+kk] * b[kk*n+j]
			}
			out[i*n+j] = s
		}
	}
	return out
}

func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()
	ctx := newTestContext(t)

	t.Run("Float32", func(t *testing.T) {
		a := fromSlice(t, ctx, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
		b := fromSlice(t, ctx, []float32{7, 8, 9, 10, 11, 12}, 3, 2)
		out := empty(t, ctx, tensor.Float32, 2, 2)

		require.NoError(t, backend.MatMul(out, a, b))
		assert.Equal(t, []float32{58, 64, 139, 154}, values[float32](t, out))
	})

	t.Run("OverwritesOutput", func(t *testing.T) {
		a := fromSlice(t, ctx, []int64{1, 0, 0, 1}, 2, 2)
		b := fromSlice(t, ctx, []int64{5, 6, 7, 8}, 2, 2)
		out := fromSlice(t, ctx, []int64{100, 100, 100, 100}, 2, 2)

		require.NoError(t, backend.MatMul(out, a, b))
		assert.Equal(t, []int64{5, 6, 7, 8}, values[int64](t, out))
	})

	t.Run("Int8Wraps", func(t *testing.T) {
		a := fromSlice(t, ctx, []int8{100, 100}, 1, 2)
		b := fromSlice(t, ctx, []int8{1, 1}, 2, 1)
		out := empty(t, ctx, tensor.Int8, 1, 1)

		require.NoError(t, backend.MatMul(out, a, b))
		assert.Equal(t, []int8{-56}, values[int8](t, out))
	})

	t.Run("TransposedInput", func(t *testing.T) {
		// a^T where a is 3x2, so the operand is 2x3 and non-contiguous.
		a := fromSlice(t, ctx, []float64{1, 4, 2, 5, 3, 6}, 3, 2)
		require.NoError(t, a.Transpose())
		b := fromSlice(t, ctx, []float64{1, 0, 0, 1, 1, 1}, 3, 2)
		out := empty(t, ctx, tensor.Float64, 2, 2)

		used := ctx.Metrics().InUse
		require.NoError(t, backend.MatMul(out, a, b))
		assert.Equal(t, used, ctx.Metrics().InUse, "temporaries released")
		assert.Equal(t, []float64{4, 5, 10, 11}, values[float64](t, out))
	})
}

func TestCPUBackend_MatMulErrors(t *testing.T) {
	backend := newTestBackend()
	ctx := newTestContext(t)

	a := empty(t, ctx, tensor.Float32, 2, 3)
	b := empty(t, ctx, tensor.Float32, 3, 4)
	out := empty(t, ctx, tensor.Float32, 2, 4)
	sq := empty(t, ctx, tensor.Float32, 3, 3)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil", backend.MatMul(nil, a, b), tensor.CodeNullArgument},
		{"dtype", backend.MatMul(out, a, empty(t, ctx, tensor.Float64, 3, 4)), tensor.CodeTypeMismatch},
		{"rank", backend.MatMul(out, a, empty(t, ctx, tensor.Float32, 3)), tensor.CodeShapeMismatch},
		{"inner", backend.MatMul(out, a, empty(t, ctx, tensor.Float32, 2, 4)), tensor.CodeShapeMismatch},
		{"out shape", backend.MatMul(empty(t, ctx, tensor.Float32, 4, 2), a, b), tensor.CodeShapeMismatch},
		{"aliased", backend.MatMul(sq, sq, sq), tensor.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.Equal(t, tt.code, tensor.Code(tt.err))
		})
	}

	t.Run("non-contiguous out", func(t *testing.T) {
		o := empty(t, ctx, tensor.Float32, 4, 2)
		require.NoError(t, o.Transpose())
		err := backend.MatMul(o, a, b)
		assert.ErrorIs(t, err, tensor.ErrNotContiguous)
	})
}

func TestMatMul_ParallelMatchesNaive(t *testing.T) {
	ctx := newTestContext(t)
	const m, k, n = 67, 33, 45

	av := make([]float64, m*k)
	bv := make([]float64, k*n)
	for i := range av {
		av[i] = float64(i%17) - 8
	}
	for i := range bv {
		bv[i] = float64(i%13) * 0.5
	}
	a := fromSlice(t, ctx, av, m, k)
	b := fromSlice(t, ctx, bv, k, n)

	// Small chunks force several goroutines.
	backend := New(WithParallel(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkBytes: 1}))
	out := empty(t, ctx, tensor.Float64, m, n)
	require.NoError(t, backend.MatMul(out, a, b))
	assert.Equal(t, naiveMatMul(av, bv, m, k, n), values[float64](t, out))
}

func BenchmarkMatMul_Float32(b *testing.B) {
	ctx, _ := tensor.NewContext()
	defer ctx.Free()
	const size = 128
	a, _ := tensor.Ones(ctx, tensor.Shape{size, size}, tensor.Float32)
	out, _ := tensor.Zeros(ctx, tensor.Shape{size, size}, tensor.Float32)
	backend := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = backend.MatMul(out, a, a)
	}
}
