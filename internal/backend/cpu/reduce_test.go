package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ndarray/internal/parallel"
	"github.com/born-ml/ndarray/internal/tensor"
)

func TestFullReductions(t *testing.T) {
	backend := newTestBackend()
	ctx := newTestContext(t)

	f := fromSlice(t, ctx, []float64{3, 1, 5, 2, 6, 4}, 6)
	i := fromSlice(t, ctx, []int32{1, 2, 3, 4, 5, 6}, 6)
	fout := empty(t, ctx, tensor.Float64, 1)
	iout := empty(t, ctx, tensor.Int32, 1)
	idx := empty(t, ctx, tensor.Int64, 1)

	require.NoError(t, backend.Sum(fout, f))
	assert.Equal(t, []float64{21}, values[float64](t, fout))

	require.NoError(t, backend.Mean(fout, f))
	assert.Equal(t, []float64{3.5}, values[float64](t, fout))

	require.NoError(t, backend.Mean(iout, i))
	assert.Equal(t, []int32{3}, values[int32](t, iout), "integer mean truncates")

	require.NoError(t, backend.Max(fout, f))
	assert.Equal(t, []float64{6}, values[float64](t, fout))

	require.NoError(t, backend.Min(iout, i))
	assert.Equal(t, []int32{1}, values[int32](t, iout))

	require.NoError(t, backend.Argmax(idx, f))
	assert.Equal(t, []int64{4}, values[int64](t, idx))

	require.NoError(t, backend.Argmin(idx, f))
	assert.Equal(t, []int64{1}, values[int64](t, idx))
}

func TestFullReductions_EdgeCases(t *testing.T) {
	backend := newTestBackend()
	ctx := newTestContext(t)

	t.Run("IntegerSumWraps", func(t *testing.T) {
		a := fromSlice(t, ctx, []int8{100, 100}, 2)
		out := empty(t, ctx, tensor.Int8, 1)
		require.NoError(t, backend.Sum(out, a))
		assert.Equal(t, []int8{-56}, values[int8](t, out))
	})

	t.Run("NaNSkippedByMax", func(t *testing.T) {
		nan := float32(math.NaN())
		a := fromSlice(t, ctx, []float32{nan, 1, 3, nan}, 4)
		out := empty(t, ctx, tensor.Float32, 1)
		idx := empty(t, ctx, tensor.Int64, 1)

		require.NoError(t, backend.Max(out, a))
		assert.Equal(t, []float32{3}, values[float32](t, out))
		require.NoError(t, backend.Argmin(idx, a))
		assert.Equal(t, []int64{1}, values[int64](t, idx))
	})

	t.Run("AllNaNArgmax", func(t *testing.T) {
		nan := math.NaN()
		a := fromSlice(t, ctx, []float64{nan, nan}, 2)
		idx := empty(t, ctx, tensor.Int64, 1)
		require.NoError(t, backend.Argmax(idx, a))
		assert.Equal(t, []int64{0}, values[int64](t, idx))
	})

	t.Run("FirstOccurrence", func(t *testing.T) {
		a := fromSlice(t, ctx, []uint8{2, 9, 9, 0, 0}, 5)
		idx := empty(t, ctx, tensor.Int64, 1)
		require.NoError(t, backend.Argmax(idx, a))
		assert.Equal(t, []int64{1}, values[int64](t, idx))
		require.NoError(t, backend.Argmin(idx, a))
		assert.Equal(t, []int64{3}, values[int64](t, idx))
	})

	t.Run("TypeBounds", func(t *testing.T) {
		a := fromSlice(t, ctx, []int16{math.MinInt16, math.MinInt16}, 2)
		out := empty(t, ctx, tensor.Int16, 1)
		require.NoError(t, backend.Max(out, a))
		assert.Equal(t, []int16{math.MinInt16}, values[int16](t, out))
	})
}

func TestFullReductions_NonContiguous(t *testing.T) {
	backend := newTestBackend()
	ctx := newTestContext(t)

	a := fromSlice(t, ctx, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, 3, 4)
	require.NoError(t, a.Transpose())
	require.False(t, a.IsContiguous())
	out := empty(t, ctx, tensor.Int64, 1)
	idx := empty(t, ctx, tensor.Int64, 1)

	inUse := ctx.Metrics().InUse
	require.NoError(t, backend.Sum(out, a))
	assert.Equal(t, []int64{78}, values[int64](t, out))
	assert.Equal(t, inUse, ctx.Metrics().InUse, "temporary copy must be released")

	// Logical order of the transpose is 1, 5, 9, 2, 6, 10, ...
	require.NoError(t, backend.Argmax(idx, a))
	assert.Equal(t, []int64{11}, values[int64](t, idx))

	v, err := a.Slice(0, 1, 0, 2) // columns 1 and 3 of the original
	require.NoError(t, err)
	require.NoError(t, backend.Sum(out, v))
	assert.Equal(t, []int64{2 + 6 + 10 + 4 + 8 + 12}, values[int64](t, out))
}

func TestAxisReductions(t *testing.T) {
	backend := newTestBackend()
	ctx := newTestContext(t)

	m := fromSlice(t, ctx, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	t.Run("SumAxis0", func(t *testing.T) {
		out := empty(t, ctx, tensor.Float32, 3)
		require.NoError(t, backend.SumAxis(out, m, 0, false))
		assert.Equal(t, []float32{5, 7, 9}, values[float32](t, out))
	})

	t.Run("SumAxis1KeepDim", func(t *testing.T) {
		out := empty(t, ctx, tensor.Float32, 2, 1)
		require.NoError(t, backend.SumAxis(out, m, -1, true))
		assert.Equal(t, []float32{6, 15}, values[float32](t, out))
	})

	t.Run("MeanAxis", func(t *testing.T) {
		out := empty(t, ctx, tensor.Float32, 3)
		require.NoError(t, backend.MeanAxis(out, m, 0, false))
		assert.Equal(t, []float32{2.5, 3.5, 4.5}, values[float32](t, out))

		rows := empty(t, ctx, tensor.Float32, 2)
		require.NoError(t, backend.MeanAxis(rows, m, 1, false))
		assert.Equal(t, []float32{2, 5}, values[float32](t, rows))
	})

	t.Run("MaxMinAxis", func(t *testing.T) {
		a := fromSlice(t, ctx, []int32{3, 9, 1, 7, 2, 8}, 2, 3)
		out := empty(t, ctx, tensor.Int32, 3)
		require.NoError(t, backend.MaxAxis(out, a, 0, false))
		assert.Equal(t, []int32{7, 9, 8}, values[int32](t, out))
		require.NoError(t, backend.MinAxis(out, a, 0, false))
		assert.Equal(t, []int32{3, 2, 1}, values[int32](t, out))

		rows := empty(t, ctx, tensor.Int32, 2, 1)
		require.NoError(t, backend.MaxAxis(rows, a, 1, true))
		assert.Equal(t, []int32{9, 8}, values[int32](t, rows))
	})

	t.Run("ArgAxis", func(t *testing.T) {
		a := fromSlice(t, ctx, []float64{3, 9, 1, 7, 2, 8}, 2, 3)
		out := empty(t, ctx, tensor.Int64, 3)
		require.NoError(t, backend.ArgmaxAxis(out, a, 0, false))
		assert.Equal(t, []int64{1, 0, 1}, values[int64](t, out))

		rows := empty(t, ctx, tensor.Int64, 2)
		require.NoError(t, backend.ArgminAxis(rows, a, 1, false))
		assert.Equal(t, []int64{2, 1}, values[int64](t, rows))
	})

	t.Run("Rank1", func(t *testing.T) {
		a := fromSlice(t, ctx, []int64{4, 5, 6}, 3)
		out := empty(t, ctx, tensor.Int64, 1)
		require.NoError(t, backend.SumAxis(out, a, 0, false))
		assert.Equal(t, []int64{15}, values[int64](t, out))
	})

	t.Run("IntegerMeanAxis", func(t *testing.T) {
		a := fromSlice(t, ctx, []int32{1, 2, 4, 7}, 2, 2)
		out := empty(t, ctx, tensor.Int32, 2)
		require.NoError(t, backend.MeanAxis(out, a, 0, false))
		assert.Equal(t, []int32{2, 4}, values[int32](t, out))
		require.NoError(t, backend.MeanAxis(out, a, 1, false))
		assert.Equal(t, []int32{1, 5}, values[int32](t, out))
	})
}

func TestAxisReductions_3D(t *testing.T) {
	backend := newTestBackend()
	ctx := newTestContext(t)

	data := make([]int64, 24)
	for i := range data {
		data[i] = int64(i)
	}
	a := fromSlice(t, ctx, data, 2, 3, 4)

	// Reference: naive triple loop.
	want := func(axis int) []int64 {
		shape := []int{2, 3, 4}
		var res []int64
		for i := 0; i < shape[0]; i++ {
			for j := 0; j < shape[1]; j++ {
				for k := 0; k < shape[2]; k++ {
					idx := []int{i, j, k}
					if idx[axis] != 0 {
						continue
					}
					var s int64
					for r := 0; r < shape[axis]; r++ {
						idx[axis] = r
						s += data[idx[0]*12+idx[1]*4+idx[2]]
					}
					res = append(res, s)
				}
			}
		}
		return res
	}

	for axis := 0; axis < 3; axis++ {
		shape, err := a.Shape().ReduceAxis(axis, true)
		require.NoError(t, err)
		out := empty(t, ctx, tensor.Int64, shape...)
		require.NoError(t, backend.SumAxis(out, a, axis, true))
		assert.Equal(t, want(axis), values[int64](t, out), "axis %d", axis)
	}

	t.Run("Transposed", func(t *testing.T) {
		tr, err := a.TransposeCopy(2, 0, 1)
		require.NoError(t, err)

		// Summing the permuted copy over its first axis equals summing a over its last.
		out := empty(t, ctx, tensor.Int64, 2, 3)
		require.NoError(t, backend.SumAxis(out, tr, 0, false))
		assert.Equal(t, want(2), values[int64](t, out))

		// Same reduction on a strided view reaches the generic walker.
		require.NoError(t, tr.Transpose(1, 2, 0)) // back to (2, 3, 4), non-contiguous
		require.False(t, tr.IsContiguous())
		out2 := empty(t, ctx, tensor.Int64, 2, 3)
		require.NoError(t, backend.SumAxis(out2, tr, 2, false))
		assert.Equal(t, want(2), values[int64](t, out2))
	})
}

func TestAxisReductions_NaNFirstRow(t *testing.T) {
	backend := newTestBackend()
	ctx := newTestContext(t)
	nan := math.NaN()

	// Same logical data [[NaN, 1], [2, 3]] in two layouts.
	contiguous := fromSlice(t, ctx, []float64{nan, 1, 2, 3}, 2, 2)
	transposed := fromSlice(t, ctx, []float64{nan, 2, 1, 3}, 2, 2)
	require.NoError(t, transposed.Transpose())
	require.False(t, transposed.IsContiguous())

	layouts := map[string]*tensor.Array{"contiguous": contiguous, "transposed": transposed}
	for name, a := range layouts {
		t.Run(name, func(t *testing.T) {
			out := empty(t, ctx, tensor.Float64, 2)
			require.NoError(t, backend.MaxAxis(out, a, 0, false))
			assert.Equal(t, []float64{2, 3}, values[float64](t, out))

			require.NoError(t, backend.MinAxis(out, a, 0, false))
			assert.Equal(t, []float64{2, 1}, values[float64](t, out))
		})
	}

	t.Run("int32 seed", func(t *testing.T) {
		a := fromSlice(t, ctx, []int32{math.MinInt32, math.MaxInt32, math.MinInt32, math.MaxInt32}, 2, 2)
		out := empty(t, ctx, tensor.Int32, 2)
		require.NoError(t, backend.MaxAxis(out, a, 0, false))
		assert.Equal(t, []int32{math.MinInt32, math.MaxInt32}, values[int32](t, out))
		require.NoError(t, backend.MinAxis(out, a, 0, false))
		assert.Equal(t, []int32{math.MinInt32, math.MaxInt32}, values[int32](t, out))
	})
}

func TestReductionErrors(t *testing.T) {
	backend := newTestBackend()
	ctx := newTestContext(t)

	a := empty(t, ctx, tensor.Float32, 2, 3)
	big := empty(t, ctx, tensor.Float32, 2)
	f32 := empty(t, ctx, tensor.Float32, 1)
	i32 := empty(t, ctx, tensor.Int32, 1)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"out too large", backend.Sum(big, a), tensor.CodeShapeMismatch},
		{"dtype", backend.Sum(i32, a), tensor.CodeTypeMismatch},
		{"arg not int64", backend.Argmax(f32, a), tensor.CodeTypeMismatch},
		{"nil input", backend.Max(f32, nil), tensor.CodeNullArgument},
		{"axis range", backend.SumAxis(big, a, 2, false), tensor.CodeInvalidAxis},
		{"axis shape", backend.SumAxis(big, a, 0, false), tensor.CodeShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.Equal(t, tt.code, tensor.Code(tt.err))
		})
	}
}

func TestPairwiseSum(t *testing.T) {
	for _, n := range []int{1, 7, 8, 9, 127, 128, 129, 1000, 4097} {
		x := make([]float64, n)
		var want float64
		for i := range x {
			x[i] = float64(i + 1)
			want += x[i]
		}
		assert.Equal(t, want, pairwiseSum(x, n, 1), "n=%d", n)
	}

	// Strided access reads every other element.
	x := []float32{1, 100, 2, 100, 3, 100}
	assert.Equal(t, float32(6), pairwiseSum(x, 3, 2))
}

func TestPairwiseLeaves(t *testing.T) {
	for _, n := range []int{100, 1000, 12345} {
		for depth := 0; depth <= 3; depth++ {
			leaves := pairwiseLeaves(n, depth, 0, nil)
			off := 0
			for _, l := range leaves {
				assert.Equal(t, off, l.off)
				off += l.n
			}
			assert.Equal(t, n, off)
			assert.LessOrEqual(t, len(leaves), 1<<depth)
		}
	}
	assert.Equal(t, 0, treeDepth(1))
	assert.Equal(t, 2, treeDepth(3))
	assert.Equal(t, 3, treeDepth(64))
}

func TestParallelReductionsMatchSequential(t *testing.T) {
	ctx := newTestContext(t)
	seq := newTestBackend()
	par := New(WithParallel(parallel.Config{Enabled: true, NumWorkers: 8, MinChunkBytes: 4096}))

	n := 100_003
	fdata := make([]float64, n)
	idata := make([]int32, n)
	for i := range fdata {
		fdata[i] = math.Sin(float64(i)) * 1e3
		idata[i] = int32(i*7919) - 1_000_000
	}
	f := fromSlice(t, ctx, fdata, n)
	i := fromSlice(t, ctx, idata, n)
	fw, fg := empty(t, ctx, tensor.Float64, 1), empty(t, ctx, tensor.Float64, 1)
	iw, ig := empty(t, ctx, tensor.Int32, 1), empty(t, ctx, tensor.Int32, 1)

	// Bit-identical: the parallel split follows the pairwise tree.
	require.NoError(t, seq.Sum(fw, f))
	require.NoError(t, par.Sum(fg, f))
	assert.Equal(t, values[float64](t, fw), values[float64](t, fg))

	require.NoError(t, seq.Mean(fw, f))
	require.NoError(t, par.Mean(fg, f))
	assert.Equal(t, values[float64](t, fw), values[float64](t, fg))

	require.NoError(t, seq.Sum(iw, i))
	require.NoError(t, par.Sum(ig, i))
	assert.Equal(t, values[int32](t, iw), values[int32](t, ig))

	require.NoError(t, seq.Max(iw, i))
	require.NoError(t, par.Max(ig, i))
	assert.Equal(t, values[int32](t, iw), values[int32](t, ig))

	require.NoError(t, seq.Min(fw, f))
	require.NoError(t, par.Min(fg, f))
	assert.Equal(t, values[float64](t, fw), values[float64](t, fg))

	// Axis fast path splits columns.
	m := fromSlice(t, ctx, fdata[:100_000], 100, 1000)
	cw, cg := empty(t, ctx, tensor.Float64, 1000), empty(t, ctx, tensor.Float64, 1000)
	require.NoError(t, seq.SumAxis(cw, m, 0, false))
	require.NoError(t, par.SumAxis(cg, m, 0, false))
	assert.Equal(t, values[float64](t, cw), values[float64](t, cg))
}

func BenchmarkSum_Float64(b *testing.B) {
	ctx, _ := tensor.NewContext()
	defer ctx.Free()
	backend := New()

	x, _ := tensor.Ones(ctx, tensor.Shape{1 << 20}, tensor.Float64)
	out, _ := tensor.Zeros(ctx, tensor.Shape{1}, tensor.Float64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = backend.Sum(out, x)
	}
}

func BenchmarkSumAxis0_Float32(b *testing.B) {
	ctx, _ := tensor.NewContext()
	defer ctx.Free()
	backend := New()

	x, _ := tensor.Ones(ctx, tensor.Shape{512, 512}, tensor.Float32)
	out, _ := tensor.Zeros(ctx, tensor.Shape{512}, tensor.Float32)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = backend.SumAxis(out, x, 0, false)
	}
}
