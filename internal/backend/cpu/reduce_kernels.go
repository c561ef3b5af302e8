package cpu

import (
	"math"

	"github.com/born-ml/ndarray/internal/parallel"
	"github.com/born-ml/ndarray/internal/tensor"
)

type (
	// ReduceKernel reduces n elements of a (byte stride sa) into the first
	// element of out. Arg kernels write an int64 index.
	ReduceKernel func(a, out []byte, n, sa int)

	// RowKernel folds nrows rows of ncols contiguous elements, rowStride bytes
	// apart, into dst element by element.
	RowKernel func(base []byte, rowStride, nrows int, dst []byte, ncols int)

	// FillKernel sets n contiguous elements of dst to a fixed value.
	FillKernel func(dst []byte, n int)

	// CountKernel divides n contiguous elements by count.
	CountKernel func(data []byte, n, count int)

	// TreeSumKernel computes the pairwise sum of n contiguous floats,
	// evaluating the top of the summation tree in parallel.
	TreeSumKernel func(a, out []byte, n int, cfg parallel.Config)
)

type reduceOp int

const (
	opSum reduceOp = iota
	opMean
	opMax
	opMin
	opArgmax
	opArgmin
	numReduceOps
)

var reduceOpNames = [numReduceOps]string{"sum", "mean", "max", "min", "argmax", "argmin"}

// isArg reports whether op produces Int64 indices.
func (op reduceOp) isArg() bool { return op == opArgmax || op == opArgmin }

// pairwiseBlock is the leaf size of pairwise summation.
const pairwiseBlock = 128

var (
	reduceKernels  [numReduceOps][tensor.NumDataTypes]ReduceKernel
	rowKernels     [numReduceOps][tensor.NumDataTypes]RowKernel // sum, max and min only
	rowSeeds       [numReduceOps][tensor.NumDataTypes]FillKernel // max and min only
	countKernels   [tensor.NumDataTypes]CountKernel
	treeSumKernels [tensor.NumDataTypes]TreeSumKernel // float types only
)

func initReduceKernels() {
	registerInt[int8]()
	registerInt[int16]()
	registerInt[int32]()
	registerInt[int64]()
	registerInt[uint8]()
	registerInt[uint16]()
	registerInt[uint32]()
	registerInt[uint64]()
	registerFloat[float32]()
	registerFloat[float64]()
}

func registerInt[T tensor.Integer]() {
	dt := tensor.DTypeOf[T]()
	lo, hi := tensor.Bounds[T]()
	registerCommon[T](dt, lo, hi)
	reduceKernels[opSum][dt] = intSumKernel[T]()
	countKernels[dt] = countKernel[T](tensor.Saturator[T]())
	reduceKernels[opMean][dt] = meanKernel(reduceKernels[opSum][dt], countKernels[dt])
}

func registerFloat[T tensor.Float]() {
	dt := tensor.DTypeOf[T]()
	registerCommon[T](dt, T(math.Inf(-1)), T(math.Inf(1)))
	reduceKernels[opSum][dt] = floatSumKernel[T]()
	countKernels[dt] = countKernel[T](func(v float64) T { return T(v) })
	reduceKernels[opMean][dt] = meanKernel(reduceKernels[opSum][dt], countKernels[dt])
	treeSumKernels[dt] = treeSumKernel[T]()
}

// registerCommon installs the kernels whose code is shared by every dtype.
// lowest and highest seed max and min.
func registerCommon[T tensor.Number](dt tensor.DataType, lowest, highest T) {
	greater := func(x, m T) bool { return x > m }
	less := func(x, m T) bool { return x < m }

	reduceKernels[opMax][dt] = extremumKernel(greater, lowest)
	reduceKernels[opMin][dt] = extremumKernel(less, highest)
	reduceKernels[opArgmax][dt] = argKernel(greater, lowest)
	reduceKernels[opArgmin][dt] = argKernel(less, highest)

	rowSeeds[opMax][dt] = fillKernel(lowest)
	rowSeeds[opMin][dt] = fillKernel(highest)
	rowKernels[opSum][dt] = rowKernel(func(d, x T) T { return d + x })
	rowKernels[opMax][dt] = rowKernel(func(d, x T) T {
		if x > d {
			return x
		}
		return d
	})
	rowKernels[opMin][dt] = rowKernel(func(d, x T) T {
		if x < d {
			return x
		}
		return d
	})
}

// intSumKernel sums with wrapping arithmetic in T.
func intSumKernel[T tensor.Integer]() ReduceKernel {
	es := sizeOf[T]()
	return func(a, out []byte, n, sa int) {
		av, e := tensor.View[T](a), sa/es
		var s0, s1, s2, s3 T
		i := 0
		if e == 1 {
			av = av[:n]
			for ; i+4 <= n; i += 4 {
				s0 += av[i]
				s1 += av[i+1]
				s2 += av[i+2]
				s3 += av[i+3]
			}
		}
		for ; i < n; i++ {
			s0 += av[i*e]
		}
		tensor.View[T](out)[0] = s0 + s1 + s2 + s3
	}
}

// floatSumKernel uses pairwise summation.
func floatSumKernel[T tensor.Float]() ReduceKernel {
	es := sizeOf[T]()
	return func(a, out []byte, n, sa int) {
		tensor.View[T](out)[0] = pairwiseSum(tensor.View[T](a), n, sa/es)
	}
}

// pairwiseSum sums n elements of x at element stride s. Runs of at most
// pairwiseBlock elements use eight accumulators; longer runs split at a
// multiple of 8 near the middle.
func pairwiseSum[T tensor.Float](x []T, n, s int) T {
	switch {
	case n < 8:
		var res T
		for i := 0; i < n; i++ {
			res += x[i*s]
		}
		return res
	case n <= pairwiseBlock:
		r0, r1, r2, r3 := x[0], x[s], x[2*s], x[3*s]
		r4, r5, r6, r7 := x[4*s], x[5*s], x[6*s], x[7*s]
		i := 8
		for ; i+8 <= n; i += 8 {
			p := i * s
			r0 += x[p]
			r1 += x[p+s]
			r2 += x[p+2*s]
			r3 += x[p+3*s]
			r4 += x[p+4*s]
			r5 += x[p+5*s]
			r6 += x[p+6*s]
			r7 += x[p+7*s]
		}
		res := ((r0 + r1) + (r2 + r3)) + ((r4 + r5) + (r6 + r7))
		for ; i < n; i++ {
			res += x[i*s]
		}
		return res
	default:
		n2 := pairwiseSplit(n)
		return pairwiseSum(x, n2, s) + pairwiseSum(x[n2*s:], n-n2, s)
	}
}

// pairwiseSplit returns the size of the left half of a pairwise node.
func pairwiseSplit(n int) int {
	n2 := n / 2
	return n2 - n2%8
}

// treeSumKernel evaluates the top levels of the pairwise tree concurrently.
// Leaves are the same nodes the sequential recursion visits and are combined
// in the same order, so the result is bit-identical.
func treeSumKernel[T tensor.Float]() TreeSumKernel {
	es := sizeOf[T]()
	return func(a, out []byte, n int, cfg parallel.Config) {
		x := tensor.View[T](a)[:n]
		depth := treeDepth(parallel.Chunks(n, es, cfg))

		leaves := pairwiseLeaves(n, depth, 0, nil)
		sums := make([]T, len(leaves))
		parallel.ForEach(len(leaves), func(i int) {
			l := leaves[i]
			sums[i] = pairwiseSum(x[l.off:], l.n, 1)
		}, cfg)

		next := 0
		tensor.View[T](out)[0] = combineLeaves(n, depth, sums, &next)
	}
}

// leaf is a node of the pairwise tree summed by one goroutine.
type leaf struct{ off, n int }

// treeDepth returns the number of tree levels needed to give k goroutines
// work, capped at 3.
func treeDepth(k int) int {
	d := 0
	for 1<<d < k && d < 3 {
		d++
	}
	return d
}

func pairwiseLeaves(n, depth, off int, leaves []leaf) []leaf {
	if depth == 0 || n <= pairwiseBlock {
		return append(leaves, leaf{off, n})
	}
	n2 := pairwiseSplit(n)
	leaves = pairwiseLeaves(n2, depth-1, off, leaves)
	return pairwiseLeaves(n-n2, depth-1, off+n2, leaves)
}

func combineLeaves[T tensor.Float](n, depth int, sums []T, next *int) T {
	if depth == 0 || n <= pairwiseBlock {
		v := sums[*next]
		*next++
		return v
	}
	n2 := pairwiseSplit(n)
	left := combineLeaves(n2, depth-1, sums, next)
	return left + combineLeaves(n-n2, depth-1, sums, next)
}

// extremumKernel keeps the running value m replaced whenever better(x, m).
// Comparisons are strict, so NaN never replaces m.
func extremumKernel[T tensor.Number](better func(x, m T) bool, init T) ReduceKernel {
	es := sizeOf[T]()
	return func(a, out []byte, n, sa int) {
		av, e := tensor.View[T](a), sa/es
		m := init
		for i := 0; i < n; i++ {
			if x := av[i*e]; better(x, m) {
				m = x
			}
		}
		tensor.View[T](out)[0] = m
	}
}

// argKernel finds the extremum then the first index holding it. When no
// element equals the extremum (all NaN) the index is 0.
func argKernel[T tensor.Number](better func(x, m T) bool, init T) ReduceKernel {
	es := sizeOf[T]()
	return func(a, out []byte, n, sa int) {
		av, e := tensor.View[T](a), sa/es
		m := init
		for i := 0; i < n; i++ {
			if x := av[i*e]; better(x, m) {
				m = x
			}
		}
		var idx int64
		for i := 0; i < n; i++ {
			if av[i*e] == m {
				idx = int64(i)
				break
			}
		}
		tensor.View[int64](out)[0] = idx
	}
}

func meanKernel(sum ReduceKernel, div CountKernel) ReduceKernel {
	return func(a, out []byte, n, sa int) {
		sum(a, out, n, sa)
		div(out, 1, n)
	}
}

func countKernel[T tensor.Number](conv func(float64) T) CountKernel {
	return func(data []byte, n, count int) {
		d := tensor.View[T](data)[:n]
		c := float64(count)
		for i, x := range d {
			d[i] = conv(float64(x) / c)
		}
	}
}

// fillKernel seeds row folds with the same identity extremumKernel starts from.
func fillKernel[T tensor.Number](v T) FillKernel {
	return func(dst []byte, n int) {
		d := tensor.View[T](dst)[:n]
		for j := range d {
			d[j] = v
		}
	}
}

// rowKernel applies dst[j] = f(dst[j], row[j]) for every row.
func rowKernel[T tensor.Number](f func(d, x T) T) RowKernel {
	return func(base []byte, rowStride, nrows int, dst []byte, ncols int) {
		d := tensor.View[T](dst)[:ncols]
		for r := 0; r < nrows; r++ {
			row := tensor.View[T](base[r*rowStride:])[:ncols]
			for j, x := range row {
				d[j] = f(d[j], x)
			}
		}
	}
}
