package cpu

import (
	"github.com/born-ml/ndarray/internal/tensor"
)

// computeBroadcastStrides returns the byte strides of a read as outShape.
// Padded leading dimensions and broadcast dimensions of extent 1 get stride 0.
func computeBroadcastStrides(a *tensor.Array, outShape tensor.Shape) []int {
	outDim := len(outShape)
	strides := make([]int, outDim)

	inShape, inStrides := a.Shape(), a.Strides()
	offset := outDim - len(inShape)

	for i := 0; i < outDim; i++ {
		inIdx := i - offset
		switch {
		case inIdx < 0:
			// Padded dimension
			strides[i] = 0
		case inShape[inIdx] == 1:
			// Broadcast dimension
			strides[i] = 0
		default:
			strides[i] = inStrides[inIdx]
		}
	}

	return strides
}

// sortAxes orders dimensions by descending sum of operand strides so the
// innermost dimension has the smallest combined stride. Insertion sort is
// stable and rank is at most tensor.MaxRank.
func sortAxes(shape tensor.Shape, strides [][]int) {
	weight := func(d int) int {
		w := 0
		for _, s := range strides {
			w += abs(s[d])
		}
		return w
	}

	for i := 1; i < len(shape); i++ {
		for j := i; j > 0 && weight(j-1) < weight(j); j-- {
			shape[j-1], shape[j] = shape[j], shape[j-1]
			for _, s := range strides {
				s[j-1], s[j] = s[j], s[j-1]
			}
		}
	}
}

// iterGeometry prepares a strided walk: axes sorted for locality, then
// collapsed. The returned strides are indexed per operand.
func iterGeometry(shape tensor.Shape, strides ...[]int) (tensor.Shape, [][]int) {
	shape = shape.Clone()
	owned := make([][]int, len(strides))
	for k, s := range strides {
		owned[k] = append([]int(nil), s...)
	}
	sortAxes(shape, owned)
	return tensor.CollapseDims(shape, owned...)
}

// maxOperands bounds the operands of one walk.
const maxOperands = 3

// forEachIndex calls fn once per index of shape with the byte offset of each
// operand at that index. An empty shape calls fn once with zero offsets.
func forEachIndex(shape tensor.Shape, strides [][]int, fn func(offs *[maxOperands]int)) {
	var offs [maxOperands]int
	walkRec(shape, strides, 0, offs, fn)
}

func walkRec(shape tensor.Shape, strides [][]int, dim int, offs [maxOperands]int, fn func(*[maxOperands]int)) {
	if dim == len(shape) {
		fn(&offs)
		return
	}
	for i := 0; i < shape[dim]; i++ {
		walkRec(shape, strides, dim+1, offs, fn)
		for k := range strides {
			offs[k] += strides[k][dim]
		}
	}
}

// outerStrides returns the strides of every operand without the last axis.
func outerStrides(strides [][]int) [][]int {
	out := make([][]int, len(strides))
	for k, s := range strides {
		out[k] = s[:len(s)-1]
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
