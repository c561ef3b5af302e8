package tensor

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// IsCContiguous reports whether byte strides describe a C-order run of
// elemSize elements. Axes of extent 1 are ignored.
func IsCContiguous(shape Shape, strides []int, elemSize int) bool {
	expected := elemSize
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] == 1 {
			continue
		}
		if strides[i] != expected {
			return false
		}
		expected *= shape[i]
	}
	return true
}

// CollapseDims merges adjacent axes that every operand walks as one run and
// drops axes of extent 1. strides holds one byte-stride slice per operand.
// The result always has at least one axis.
//
// Example: shape (2, 3, 4) with C-order strides (48, 16, 4) collapses to (24) with (4).
func CollapseDims(shape Shape, strides ...[]int) (Shape, [][]int) {
	outShape := make(Shape, 0, len(shape))
	outStrides := make([][]int, len(strides))
	for k := range strides {
		outStrides[k] = make([]int, 0, len(shape))
	}

	for i, d := range shape {
		if d == 1 {
			continue
		}
		last := len(outShape) - 1
		merge := last >= 0
		for k := range strides {
			if !merge {
				break
			}
			merge = outStrides[k][last] == strides[k][i]*d
		}
		if merge {
			outShape[last] *= d
			for k := range strides {
				outStrides[k][last] = strides[k][i]
			}
			continue
		}
		outShape = append(outShape, d)
		for k := range strides {
			outStrides[k] = append(outStrides[k], strides[k][i])
		}
	}

	if len(outShape) == 0 {
		outShape = append(outShape, 1)
		for k := range strides {
			outStrides[k] = append(outStrides[k], 0)
		}
	}
	return outShape, outStrides
}

// CopyStrided copies the elements of src into dst, both described by shape and
// their own byte strides. Adjacent compatible axes are collapsed first so that
// contiguous runs are copied with one memmove.
func CopyStrided(dst []byte, dstStrides []int, src []byte, srcStrides []int, shape Shape, elemSize int) {
	cs, st := CollapseDims(shape, dstStrides, srcStrides)
	copyRec(dst, src, cs, st[0], st[1], elemSize)
}

func copyRec(dst, src []byte, shape Shape, ds, ss []int, es int) {
	if len(shape) == 1 {
		n := shape[0]
		if ds[0] == es && ss[0] == es {
			copy(dst[:n*es], src[:n*es])
			return
		}
		for j := 0; j < n; j++ {
			copy(dst[j*ds[0]:j*ds[0]+es], src[j*ss[0]:j*ss[0]+es])
		}
		return
	}
	for i := 0; i < shape[0]; i++ {
		copyRec(dst[i*ds[0]:], src[i*ss[0]:], shape[1:], ds[1:], ss[1:], es)
	}
}

// fillContiguous writes value, saturated to dtype, into every element of b.
func fillContiguous(b []byte, dtype DataType, value float64) {
	es := dtype.Size()
	if len(b) < es {
		return
	}
	storeFloat(b[:es], dtype, value)
	// Doubling copy from the first element.
	for filled := es; filled < len(b); filled *= 2 {
		copy(b[filled:], b[:filled])
	}
}

// loadFloat reads one element of dtype from b as float64.
func loadFloat(b []byte, dtype DataType) float64 {
	switch dtype {
	case Int8:
		return float64(int8(b[0]))
	case Int16:
		return float64(int16(binary.NativeEndian.Uint16(b)))
	case Int32:
		return float64(int32(binary.NativeEndian.Uint32(b)))
	case Int64:
		return float64(int64(binary.NativeEndian.Uint64(b)))
	case Uint8:
		return float64(b[0])
	case Uint16:
		return float64(binary.NativeEndian.Uint16(b))
	case Uint32:
		return float64(binary.NativeEndian.Uint32(b))
	case Uint64:
		return float64(binary.NativeEndian.Uint64(b))
	case Float32:
		return float64(math.Float32frombits(binary.NativeEndian.Uint32(b)))
	case Float64:
		return math.Float64frombits(binary.NativeEndian.Uint64(b))
	default:
		panic("unknown data type")
	}
}

// storeFloat writes v into one element of dtype with saturation.
func storeFloat(b []byte, dtype DataType, v float64) {
	switch dtype {
	case Int8:
		b[0] = byte(FromFloat[int8](v))
	case Int16:
		binary.NativeEndian.PutUint16(b, uint16(FromFloat[int16](v)))
	case Int32:
		binary.NativeEndian.PutUint32(b, uint32(FromFloat[int32](v)))
	case Int64:
		binary.NativeEndian.PutUint64(b, uint64(FromFloat[int64](v)))
	case Uint8:
		b[0] = FromFloat[uint8](v)
	case Uint16:
		binary.NativeEndian.PutUint16(b, FromFloat[uint16](v))
	case Uint32:
		binary.NativeEndian.PutUint32(b, FromFloat[uint32](v))
	case Uint64:
		binary.NativeEndian.PutUint64(b, FromFloat[uint64](v))
	case Float32:
		binary.NativeEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		binary.NativeEndian.PutUint64(b, math.Float64bits(v))
	default:
		panic("unknown data type")
	}
}

// ScalarBytes encodes v as one element of dtype, saturating as needed.
// The result is suitable as a zero-stride operand.
func ScalarBytes(dtype DataType, v float64) []byte {
	b := make([]byte, 8)
	storeFloat(b[:dtype.Size()], dtype, v)
	return b[:dtype.Size()]
}

// View reinterprets b as a slice of T. b must be aligned for T; arena buffers
// and offsets derived from shapes always are. Trailing bytes are ignored.
func View[T Number](b []byte) []T {
	var zero T
	n := len(b) / int(unsafe.Sizeof(zero))
	if n == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, length derived from len(b)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

// byteView reinterprets a typed slice as its bytes.
func byteView[T Number](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	//nolint:gosec // unsafe.Slice for zero-copy access, length derived from len(s)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}
