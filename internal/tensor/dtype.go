// Package tensor provides the strided N-dimensional array model: dtype tags,
// shapes, allocation contexts, owning arrays and views.
package tensor

import (
	"math"
	"strings"
)

// Signed is the constraint for signed integer element types.
type Signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is the constraint for unsigned integer element types.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Integer is the constraint for integer element types.
type Integer interface {
	Signed | Unsigned
}

// Float is the constraint for floating-point element types.
type Float interface {
	~float32 | ~float64
}

// Number is the constraint for every supported element type.
type Number interface {
	Integer | Float
}

// DataType is the runtime dtype tag of an array.
type DataType uint8

// Supported data types. The values index kernel tables and must stay dense.
const (
	Int8 DataType = iota
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64

	// NumDataTypes is the number of dtype tags.
	NumDataTypes = 10
)

// Valid reports whether dt is one of the supported tags.
func (dt DataType) Valid() bool {
	return dt < NumDataTypes
}

// Size returns the byte size of one element.
func (dt DataType) Size() int {
	switch dt {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// IsFloat reports whether dt is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == Float32 || dt == Float64
}

// IsSigned reports whether dt is a signed integer type.
func (dt DataType) IsSigned() bool {
	return dt <= Int64
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// ParseDataType parses a dtype name such as "float32".
func ParseDataType(s string) (DataType, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	for dt := range DataType(NumDataTypes) {
		if dt.String() == name {
			return dt, true
		}
	}
	return 0, false
}

// DTypeOf returns the tag for the element type T.
func DTypeOf[T Number]() DataType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		panic("unsupported type")
	}
}

// Bounds returns the smallest and largest values of T.
// Floating-point types report -Inf and +Inf.
func Bounds[T Number]() (lo, hi T) {
	dt := DTypeOf[T]()
	if dt.IsFloat() {
		inf := math.Inf(1)
		return T(-inf), T(inf)
	}

	bits := uint(dt.Size() * 8)
	if dt.IsSigned() {
		var one int64 = 1
		h := one<<(bits-1) - 1
		return T(-h - 1), T(h)
	}
	var all uint64 = math.MaxUint64
	return 0, T(all >> (64 - bits))
}

// Saturator returns a float64 to T conversion that clamps to the range of T.
// NaN converts to 0 for integer types. Fractions truncate toward zero.
func Saturator[T Number]() func(float64) T {
	dt := DTypeOf[T]()
	if dt.IsFloat() {
		return func(f float64) T { return T(f) }
	}

	lo, hi := Bounds[T]()
	loF := float64(lo)
	// Exclusive upper bound: 2^(bits-1) or 2^bits, exact in float64.
	hiEx := math.Ldexp(1, dt.Size()*8)
	if dt.IsSigned() {
		hiEx = -loF
	}
	return func(f float64) T {
		switch {
		case f != f:
			return 0
		case f >= hiEx:
			return hi
		case f <= loF:
			return lo
		}
		return T(f)
	}
}

// FromFloat converts f to T with saturation. See Saturator.
func FromFloat[T Number](f float64) T {
	return Saturator[T]()(f)
}
