package tensor

import (
	"fmt"
	"strings"
)

// Array is a typed, strided view over bytes owned by a Context.
//
// An owning array holds a freshly allocated C-order buffer. A view (from Slice)
// shares its owner's buffer with its own offset, shape and strides. Strides
// are in bytes and never negative. Views never free data; storage is released
// only by the context.
type Array struct {
	ctx        *Context
	buf        []byte // full allocation shared by the owner and its views
	offset     int    // byte offset of the first logical element
	dtype      DataType
	shape      Shape
	strides    []int // byte strides
	size       int   // element count
	nbytes     int   // size * element size
	contiguous bool
	owner      bool
}

// Create allocates an uninitialized array. After a Reset of the context the
// memory may hold stale data.
func Create(ctx *Context, shape Shape, dtype DataType) (*Array, error) {
	a, err := newArray(ctx, shape, dtype)
	if err != nil {
		return nil, failCtx(ctx, "create", err)
	}
	return a, nil
}

// Zeros allocates an array filled with zeros.
func Zeros(ctx *Context, shape Shape, dtype DataType) (*Array, error) {
	a, err := newArray(ctx, shape, dtype)
	if err != nil {
		return nil, failCtx(ctx, "zeros", err)
	}
	clear(a.buf[a.offset : a.offset+a.nbytes])
	return a, nil
}

// Fill allocates an array with every element set to value, converted to dtype
// with saturation.
func Fill(ctx *Context, shape Shape, dtype DataType, value float64) (*Array, error) {
	a, err := newArray(ctx, shape, dtype)
	if err != nil {
		return nil, failCtx(ctx, "fill", err)
	}
	fillContiguous(a.buf[a.offset:a.offset+a.nbytes], dtype, value)
	return a, nil
}

// Ones allocates an array filled with ones.
func Ones(ctx *Context, shape Shape, dtype DataType) (*Array, error) {
	return Fill(ctx, shape, dtype, 1)
}

func newArray(ctx *Context, shape Shape, dtype DataType) (*Array, error) {
	if ctx == nil {
		return nil, ErrNullArgument
	}
	if ctx.Released() {
		return nil, ErrContextReleased
	}
	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: dtype %d", ErrInvalidArgument, dtype)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	size, nbytes, err := shape.CheckedNumElements(dtype.Size())
	if err != nil {
		return nil, err
	}
	buf, err := ctx.alloc(nbytes)
	if err != nil {
		return nil, err
	}

	return &Array{
		ctx:        ctx,
		buf:        buf,
		dtype:      dtype,
		shape:      shape.Clone(),
		strides:    shape.ComputeStrides(dtype.Size()),
		size:       size,
		nbytes:     nbytes,
		contiguous: true,
		owner:      true,
	}, nil
}

// failCtx logs through ctx when it is usable.
func failCtx(ctx *Context, op string, err error) error {
	if ctx == nil {
		return wrapOp(op, err)
	}
	return ctx.fail(op, err)
}

// Context returns the owning context.
func (a *Array) Context() *Context {
	return a.ctx
}

// DType returns the element type.
func (a *Array) DType() DataType {
	return a.dtype
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int {
	return len(a.shape)
}

// Shape returns a copy of the dimensions.
func (a *Array) Shape() Shape {
	return a.shape.Clone()
}

// Dim returns the extent of axis i.
func (a *Array) Dim(i int) int {
	return a.shape[i]
}

// Strides returns a copy of the byte strides.
func (a *Array) Strides() []int {
	s := make([]int, len(a.strides))
	copy(s, a.strides)
	return s
}

// Size returns the number of elements.
func (a *Array) Size() int {
	return a.size
}

// ByteSize returns the logical size in bytes (Size * element size).
func (a *Array) ByteSize() int {
	return a.nbytes
}

// ElemSize returns the size of one element in bytes.
func (a *Array) ElemSize() int {
	return a.dtype.Size()
}

// IsContiguous reports whether the elements form one C-order run.
func (a *Array) IsContiguous() bool {
	return a.contiguous
}

// IsView reports whether the array borrows another array's buffer.
func (a *Array) IsView() bool {
	return !a.owner
}

// Bytes returns the memory spanned by the array, starting at its first element.
// For contiguous arrays this is exactly ByteSize bytes.
// WARNING: Direct access to underlying memory. Views share it with their owner.
func (a *Array) Bytes() []byte {
	return a.buf[a.offset : a.offset+a.span()]
}

// span is the distance in bytes from the first to one past the last element.
func (a *Array) span() int {
	if a.contiguous {
		return a.nbytes
	}
	n := a.dtype.Size()
	for i, d := range a.shape {
		n += (d - 1) * a.strides[i]
	}
	return n
}

// SameData reports whether a and b start at the same byte of the same buffer
// with identical geometry, so that element i of one is element i of the other.
func SameData(a, b *Array) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || len(a.buf) == 0 || len(b.buf) == 0 {
		return false
	}
	if &a.buf[a.offset] != &b.buf[b.offset] || !a.shape.Equal(b.shape) {
		return false
	}
	for i := range a.strides {
		if a.strides[i] != b.strides[i] {
			return false
		}
	}
	return true
}

// Validate checks that a is usable by an operation.
func (a *Array) Validate() error {
	if a == nil {
		return ErrNullArgument
	}
	if a.ctx == nil || a.ctx.Released() {
		return ErrContextReleased
	}
	return nil
}

// String returns a short description of the geometry.
func (a *Array) String() string {
	if a == nil {
		return "Array(nil)"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Array(%s, shape=%v, strides=%v", a.dtype, []int(a.shape), a.strides)
	if !a.contiguous {
		sb.WriteString(", non-contiguous")
	}
	if !a.owner {
		sb.WriteString(", view")
	}
	sb.WriteString(")")
	return sb.String()
}

// updateFlags recomputes derived fields after a geometry change.
func (a *Array) updateFlags() {
	a.contiguous = IsCContiguous(a.shape, a.strides, a.dtype.Size())
}
