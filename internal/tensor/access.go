package tensor

// FromSlice allocates an array of the given shape holding a copy of data.
func FromSlice[T Number](ctx *Context, data []T, shape Shape) (*Array, error) {
	if shape.Validate() == nil && shape.NumElements() != len(data) {
		return nil, failCtx(ctx, "from_slice", NewOpError("from_slice", ErrSizeMismatch,
			"%d values for shape %v", len(data), []int(shape)))
	}
	a, err := newArray(ctx, shape, DTypeOf[T]())
	if err != nil {
		return nil, failCtx(ctx, "from_slice", err)
	}
	copy(View[T](a.buf[:a.nbytes]), data)
	return a, nil
}

// AsSlice returns the elements of a contiguous array without copying.
// Writes through the slice are visible to the array and its views.
func AsSlice[T Number](a *Array) ([]T, error) {
	if err := a.Validate(); err != nil {
		return nil, wrapOp("as_slice", err)
	}
	if dt := DTypeOf[T](); dt != a.dtype {
		return nil, a.ctx.fail("as_slice", NewOpError("as_slice", ErrTypeMismatch, "array is %s, not %s", a.dtype, dt))
	}
	if !a.contiguous {
		return nil, a.ctx.fail("as_slice", NewOpError("as_slice", ErrNotContiguous, "%s", a))
	}
	return View[T](a.buf[a.offset : a.offset+a.nbytes]), nil
}

// ToSlice returns a copy of the elements in logical (row-major) order.
func ToSlice[T Number](a *Array) ([]T, error) {
	if err := a.Validate(); err != nil {
		return nil, wrapOp("to_slice", err)
	}
	if dt := DTypeOf[T](); dt != a.dtype {
		return nil, a.ctx.fail("to_slice", NewOpError("to_slice", ErrTypeMismatch, "array is %s, not %s", a.dtype, dt))
	}
	out := make([]T, a.size)
	dst := byteView(out)
	if a.contiguous {
		copy(dst, a.buf[a.offset:a.offset+a.nbytes])
	} else {
		CopyStrided(dst, a.shape.ComputeStrides(a.dtype.Size()),
			a.buf[a.offset:], a.strides, a.shape, a.dtype.Size())
	}
	return out, nil
}

// byteOffset returns the byte offset of the element at idx.
func (a *Array) byteOffset(op string, idx []int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, NewOpError(op, ErrInvalidArgument, "%d indices for rank %d", len(idx), len(a.shape))
	}
	off := a.offset
	for i, x := range idx {
		if x < 0 || x >= a.shape[i] {
			return 0, NewOpError(op, ErrIndexOutOfBounds, "index %d is %d, extent %d", i, x, a.shape[i])
		}
		off += x * a.strides[i]
	}
	return off, nil
}

// At returns the element at idx converted to float64.
// 64-bit integers beyond 2^53 lose precision; use Item for exact reads.
func (a *Array) At(idx ...int) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, wrapOp("at", err)
	}
	off, err := a.byteOffset("at", idx)
	if err != nil {
		return 0, a.ctx.fail("at", err)
	}
	return loadFloat(a.buf[off:off+a.dtype.Size()], a.dtype), nil
}

// SetAt stores v, saturated to the array dtype, at idx.
func (a *Array) SetAt(v float64, idx ...int) error {
	if err := a.Validate(); err != nil {
		return wrapOp("set_at", err)
	}
	off, err := a.byteOffset("set_at", idx)
	if err != nil {
		return a.ctx.fail("set_at", err)
	}
	storeFloat(a.buf[off:off+a.dtype.Size()], a.dtype, v)
	return nil
}

// Item returns the element at idx with its exact type.
func Item[T Number](a *Array, idx ...int) (T, error) {
	var zero T
	if err := a.Validate(); err != nil {
		return zero, wrapOp("item", err)
	}
	if dt := DTypeOf[T](); dt != a.dtype {
		return zero, a.ctx.fail("item", NewOpError("item", ErrTypeMismatch, "array is %s, not %s", a.dtype, dt))
	}
	off, err := a.byteOffset("item", idx)
	if err != nil {
		return zero, a.ctx.fail("item", err)
	}
	return View[T](a.buf[off : off+a.dtype.Size()])[0], nil
}

// Fill sets every element of a (or of the view) to v, saturated to the dtype.
func (a *Array) Fill(v float64) error {
	if err := a.Validate(); err != nil {
		return wrapOp("fill", err)
	}
	if a.contiguous {
		fillContiguous(a.buf[a.offset:a.offset+a.nbytes], a.dtype, v)
		return nil
	}
	src := ScalarBytes(a.dtype, v)
	zero := make([]int, len(a.shape))
	CopyStrided(a.buf[a.offset:], a.strides, src, zero, a.shape, a.dtype.Size())
	return nil
}
