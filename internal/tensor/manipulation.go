package tensor

import "fmt"

// Reshape changes the shape in place. The array must be C-contiguous and the
// element count must not change. Strides are recomputed.
func (a *Array) Reshape(shape Shape) error {
	if err := a.checkReshape(shape); err != nil {
		return failCtx(a.ctxOrNil(), "reshape", err)
	}
	if !a.contiguous {
		return a.ctx.fail("reshape", NewOpError("reshape", ErrNotContiguous, "%s", a))
	}
	a.shape = shape.Clone()
	a.strides = a.shape.ComputeStrides(a.dtype.Size())
	a.updateFlags()
	return nil
}

// ReshapeCopy returns a new owned array with the elements of a, in logical
// order, under the given shape. a is left untouched and may be non-contiguous.
func (a *Array) ReshapeCopy(shape Shape) (*Array, error) {
	if err := a.checkReshape(shape); err != nil {
		return nil, failCtx(a.ctxOrNil(), "reshape_copy", err)
	}
	out, err := newArray(a.ctx, shape, a.dtype)
	if err != nil {
		return nil, a.ctx.fail("reshape_copy", err)
	}
	a.copyInto(out)
	return out, nil
}

func (a *Array) checkReshape(shape Shape) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := shape.Validate(); err != nil {
		return err
	}
	n, _, err := shape.CheckedNumElements(a.dtype.Size())
	if err != nil {
		return err
	}
	if n != a.size {
		return fmt.Errorf("%w: cannot reshape %d elements %v into %v", ErrSizeMismatch, a.size, []int(a.shape), []int(shape))
	}
	return nil
}

// Transpose permutes the axes in place. With no arguments the axes are reversed.
// axes must be a permutation of [0, rank); negative values count from the end.
func (a *Array) Transpose(axes ...int) error {
	perm, err := a.permutation(axes)
	if err != nil {
		return failCtx(a.ctxOrNil(), "transpose", err)
	}
	shape := make(Shape, len(perm))
	strides := make([]int, len(perm))
	for i, p := range perm {
		shape[i] = a.shape[p]
		strides[i] = a.strides[p]
	}
	a.shape, a.strides = shape, strides
	a.updateFlags()
	return nil
}

// TransposeCopy returns a new owned, contiguous array holding a with permuted axes.
func (a *Array) TransposeCopy(axes ...int) (*Array, error) {
	perm, err := a.permutation(axes)
	if err != nil {
		return nil, failCtx(a.ctxOrNil(), "transpose_copy", err)
	}
	shape := make(Shape, len(perm))
	strides := make([]int, len(perm))
	for i, p := range perm {
		shape[i] = a.shape[p]
		strides[i] = a.strides[p]
	}
	out, err := newArray(a.ctx, shape, a.dtype)
	if err != nil {
		return nil, a.ctx.fail("transpose_copy", err)
	}
	CopyStrided(out.buf, out.strides, a.buf[a.offset:], strides, shape, a.dtype.Size())
	return out, nil
}

func (a *Array) permutation(axes []int) ([]int, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	rank := len(a.shape)
	perm := make([]int, rank)
	if len(axes) == 0 {
		for i := range perm {
			perm[i] = rank - 1 - i
		}
		return perm, nil
	}
	if len(axes) != rank {
		return nil, fmt.Errorf("%w: %d axes given for rank %d", ErrInvalidAxis, len(axes), rank)
	}

	var seen [MaxRank]bool
	for i, ax := range axes {
		n, err := NormalizeAxis(ax, rank)
		if err != nil {
			return nil, err
		}
		if seen[n] {
			return nil, fmt.Errorf("%w: axis %d repeated in %v", ErrInvalidAxis, ax, axes)
		}
		seen[n] = true
		perm[i] = n
	}
	return perm, nil
}

// Slice returns a view selecting [start, stop) with the given step along axis.
// stop == 0 means the end of the axis; step must be >= 1.
func (a *Array) Slice(axis, start, stop, step int) (*Array, error) {
	if err := a.Validate(); err != nil {
		return nil, failCtx(a.ctxOrNil(), "slice", err)
	}
	ax, err := NormalizeAxis(axis, len(a.shape))
	if err != nil {
		return nil, a.ctx.fail("slice", err)
	}
	dim := a.shape[ax]
	if stop == 0 {
		stop = dim
	}
	if step < 1 || start < 0 || start >= dim || stop > dim || start >= stop {
		return nil, a.ctx.fail("slice", NewOpError("slice", ErrInvalidArgument,
			"start=%d stop=%d step=%d for axis %d of extent %d", start, stop, step, ax, dim))
	}

	v := &Array{
		ctx:     a.ctx,
		buf:     a.buf,
		offset:  a.offset + start*a.strides[ax],
		dtype:   a.dtype,
		shape:   a.shape.Clone(),
		strides: a.Strides(),
	}
	v.shape[ax] = (stop - start + step - 1) / step
	v.strides[ax] *= step
	v.size = v.shape.NumElements()
	v.nbytes = v.size * a.dtype.Size()
	v.updateFlags()
	return v, nil
}

// Contiguous materializes a non-contiguous array in place: its elements are
// copied in logical order into a new owned buffer and the strides become
// C-order. It is a no-op for contiguous arrays.
func (a *Array) Contiguous() error {
	if err := a.Validate(); err != nil {
		return failCtx(a.ctxOrNil(), "contiguous", err)
	}
	if a.contiguous {
		return nil
	}
	buf, err := a.ctx.alloc(a.nbytes)
	if err != nil {
		return a.ctx.fail("contiguous", err)
	}
	strides := a.shape.ComputeStrides(a.dtype.Size())
	CopyStrided(buf, strides, a.buf[a.offset:], a.strides, a.shape, a.dtype.Size())

	a.buf, a.offset, a.strides = buf, 0, strides
	a.contiguous, a.owner = true, true
	return nil
}

// Copy returns a deep, contiguous, owned copy of a in logical order.
func (a *Array) Copy() (*Array, error) {
	if err := a.Validate(); err != nil {
		return nil, failCtx(a.ctxOrNil(), "copy", err)
	}
	out, err := newArray(a.ctx, a.shape, a.dtype)
	if err != nil {
		return nil, a.ctx.fail("copy", err)
	}
	a.copyInto(out)
	return out, nil
}

// Clone is an alias of Copy.
func (a *Array) Clone() (*Array, error) {
	return a.Copy()
}

// copyInto writes a's elements in logical order into the contiguous array out.
func (a *Array) copyInto(out *Array) {
	if a.contiguous {
		copy(out.buf[out.offset:out.offset+out.nbytes], a.buf[a.offset:a.offset+a.nbytes])
		return
	}
	CopyStrided(out.buf[out.offset:], a.shape.ComputeStrides(a.dtype.Size()),
		a.buf[a.offset:], a.strides, a.shape, a.dtype.Size())
}

func (a *Array) ctxOrNil() *Context {
	if a == nil {
		return nil
	}
	return a.ctx
}
