// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"io"
	"log/slog"

	"github.com/born-ml/ndarray/internal/logging"
	"github.com/born-ml/ndarray/internal/resource"
	"github.com/born-ml/ndarray/internal/tensor"
)

// Type aliases for public API

// Number is the constraint satisfied by the ten element types.
type Number = tensor.Number

// DataType is the element type tag of an array.
type DataType = tensor.DataType

// Data type constants.
const (
	Int8    DataType = tensor.Int8
	Int16   DataType = tensor.Int16
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Uint16  DataType = tensor.Uint16
	Uint32  DataType = tensor.Uint32
	Uint64  DataType = tensor.Uint64
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// MaxRank is the largest supported number of dimensions.
const MaxRank = tensor.MaxRank

// Shape represents the dimensions of an array.
// Example: Shape{2, 3, 4} represents a 3D array with dimensions 2×3×4.
type Shape = tensor.Shape

// Array is an N-dimensional array bound to a Context. It is either the owner
// of its buffer or a view sharing another array's buffer.
type Array = tensor.Array

// Context owns the arena every array of a computation is allocated from.
// Freeing the context releases all of them at once.
//
// Example:
//
//	ctx, err := tensor.NewContext(tensor.WithMemoryLimit(64 << 20))
//	if err != nil {
//	    return err
//	}
//	defer ctx.Free()
type Context = tensor.Context

// ContextOption configures NewContext.
type ContextOption = tensor.ContextOption

// Checkpoint is a saved allocation position; see Context.Restore.
type Checkpoint = tensor.Checkpoint

// MemoryBudget is a byte budget that several contexts can share.
type MemoryBudget = resource.Controller

// Logger is the structured logger accepted by WithLogger.
type Logger = logging.Logger

// NewContext creates a context with its own arena.
func NewContext(opts ...ContextOption) (*Context, error) {
	return tensor.NewContext(opts...)
}

// WithBlockSize sets the arena block size in bytes.
func WithBlockSize(n int) ContextOption { return tensor.WithBlockSize(n) }

// WithAlignment sets the byte alignment of array buffers (a power of two, at least 8).
func WithAlignment(n int) ContextOption { return tensor.WithAlignment(n) }

// WithMemoryLimit caps the bytes the context's arena may reserve.
func WithMemoryLimit(bytes int64) ContextOption { return tensor.WithMemoryLimit(bytes) }

// WithBudget draws arena growth from a budget shared with other contexts.
func WithBudget(b *MemoryBudget) ContextOption { return tensor.WithBudget(b) }

// WithLogger sets the logger for arena events and failed operations.
func WithLogger(l *Logger) ContextOption { return tensor.WithLogger(l) }

// NewMemoryBudget creates a budget of limit bytes.
func NewMemoryBudget(limit int64) *MemoryBudget {
	return resource.NewController(limit)
}

// NewJSONLogger returns a Logger writing JSON records at level and above.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return logging.NewJSONLogger(w, level)
}

// NewTextLogger returns a Logger writing logfmt records at level and above.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return logging.NewTextLogger(w, level)
}

// Creation functions

// Create allocates an array without initializing its elements.
func Create(ctx *Context, shape Shape, dtype DataType) (*Array, error) {
	return tensor.Create(ctx, shape, dtype)
}

// Zeros allocates an array filled with zeros.
//
// Example:
//
//	x, err := tensor.Zeros(ctx, tensor.Shape{2, 3}, tensor.Float32)
func Zeros(ctx *Context, shape Shape, dtype DataType) (*Array, error) {
	return tensor.Zeros(ctx, shape, dtype)
}

// Ones allocates an array filled with ones.
func Ones(ctx *Context, shape Shape, dtype DataType) (*Array, error) {
	return tensor.Ones(ctx, shape, dtype)
}

// Fill allocates an array with every element set to value, saturated to dtype.
func Fill(ctx *Context, shape Shape, dtype DataType, value float64) (*Array, error) {
	return tensor.Fill(ctx, shape, dtype, value)
}

// FromSlice allocates an array holding a copy of data.
//
// Example:
//
//	x, err := tensor.FromSlice(ctx, []int32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
func FromSlice[T Number](ctx *Context, data []T, shape Shape) (*Array, error) {
	return tensor.FromSlice(ctx, data, shape)
}

// Access functions

// ToSlice returns a copy of the elements in logical (row-major) order.
func ToSlice[T Number](a *Array) ([]T, error) {
	return tensor.ToSlice[T](a)
}

// AsSlice returns the elements of a contiguous array without copying.
func AsSlice[T Number](a *Array) ([]T, error) {
	return tensor.AsSlice[T](a)
}

// Item returns the element at idx with its exact type.
func Item[T Number](a *Array, idx ...int) (T, error) {
	return tensor.Item[T](a, idx...)
}

// DTypeOf returns the DataType of T.
func DTypeOf[T Number]() DataType {
	return tensor.DTypeOf[T]()
}

// ParseDataType maps a name such as "float32" to its DataType.
func ParseDataType(s string) (DataType, bool) {
	return tensor.ParseDataType(s)
}

// Shape helpers

// BroadcastShapes returns the broadcast shape of a and b and whether any
// dimension was expanded.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}

// SameData reports whether a and b address the same elements.
func SameData(a, b *Array) bool {
	return tensor.SameData(a, b)
}
