// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/ndarray/internal/tensor"

// Error kinds. Every error returned by this module wraps exactly one of them,
// so errors.Is works against these values.
var (
	ErrNullArgument     = tensor.ErrNullArgument
	ErrAllocation       = tensor.ErrAllocation
	ErrShapeMismatch    = tensor.ErrShapeMismatch
	ErrTypeMismatch     = tensor.ErrTypeMismatch
	ErrNotContiguous    = tensor.ErrNotContiguous
	ErrInvalidArgument  = tensor.ErrInvalidArgument
	ErrSizeMismatch     = tensor.ErrSizeMismatch
	ErrIntegerOverflow  = tensor.ErrIntegerOverflow
	ErrIndexOutOfBounds = tensor.ErrIndexOutOfBounds
	ErrInvalidAxis      = tensor.ErrInvalidAxis

	ErrIncompatibleShapes = tensor.ErrIncompatibleShapes
	ErrContextReleased    = tensor.ErrContextReleased
)

// Stable integer error codes, 0 meaning success.
const (
	CodeOK               = tensor.CodeOK
	CodeNullArgument     = tensor.CodeNullArgument
	CodeAllocation       = tensor.CodeAllocation
	CodeShapeMismatch    = tensor.CodeShapeMismatch
	CodeTypeMismatch     = tensor.CodeTypeMismatch
	CodeNotContiguous    = tensor.CodeNotContiguous
	CodeInvalidArgument  = tensor.CodeInvalidArgument
	CodeSizeMismatch     = tensor.CodeSizeMismatch
	CodeIntegerOverflow  = tensor.CodeIntegerOverflow
	CodeIndexOutOfBounds = tensor.CodeIndexOutOfBounds
	CodeInvalidAxis      = tensor.CodeInvalidAxis
	CodeUnknown          = tensor.CodeUnknown
)

// OpError records the failed operation and the error kind.
type OpError = tensor.OpError

// Code maps err to its integer code. nil maps to CodeOK.
func Code(err error) int {
	return tensor.Code(err)
}
