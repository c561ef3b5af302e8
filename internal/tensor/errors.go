package tensor

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these.
var (
	ErrNullArgument     = errors.New("null argument")
	ErrAllocation       = errors.New("allocation failure")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrNotContiguous    = errors.New("array is not contiguous")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrSizeMismatch     = errors.New("size mismatch")
	ErrIntegerOverflow  = errors.New("integer overflow")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrInvalidAxis      = errors.New("invalid axis")
)

// Refinements of the kinds above.
var (
	ErrIncompatibleShapes = fmt.Errorf("%w: shapes not compatible for broadcasting", ErrShapeMismatch)
	ErrContextReleased    = fmt.Errorf("%w: context released", ErrInvalidArgument)
)

// Stable integer codes, 0 meaning success.
const (
	CodeOK               = 0
	CodeNullArgument     = -1
	CodeAllocation       = -2
	CodeShapeMismatch    = -3
	CodeTypeMismatch     = -4
	CodeNotContiguous    = -5
	CodeInvalidArgument  = -6
	CodeSizeMismatch     = -7
	CodeIntegerOverflow  = -8
	CodeIndexOutOfBounds = -9
	CodeInvalidAxis      = -10
	CodeUnknown          = -99
)

var codes = []struct {
	err  error
	code int
}{
	{ErrNullArgument, CodeNullArgument},
	{ErrAllocation, CodeAllocation},
	{ErrShapeMismatch, CodeShapeMismatch},
	{ErrTypeMismatch, CodeTypeMismatch},
	{ErrNotContiguous, CodeNotContiguous},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrSizeMismatch, CodeSizeMismatch},
	{ErrIntegerOverflow, CodeIntegerOverflow},
	{ErrIndexOutOfBounds, CodeIndexOutOfBounds},
	{ErrInvalidAxis, CodeInvalidAxis},
}

// Code maps err to its integer code. nil maps to CodeOK.
func Code(err error) int {
	if err == nil {
		return CodeOK
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}

// OpError records the failed operation and the error kind.
type OpError struct {
	Op     string // Operation name (e.g., "add", "sum_axis")
	Err    error  // Underlying error, wraps one of the kinds
	Detail string // Optional human-readable detail
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError builds an OpError with a formatted detail.
func NewOpError(op string, err error, format string, args ...any) *OpError {
	e := &OpError{Op: op, Err: err}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}

// wrapOp attaches op to err unless it is already an OpError.
func wrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Op: op, Err: err}
}
