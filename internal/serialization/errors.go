package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch       = errors.New("checksum mismatch: file may be corrupted")
	ErrHeaderTooLarge         = errors.New("header exceeds maximum size")
	ErrInvalidMagic           = errors.New("invalid magic bytes")
	ErrUnsupportedVersion     = errors.New("unsupported format version")
	ErrUnsupportedCompression = errors.New("unsupported compression")
	ErrCorruptBlock           = errors.New("corrupt payload block")
	ErrByteOrder              = errors.New("byte order does not match this machine")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "bad_shape", "payload_size")
	Field   string // Header field involved
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q: %s", e.Type, e.Field, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}
