package serialization

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/born-ml/ndarray/internal/tensor"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize      = 1024 * 1024 // 1MB - maximum JSON header size
	MaxMetadataEntries = 1024        // Maximum number of metadata entries
	MaxMetadataKeyLen  = 256         // Maximum metadata key length
	MaxMetadataSize    = 512 * 1024  // Maximum total metadata bytes
	MinBlockSize       = 4 * 1024
	MaxBlockSize       = 64 * 1024 * 1024

	// MaxDecompressionRatio caps raw bytes per compressed payload byte, so a
	// small file cannot claim an array far larger than it could hold.
	MaxDecompressionRatio = 1 << 16
)

// ValidateHeader checks a decoded header against the payload size found in
// the fixed header. A header that passes describes an array that can be
// allocated and a payload that cannot overrun it.
func ValidateHeader(h *Header, dataSize uint64) error {
	if h.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, h.FormatVersion, FormatVersion)
	}

	if h.ID != "" {
		if _, err := uuid.Parse(h.ID); err != nil {
			return &ValidationError{Type: "bad_id", Field: "id", Details: err.Error()}
		}
	}

	dt, ok := h.DataType()
	if !ok {
		return &ValidationError{Type: "bad_dtype", Field: "dtype", Details: fmt.Sprintf("unknown type %q", h.DType)}
	}
	shape := tensor.Shape(h.Shape)
	if err := shape.Validate(); err != nil {
		return &ValidationError{Type: "bad_shape", Field: "shape", Details: err.Error()}
	}
	_, nbytes, err := shape.CheckedNumElements(dt.Size())
	if err != nil {
		return &ValidationError{Type: "bad_shape", Field: "shape", Details: err.Error()}
	}

	if h.ByteOrder != nativeOrder {
		return fmt.Errorf("%w: file is %s-endian", ErrByteOrder, h.ByteOrder)
	}
	codec, err := ParseCompression(h.Compression)
	if err != nil {
		return err
	}
	if h.BlockSize < MinBlockSize || h.BlockSize > MaxBlockSize {
		return &ValidationError{
			Type:    "bad_block_size",
			Field:   "block_size",
			Details: fmt.Sprintf("%d not in [%d, %d]", h.BlockSize, MinBlockSize, MaxBlockSize),
		}
	}

	// Blocks never grow: each is at most its raw bytes plus a frame header.
	blocks := (nbytes + h.BlockSize - 1) / h.BlockSize
	frames := uint64(blocks) * blockHeaderSize
	limit := uint64(nbytes) + frames
	if dataSize < frames || dataSize > limit || (codec == CompressionNone && dataSize != limit) {
		return &ValidationError{
			Type:    "payload_size",
			Details: fmt.Sprintf("%d bytes for %d blocks of %d raw bytes", dataSize, blocks, nbytes),
		}
	}
	if body := dataSize - frames; uint64(nbytes)/MaxDecompressionRatio > body {
		return &ValidationError{
			Type:    "decompression_ratio",
			Details: fmt.Sprintf("%d raw bytes from %d compressed, max ratio %d", nbytes, body, MaxDecompressionRatio),
		}
	}

	return ValidateMetadata(h.Metadata)
}

// ValidateMetadata bounds the metadata map and rejects control characters in keys.
func ValidateMetadata(md map[string]string) error {
	if len(md) > MaxMetadataEntries {
		return &ValidationError{
			Type:    "too_much_metadata",
			Field:   "metadata",
			Details: fmt.Sprintf("%d entries, max %d", len(md), MaxMetadataEntries),
		}
	}
	total := 0
	for k, v := range md {
		if k == "" || len(k) > MaxMetadataKeyLen {
			return &ValidationError{
				Type:    "bad_metadata_key",
				Field:   "metadata",
				Details: fmt.Sprintf("key length %d not in [1, %d]", len(k), MaxMetadataKeyLen),
			}
		}
		if strings.ContainsFunc(k, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
			return &ValidationError{
				Type:    "bad_metadata_key",
				Field:   "metadata",
				Details: fmt.Sprintf("key %q contains a control character", k),
			}
		}
		total += len(k) + len(v)
	}
	if total > MaxMetadataSize {
		return &ValidationError{
			Type:    "too_much_metadata",
			Field:   "metadata",
			Details: fmt.Sprintf("%d bytes, max %d", total, MaxMetadataSize),
		}
	}
	return nil
}
