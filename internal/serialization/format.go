package serialization

import (
	"fmt"
	"time"

	"github.com/born-ml/ndarray/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "NDAR"
	FormatVersion   = 1
	HeaderAlignment = 64 // Payload starts on a 64-byte boundary
	FixedHeaderSize = 64 // Fixed header size (0x40 bytes)
	ChecksumSize    = 32 // SHA-256 checksum size
	ChecksumOffset  = 0x20
)

// DefaultBlockSize is the uncompressed size of one payload block.
const DefaultBlockSize = 256 * 1024

// Flags stored in the fixed header.
const (
	FlagCompressed  uint32 = 1 << 0 // bit 0: payload blocks may be compressed
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
)

// Compression selects the block codec.
type Compression uint8

const (
	// CompressionNone stores blocks raw.
	CompressionNone Compression = iota
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4
	// CompressionZSTD uses Zstandard (better ratio).
	CompressionZSTD
)

var compressionNames = [...]string{"none", "lz4", "zstd"}

// String returns the codec name used in the JSON header.
func (c Compression) String() string {
	if int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return "unknown"
}

// ParseCompression maps a codec name back to its Compression.
func ParseCompression(s string) (Compression, error) {
	for i, name := range compressionNames {
		if s == name {
			return Compression(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCompression, s)
}

// Header is the JSON header of a persisted array.
type Header struct {
	FormatVersion int               `json:"format_version"`     // Version of the container format
	ID            string            `json:"id"`                 // Random UUID identifying this file
	Library       string            `json:"library"`            // Version of the library that wrote the file
	CreatedAt     time.Time         `json:"created_at"`         // When the file was written
	DType         string            `json:"dtype"`              // Element type (e.g., "float32")
	Shape         []int             `json:"shape"`              // Logical shape, C order
	ByteOrder     string            `json:"byte_order"`         // "little" or "big"
	Compression   string            `json:"compression"`        // Block codec
	BlockSize     int               `json:"block_size"`         // Uncompressed bytes per block
	Metadata      map[string]string `json:"metadata,omitempty"` // Custom metadata
}

// DataType returns the parsed element type.
func (h *Header) DataType() (tensor.DataType, bool) {
	return tensor.ParseDataType(h.DType)
}

// NumElements returns the element count of the stored array.
func (h *Header) NumElements() int {
	return tensor.Shape(h.Shape).NumElements()
}

// fixedHeader is the decoded 64-byte prefix.
//
//	0x00-0x03: magic "NDAR"
//	0x04-0x07: version
//	0x08-0x0B: flags
//	0x0C-0x0F: reserved
//	0x10-0x17: JSON header size
//	0x18-0x1F: payload size
//	0x20-0x3F: SHA-256 of the uncompressed element bytes
type fixedHeader struct {
	version    uint32
	flags      uint32
	headerSize uint64
	dataSize   uint64
	checksum   [ChecksumSize]byte
}

// paddingAfter returns the number of zero bytes that align the payload.
func paddingAfter(headerSize uint64) int64 {
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	pos := int64(FixedHeaderSize) + int64(headerSize)
	return (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
}
