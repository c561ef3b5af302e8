package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/ndarray/internal/tensor"
)

// Version is the library version recorded in written headers.
const Version = "0.1.0"

// nativeOrder names the byte order of element data on this machine.
var nativeOrder = func() string {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return "little"
	}
	return "big"
}()

// WriterOptions configures Encode.
type WriterOptions struct {
	Compression Compression       // Block codec (default none)
	BlockSize   int               // Uncompressed bytes per block (default DefaultBlockSize)
	Metadata    map[string]string // Custom metadata stored in the header
}

// Encode writes a to w: fixed header, JSON header, padding, then the element
// bytes in logical C order split into framed blocks. Non-contiguous arrays are
// materialized in a temporary that is released before Encode returns.
func Encode(w io.Writer, a *tensor.Array, opts WriterOptions) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.BlockSize < MinBlockSize || opts.BlockSize > MaxBlockSize {
		return fmt.Errorf("encode: block size %d not in [%d, %d]", opts.BlockSize, MinBlockSize, MaxBlockSize)
	}
	if err := ValidateMetadata(opts.Metadata); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	src := a
	if !a.IsContiguous() {
		ctx := a.Context()
		cp := ctx.Checkpoint()
		defer func() { _ = ctx.Restore(cp) }()
		c, err := a.Copy()
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		src = c
	}
	data := src.Bytes()

	payload := make([]byte, 0, len(data)+(len(data)/opts.BlockSize+1)*blockHeaderSize)
	for off := 0; off < len(data); off += opts.BlockSize {
		var err error
		payload, err = appendBlock(payload, data[off:min(off+opts.BlockSize, len(data))], opts.Compression)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	}

	header := Header{
		FormatVersion: FormatVersion,
		ID:            uuid.NewString(),
		Library:       Version,
		CreatedAt:     time.Now().UTC(),
		DType:         a.DType().String(),
		Shape:         []int(a.Shape()),
		ByteOrder:     nativeOrder,
		Compression:   opts.Compression.String(),
		BlockSize:     opts.BlockSize,
		Metadata:      opts.Metadata,
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	flags := uint32(0)
	if opts.Compression != CompressionNone {
		flags |= FlagCompressed
	}
	if len(opts.Metadata) > 0 {
		flags |= FlagHasMetadata
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(payload)))
	sum := ComputeChecksum(data)
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], sum[:])

	if _, err := w.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}
	if padding := paddingAfter(uint64(len(headerJSON))); padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// WriteFile encodes a into the file at path, replacing it.
func WriteFile(path string, a *tensor.Array, opts WriterOptions) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()
	return Encode(file, a, opts)
}
