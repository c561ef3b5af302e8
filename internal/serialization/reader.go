package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/ndarray/internal/tensor"
)

// ReaderOptions configures Decode.
type ReaderOptions struct {
	SkipChecksumValidation bool // Skip checksum validation (faster but less safe)
}

// ReadHeader reads and validates the headers at the start of r, leaving r
// positioned at the first payload byte.
func ReadHeader(r io.Reader) (*Header, error) {
	h, _, err := readHeaders(r)
	return h, err
}

func readHeaders(r io.Reader) (*Header, fixedHeader, error) {
	var fh fixedHeader
	buf := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fh, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(buf[0:4]) != MagicBytes {
		return nil, fh, ErrInvalidMagic
	}
	fh.version = binary.LittleEndian.Uint32(buf[4:8])
	if fh.version != FormatVersion {
		return nil, fh, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, fh.version, FormatVersion)
	}
	fh.flags = binary.LittleEndian.Uint32(buf[8:12])
	fh.headerSize = binary.LittleEndian.Uint64(buf[16:24])
	fh.dataSize = binary.LittleEndian.Uint64(buf[24:32])
	copy(fh.checksum[:], buf[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if fh.headerSize > MaxHeaderSize {
		return nil, fh, ErrHeaderTooLarge
	}
	headerBytes := make([]byte, fh.headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fh, fmt.Errorf("failed to read header JSON: %w", err)
	}
	var h Header
	if err := json.Unmarshal(headerBytes, &h); err != nil {
		return nil, fh, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if err := ValidateHeader(&h, fh.dataSize); err != nil {
		return nil, fh, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := io.CopyN(io.Discard, r, paddingAfter(fh.headerSize)); err != nil {
		return nil, fh, fmt.Errorf("failed to skip padding: %w", err)
	}
	return &h, fh, nil
}

// Decode reads an array written by Encode and allocates it in ctx.
func Decode(r io.Reader, ctx *tensor.Context) (*tensor.Array, *Header, error) {
	return DecodeWithOptions(r, ctx, ReaderOptions{})
}

// DecodeWithOptions is Decode with custom options. The payload is read one
// block at a time straight into the new array. On failure nothing stays
// allocated in ctx.
func DecodeWithOptions(r io.Reader, ctx *tensor.Context, opts ReaderOptions) (*tensor.Array, *Header, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("decode: %w", tensor.ErrNullArgument)
	}
	h, fh, err := readHeaders(r)
	if err != nil {
		return nil, nil, err
	}
	dt, _ := h.DataType()
	codec, _ := ParseCompression(h.Compression)

	cp := ctx.Checkpoint()
	a, err := tensor.Create(ctx, tensor.Shape(h.Shape), dt)
	if err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}
	if err := readPayload(r, a.Bytes(), h.BlockSize, fh.dataSize, codec); err != nil {
		_ = ctx.Restore(cp)
		return nil, nil, err
	}
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(a.Bytes()), fh.checksum); err != nil {
			_ = ctx.Restore(cp)
			return nil, nil, err
		}
	}
	return a, h, nil
}

// readPayload fills data from the framed blocks in r, which must total
// exactly dataSize bytes.
func readPayload(r io.Reader, data []byte, blockSize int, dataSize uint64, codec Compression) error {
	frame := make([]byte, blockHeaderSize+blockSize)
	var consumed uint64
	for off := 0; off < len(data); off += blockSize {
		dst := data[off:min(off+blockSize, len(data))]
		if _, err := io.ReadFull(r, frame[:blockHeaderSize]); err != nil {
			return fmt.Errorf("block at offset %d: %w: %w", off, ErrCorruptBlock, err)
		}
		body := int(binary.LittleEndian.Uint32(frame[4:]))
		if body == 0 {
			body = int(binary.LittleEndian.Uint32(frame[0:]))
		}
		if body > len(dst) {
			return fmt.Errorf("block at offset %d: %w: %d byte body", off, ErrCorruptBlock, body)
		}
		if _, err := io.ReadFull(r, frame[blockHeaderSize:blockHeaderSize+body]); err != nil {
			return fmt.Errorf("block at offset %d: %w: %w", off, ErrCorruptBlock, err)
		}
		n, err := readBlock(frame[:blockHeaderSize+body], dst, codec)
		if err != nil {
			return fmt.Errorf("block at offset %d: %w", off, err)
		}
		consumed += uint64(n)
	}
	if consumed != dataSize {
		return fmt.Errorf("%w: payload is %d bytes, header says %d", ErrCorruptBlock, consumed, dataSize)
	}
	return nil
}

// ReadFile decodes the array stored at path into ctx.
func ReadFile(path string, ctx *tensor.Context, opts ReaderOptions) (*tensor.Array, *Header, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for loading
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return DecodeWithOptions(bufio.NewReader(file), ctx, opts)
}
