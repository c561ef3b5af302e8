package serialization

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ZSTD encoder/decoder pools.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Block layout: [uncompressed uint32][compressed uint32][data...].
// A compressed size of 0 means the block is stored raw.
const blockHeaderSize = 8

// maxStoredRatio is the largest compressed/raw ratio worth keeping.
const maxStoredRatio = 0.9

// appendBlock appends data as one framed block to dst. The block is stored
// raw when the codec does not shrink it below maxStoredRatio.
func appendBlock(dst, data []byte, c Compression) ([]byte, error) {
	var compressed []byte
	var err error
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZSTD:
		compressed, err = compressZSTD(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCompression, c)
	}
	if err != nil {
		return nil, err
	}

	var hdr [blockHeaderSize]byte
	//nolint:gosec // G115: block sizes are bounded by MaxBlockSize
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(data)))
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*maxStoredRatio {
		dst = append(dst, hdr[:]...)
		return append(dst, data...), nil
	}
	//nolint:gosec // G115: compressed output is smaller than the block
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(compressed)))
	dst = append(dst, hdr[:]...)
	return append(dst, compressed...), nil
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	// n == 0 means incompressible.
	return compressed[:n], nil
}

func compressZSTD(data []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer putZstdEncoder(enc)
	return enc.EncodeAll(data, nil), nil
}

// readBlock decodes the block at the start of src into dst, which must be
// exactly the block's uncompressed size. It returns the bytes consumed.
func readBlock(src, dst []byte, c Compression) (int, error) {
	if len(src) < blockHeaderSize {
		return 0, fmt.Errorf("%w: truncated block header", ErrCorruptBlock)
	}
	raw := int(binary.LittleEndian.Uint32(src[0:]))
	packed := int(binary.LittleEndian.Uint32(src[4:]))
	if raw != len(dst) {
		return 0, fmt.Errorf("%w: block holds %d bytes, want %d", ErrCorruptBlock, raw, len(dst))
	}
	body := src[blockHeaderSize:]

	if packed == 0 {
		if len(body) < raw {
			return 0, fmt.Errorf("%w: raw block truncated", ErrCorruptBlock)
		}
		copy(dst, body[:raw])
		return blockHeaderSize + raw, nil
	}
	if len(body) < packed {
		return 0, fmt.Errorf("%w: compressed block truncated", ErrCorruptBlock)
	}
	body = body[:packed]

	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(body, dst)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if n != raw {
			return 0, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return 0, err
		}
		defer putZstdDecoder(dec)
		decoded, err := dec.DecodeAll(body, dst[:0:raw])
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if len(decoded) != raw {
			return 0, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
	default:
		return 0, fmt.Errorf("%w: compressed block in a %s file", ErrCorruptBlock, c)
	}
	return blockHeaderSize + packed, nil
}
