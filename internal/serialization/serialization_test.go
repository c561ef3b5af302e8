package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/born-ml/ndarray/internal/tensor"
)

func newContext(t *testing.T) *tensor.Context {
	t.Helper()
	ctx, err := tensor.NewContext()
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	t.Cleanup(ctx.Free)
	return ctx
}

// ramp returns n values cycling through 0..period-1.
func ramp(n, period int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i % period)
	}
	return out
}

func encode(t *testing.T, a *tensor.Array, opts WriterOptions) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, a, opts); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return buf.Bytes()
}

// payloadStart returns the offset of the first block in an encoded file.
func payloadStart(b []byte) int {
	hs := binary.LittleEndian.Uint64(b[16:24])
	return FixedHeaderSize + int(hs) + int(paddingAfter(hs))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		codec Compression
		block int
	}{
		{"raw", CompressionNone, 0},
		{"lz4", CompressionLZ4, 0},
		{"zstd", CompressionZSTD, 0},
		{"lz4 small blocks", CompressionLZ4, MinBlockSize},
		{"zstd small blocks", CompressionZSTD, MinBlockSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newContext(t)
			want := ramp(10_000, 7)
			a, err := tensor.FromSlice(ctx, want, tensor.Shape{100, 100})
			if err != nil {
				t.Fatalf("FromSlice failed: %v", err)
			}

			b := encode(t, a, WriterOptions{
				Compression: tt.codec,
				BlockSize:   tt.block,
				Metadata:    map[string]string{"source": "test"},
			})
			if tt.codec != CompressionNone && len(b) >= a.ByteSize() {
				t.Errorf("%s output is %d bytes for %d raw bytes", tt.codec, len(b), a.ByteSize())
			}

			got, h, err := Decode(bytes.NewReader(b), ctx)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if h.DType != "float32" || !slices.Equal(h.Shape, []int{100, 100}) {
				t.Errorf("header = %s %v, want float32 [100 100]", h.DType, h.Shape)
			}
			if h.Compression != tt.codec.String() {
				t.Errorf("compression = %q, want %q", h.Compression, tt.codec)
			}
			if h.Metadata["source"] != "test" {
				t.Errorf("metadata = %v", h.Metadata)
			}
			values, err := tensor.ToSlice[float32](got)
			if err != nil {
				t.Fatalf("ToSlice failed: %v", err)
			}
			if !slices.Equal(values, want) {
				t.Error("decoded values differ from the source")
			}
		})
	}
}

func TestEncode_AllDataTypes(t *testing.T) {
	ctx := newContext(t)
	for dt := range tensor.DataType(tensor.NumDataTypes) {
		t.Run(dt.String(), func(t *testing.T) {
			a, err := tensor.Fill(ctx, tensor.Shape{3, 5}, dt, 42)
			if err != nil {
				t.Fatalf("Fill failed: %v", err)
			}
			got, _, err := Decode(bytes.NewReader(encode(t, a, WriterOptions{Compression: CompressionZSTD})), ctx)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got.DType() != dt {
				t.Errorf("dtype = %s, want %s", got.DType(), dt)
			}
			if !bytes.Equal(got.Bytes(), a.Bytes()) {
				t.Error("element bytes differ")
			}
		})
	}
}

func TestEncode_NonContiguous(t *testing.T) {
	ctx := newContext(t)
	a, err := tensor.FromSlice(ctx, []int32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if err := a.Transpose(); err != nil {
		t.Fatalf("Transpose failed: %v", err)
	}

	used := ctx.Metrics().InUse
	b := encode(t, a, WriterOptions{})
	if ctx.Metrics().InUse != used {
		t.Errorf("encode left %d bytes allocated", ctx.Metrics().InUse-used)
	}

	got, h, err := Decode(bytes.NewReader(b), ctx)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !slices.Equal(h.Shape, []int{3, 2}) {
		t.Errorf("shape = %v, want [3 2]", h.Shape)
	}
	values, _ := tensor.ToSlice[int32](got)
	if want := []int32{1, 4, 2, 5, 3, 6}; !slices.Equal(values, want) {
		t.Errorf("values = %v, want %v", values, want)
	}
}

func TestEncode_Errors(t *testing.T) {
	ctx := newContext(t)
	a, _ := tensor.Zeros(ctx, tensor.Shape{4}, tensor.Int8)

	var buf bytes.Buffer
	if err := Encode(&buf, nil, WriterOptions{}); !errors.Is(err, tensor.ErrNullArgument) {
		t.Errorf("nil array: got %v", err)
	}
	if err := Encode(&buf, a, WriterOptions{BlockSize: 16}); err == nil {
		t.Error("expected error for tiny block size")
	}
	if err := Encode(&buf, a, WriterOptions{Compression: Compression(9)}); !errors.Is(err, ErrUnsupportedCompression) {
		t.Errorf("unknown codec: got %v", err)
	}
	bad := map[string]string{"a\nb": "x"}
	var ve *ValidationError
	if err := Encode(&buf, a, WriterOptions{Metadata: bad}); !errors.As(err, &ve) {
		t.Errorf("bad metadata key: got %v", err)
	}
}

func TestDecode_Corruption(t *testing.T) {
	ctx := newContext(t)
	a, err := tensor.FromSlice(ctx, ramp(4096, 1000), tensor.Shape{4096})
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	clean := encode(t, a, WriterOptions{BlockSize: MinBlockSize})

	mutate := func(f func(b []byte) []byte) []byte {
		return f(slices.Clone(clean))
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b }), ErrInvalidMagic},
		{"version", mutate(func(b []byte) []byte { b[4] = 9; return b }), ErrUnsupportedVersion},
		{"header size", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[16:24], MaxHeaderSize+1)
			return b
		}), ErrHeaderTooLarge},
		{"flipped element", mutate(func(b []byte) []byte {
			b[payloadStart(b)+blockHeaderSize+5] ^= 0xff
			return b
		}), ErrChecksumMismatch},
		{"truncated", mutate(func(b []byte) []byte { return b[:len(b)-3] }), ErrCorruptBlock},
		{"block size field", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[payloadStart(b):], 100)
			return b
		}), ErrCorruptBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			used := ctx.Metrics().InUse
			_, _, err := Decode(bytes.NewReader(tt.data), ctx)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if ctx.Metrics().InUse != used {
				t.Error("failed decode left memory allocated")
			}
		})
	}

	t.Run("payload size", func(t *testing.T) {
		b := slices.Clone(clean)
		size := binary.LittleEndian.Uint64(b[24:32])
		binary.LittleEndian.PutUint64(b[24:32], size+1)
		var ve *ValidationError
		if _, _, err := Decode(bytes.NewReader(b), ctx); !errors.As(err, &ve) {
			t.Fatalf("got %v, want ValidationError", err)
		}
	})

	t.Run("skip checksum", func(t *testing.T) {
		b := slices.Clone(clean)
		b[payloadStart(b)+blockHeaderSize] ^= 0x01
		if _, _, err := DecodeWithOptions(bytes.NewReader(b), ctx, ReaderOptions{SkipChecksumValidation: true}); err != nil {
			t.Fatalf("DecodeWithOptions failed: %v", err)
		}
	})

	t.Run("nil context", func(t *testing.T) {
		if _, _, err := Decode(bytes.NewReader(clean), nil); !errors.Is(err, tensor.ErrNullArgument) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestDecode_RespectsMemoryLimit(t *testing.T) {
	src := newContext(t)
	a, _ := tensor.Zeros(src, tensor.Shape{1024, 1024}, tensor.Float64)
	b := encode(t, a, WriterOptions{Compression: CompressionZSTD})

	small, err := tensor.NewContext(tensor.WithBlockSize(1<<20), tensor.WithMemoryLimit(1<<20))
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	defer small.Free()

	_, _, err = Decode(bytes.NewReader(b), small)
	if !errors.Is(err, tensor.ErrAllocation) {
		t.Fatalf("got %v, want ErrAllocation", err)
	}
}

func TestReadHeader(t *testing.T) {
	ctx := newContext(t)
	a, _ := tensor.Ones(ctx, tensor.Shape{2, 3, 4}, tensor.Uint16)
	b := encode(t, a, WriterOptions{Compression: CompressionLZ4})

	r := bytes.NewReader(b)
	h, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if h.FormatVersion != FormatVersion || h.Library != Version {
		t.Errorf("version fields = %d %q", h.FormatVersion, h.Library)
	}
	if _, err := uuid.Parse(h.ID); err != nil {
		t.Errorf("id %q: %v", h.ID, err)
	}
	if dt, ok := h.DataType(); !ok || dt != tensor.Uint16 {
		t.Errorf("DataType() = %v, %v", dt, ok)
	}
	if h.NumElements() != 24 {
		t.Errorf("NumElements() = %d, want 24", h.NumElements())
	}
	if h.BlockSize != DefaultBlockSize {
		t.Errorf("BlockSize = %d", h.BlockSize)
	}
	if off := int(r.Size()) - r.Len(); off != payloadStart(b) {
		t.Errorf("reader at %d, payload starts at %d", off, payloadStart(b))
	}
	if payloadStart(b)%HeaderAlignment != 0 {
		t.Error("payload is not aligned")
	}

	flags := binary.LittleEndian.Uint32(b[8:12])
	if flags&FlagCompressed == 0 || flags&FlagHasMetadata != 0 {
		t.Errorf("flags = %b", flags)
	}
}

func TestValidateHeader(t *testing.T) {
	valid := func() Header {
		return Header{
			FormatVersion: FormatVersion,
			DType:         "int32",
			Shape:         []int{10, 10},
			ByteOrder:     nativeOrder,
			Compression:   "none",
			BlockSize:     DefaultBlockSize,
		}
	}
	const rawSize = 400 + blockHeaderSize

	h := valid()
	if err := ValidateHeader(&h, rawSize); err != nil {
		t.Fatalf("valid header rejected: %v", err)
	}

	tests := []struct {
		name     string
		mutate   func(h *Header)
		dataSize uint64
		want     string
	}{
		{"dtype", func(h *Header) { h.DType = "complex64" }, rawSize, "bad_dtype"},
		{"empty shape", func(h *Header) { h.Shape = nil }, rawSize, "bad_shape"},
		{"zero dim", func(h *Header) { h.Shape = []int{10, 0} }, rawSize, "bad_shape"},
		{"overflow", func(h *Header) { h.Shape = []int{1 << 40, 1 << 40} }, rawSize, "bad_shape"},
		{"block size", func(h *Header) { h.BlockSize = 1 }, rawSize, "bad_block_size"},
		{"payload too big", func(h *Header) {}, rawSize + 1, "payload_size"},
		{"payload too small", func(h *Header) {}, 4, "payload_size"},
		{"raw payload short", func(h *Header) {}, rawSize - 1, "payload_size"},
		{"raw payload for huge shape", func(h *Header) {
			h.DType = "float64"
			h.Shape = []int{1 << 40}
		}, rawSize, "payload_size"},
		{"decompression ratio", func(h *Header) {
			h.DType = "float64"
			h.Shape = []int{1 << 40}
			h.Compression = "zstd"
		}, (1<<43/DefaultBlockSize)*blockHeaderSize + 1000, "decompression_ratio"},
		{"metadata", func(h *Header) { h.Metadata = map[string]string{"": "x"} }, rawSize, "bad_metadata_key"},
		{"id", func(h *Header) { h.ID = "not-a-uuid" }, rawSize, "bad_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := valid()
			tt.mutate(&h)
			err := ValidateHeader(&h, tt.dataSize)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if ve.Type != tt.want {
				t.Errorf("type = %q, want %q", ve.Type, tt.want)
			}
		})
	}

	h = valid()
	h.Compression = "zstd"
	if err := ValidateHeader(&h, blockHeaderSize+1); err != nil {
		t.Errorf("compressed header rejected: %v", err)
	}

	h = valid()
	h.Compression = "snappy"
	if err := ValidateHeader(&h, rawSize); !errors.Is(err, ErrUnsupportedCompression) {
		t.Errorf("codec: got %v", err)
	}
	h = valid()
	h.ByteOrder = "middle"
	if err := ValidateHeader(&h, rawSize); !errors.Is(err, ErrByteOrder) {
		t.Errorf("byte order: got %v", err)
	}
}

func TestDecode_RejectsOversizedShape(t *testing.T) {
	h := Header{
		FormatVersion: FormatVersion,
		DType:         "float64",
		Shape:         []int{1 << 40},
		ByteOrder:     nativeOrder,
		Compression:   "none",
		BlockSize:     DefaultBlockSize,
	}
	headerJSON, err := json.Marshal(h)
	if err != nil {
		t.Fatal(err)
	}
	fixed := make([]byte, FixedHeaderSize)
	copy(fixed, MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], blockHeaderSize+8)

	var buf bytes.Buffer
	buf.Write(fixed)
	buf.Write(headerJSON)
	buf.Write(make([]byte, paddingAfter(uint64(len(headerJSON)))+blockHeaderSize+8))

	ctx := newContext(t)
	_, _, err = Decode(&buf, ctx)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Type != "payload_size" {
		t.Fatalf("got %v, want payload_size", err)
	}
	if n := ctx.Metrics().NumBlocks; n != 0 {
		t.Errorf("rejected header still reserved %d blocks", n)
	}
}

func TestAppendBlock(t *testing.T) {
	zeros := make([]byte, 8192)
	noise := make([]byte, 8192)
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range noise {
		noise[i] = byte(rng.Uint32())
	}

	for _, codec := range []Compression{CompressionLZ4, CompressionZSTD} {
		t.Run(codec.String(), func(t *testing.T) {
			packed, err := appendBlock(nil, zeros, codec)
			if err != nil {
				t.Fatalf("appendBlock failed: %v", err)
			}
			if binary.LittleEndian.Uint32(packed[4:]) == 0 {
				t.Error("zeros were not compressed")
			}

			raw, err := appendBlock(nil, noise, codec)
			if err != nil {
				t.Fatalf("appendBlock failed: %v", err)
			}
			if binary.LittleEndian.Uint32(raw[4:]) != 0 || len(raw) != blockHeaderSize+len(noise) {
				t.Error("incompressible block was not stored raw")
			}

			for _, block := range [][]byte{packed, raw} {
				dst := make([]byte, 8192)
				n, err := readBlock(block, dst, codec)
				if err != nil {
					t.Fatalf("readBlock failed: %v", err)
				}
				if n != len(block) {
					t.Errorf("consumed %d of %d bytes", n, len(block))
				}
			}
		})
	}
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		got, err := ParseCompression(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCompression(%q) = %v, %v", c, got, err)
		}
	}
	if Compression(7).String() != "unknown" {
		t.Error("unknown codec should print as unknown")
	}
	if _, err := ParseCompression("gzip"); !errors.Is(err, ErrUnsupportedCompression) {
		t.Errorf("got %v", err)
	}
}

func TestChecksum(t *testing.T) {
	data := []byte("test data")
	sum := ComputeChecksum(data)
	if sum != ComputeChecksum(data) {
		t.Error("checksums should match for identical data")
	}
	if sum == ComputeChecksum([]byte("different data")) {
		t.Error("checksums should differ for different data")
	}

	if err := ValidateChecksum(ComputeChecksum([]byte("test data")), sum); err != nil {
		t.Errorf("checksum should match: %v", err)
	}
	if err := ValidateChecksum([ChecksumSize]byte{}, sum); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("got %v, want ErrChecksumMismatch", err)
	}
}

func TestWriteFileReadFile(t *testing.T) {
	ctx := newContext(t)
	a, _ := tensor.FromSlice(ctx, []float64{1.5, -2, 3.25}, tensor.Shape{3})
	path := filepath.Join(t.TempDir(), "a.ndar")

	if err := WriteFile(path, a, WriterOptions{Compression: CompressionZSTD}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, _, err := ReadFile(path, ctx, ReaderOptions{})
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	values, _ := tensor.ToSlice[float64](got)
	if !slices.Equal(values, []float64{1.5, -2, 3.25}) {
		t.Errorf("values = %v", values)
	}

	if _, _, err := ReadFile(filepath.Join(t.TempDir(), "missing"), ctx, ReaderOptions{}); err == nil {
		t.Error("expected error for a missing file")
	}
}
