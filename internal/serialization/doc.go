// Package serialization persists a single array in a small binary container.
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    magic "NDAR", version (uint32 LE), flags (uint32 LE), reserved,
//	    JSON header size (uint64 LE), payload size (uint64 LE),
//	    SHA-256 of the uncompressed element bytes
//	  [Header: JSON metadata (dtype, shape, byte order, codec, block size)]
//	  [Padding to a 64-byte boundary]
//	  [Payload: framed blocks [raw size u32][compressed size u32][data]]
//
// Elements are stored in logical C order regardless of the source layout.
// Blocks are compressed with LZ4 or Zstandard when requested and fall back to
// raw storage when compression saves less than 10%.
//
// Example usage:
//
//	var buf bytes.Buffer
//	err := serialization.Encode(&buf, a, serialization.WriterOptions{
//	    Compression: serialization.CompressionZSTD,
//	})
//
//	b, header, err := serialization.Decode(&buf, ctx)
package serialization
