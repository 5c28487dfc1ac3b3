// Package compress provides the codecs applied to trace snapshot payloads.
//
// A snapshot payload is the concatenation of every encoded draw column. It is compressed as
// a single block after column encoding:
//
//	codec, err := compress.GetCodec(format.CompressionZstd)
//	if err != nil {
//	    return err
//	}
//	packed, err := codec.Compress(payload)
//
// Supported algorithms:
//   - None: payload stored as-is
//   - Zstd: best ratio, the default for snapshots (pure Go klauspost/compress; build with
//     the cgozstd tag to use valyala/gozstd instead)
//   - S2: fast Snappy-compatible compression
//   - LZ4: fastest decompression
//
// Raw-encoded draws are close to incompressible in their low mantissa bits, so Zstd gains
// little over Gorilla encoding on long chains; LZ4 or None are reasonable when snapshots
// are short-lived.
//
// All codecs are stateless values and safe for concurrent use.
package compress
