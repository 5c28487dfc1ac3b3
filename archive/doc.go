// Package archive serializes posterior traces into compact in-memory snapshots.
//
// A snapshot stores every variable and sampler statistic of a trace.Trace together with
// the run ID and chain layout. Values are encoded per element and chain, either as raw
// little-endian float64 words or with Gorilla XOR compression, and the encoded payload is
// compressed as one block with Zstd, S2, LZ4, or not at all:
//
//	data, err := archive.Encode(tr, archive.WithCompression(format.CompressionS2))
//	...
//	restored, err := archive.Decode(data)
//
// The binary layout is described in the section package. Snapshots carry an xxHash64
// checksum of the header, index and stored payload, so truncation and corruption are
// reported as errors instead of producing wrong draws. Series counts are also checked
// against the stored lengths before any sample storage is allocated.
package archive
