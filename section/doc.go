// Package section defines the binary structures of trace snapshots.
//
// A snapshot is a fixed header, a variable-size index with one entry per series, the
// encoded and compressed payload, and a checksum:
//
//	┌──────────────────────────────────────────────────────────┐
//	│ Header (48 bytes, fixed)                                 │
//	├──────────────────────────────────────────────────────────┤
//	│ Index (one variable-size entry per series)               │
//	├──────────────────────────────────────────────────────────┤
//	│ Payload (encoded values, then compressed as one block)   │
//	├──────────────────────────────────────────────────────────┤
//	│ Checksum (8 bytes, xxHash64 of all preceding bytes)      │
//	└──────────────────────────────────────────────────────────┘
//
// # Header Format
//
//	Bytes  | Field           | Type     | Description
//	-------|-----------------|----------|-------------------------------------
//	0-3    | Flag            | uint32   | Options, value encoding, compression
//	4-7    | SeriesCount     | uint32   | Number of index entries
//	8-11   | Chains          | uint32   | Chains per series
//	12-15  | Draws           | uint32   | Draws per chain
//	16-19  | Tune            | uint32   | Discarded tuning iterations per chain
//	20-35  | RunID           | [16]byte | UUID of the sampling run
//	36-39  | IndexOffset     | uint32   | Byte offset of the index
//	40-43  | PayloadOffset   | uint32   | Byte offset of the stored payload
//	44-47  | PayloadLength   | uint32   | Byte length of the stored payload
//
// # Flag Format
//
//	Byte 0-1 (Options, 16 bits):
//	  Bit 0: id collision (names must be compared on lookup)
//	  Bit 1: endianness (0=little, 1=big)
//	  Bits 2-3: reserved, must be 0
//	  Bits 4-15: magic number (0xEC10 for snapshot v1)
//	Byte 2: value encoding (format.EncodingType)
//	Byte 3: payload compression (format.CompressionType)
//
// # Index Entry Format
//
//	Field   | Type            | Description
//	--------|-----------------|----------------------------------------------
//	ID      | uint64          | xxHash64 of the series name
//	Kind    | uint8           | 0=variable, 1=sampler statistic
//	Rank    | uint8           | number of dimensions
//	Dims    | Rank × uint32   | shape
//	Offset  | uint32          | byte offset in the decompressed payload
//	Length  | uint32          | encoded byte length
//	Name    | uint16 + bytes  | length-prefixed series name
package section
