package section

const (
	// Bit masks of Flag.Options
	CollisionMask    = 0x0001 // Mask for id collision bit (bit 0)
	EndiannessMask   = 0x0002 // Mask for endianness bit (bit 1)
	ReservedBitsMask = 0x000C // Mask for reserved bits (bits 2-3)
	MagicNumberMask  = 0xFFF0 // Mask for magic number (bits 4-15)

	// MagicSnapshotV1Opt is the version 1 magic number of trace snapshots.
	MagicSnapshotV1Opt = 0xEC10
)

// Series kinds stored in index entries.
const (
	KindVariable uint8 = 0 // posterior variable
	KindStat     uint8 = 1 // per-draw sampler statistic
)

// offset and section sizes in the snapshot
const (
	HeaderSize        = 48         // fixed header size in bytes
	IndexOffsetOffset = HeaderSize // byte offset where the index section starts
	ChecksumSize      = 8          // xxHash64 of everything before it, after the payload
	MaxRank           = 8          // largest series rank an index entry can describe
	MaxChains         = 1 << 16    // most chains a snapshot can hold
)
