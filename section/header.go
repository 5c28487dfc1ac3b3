package section

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/arloliu/linmix/errs"
)

// Header is the fixed-size section at the start of a snapshot.
type Header struct {
	Flag        Flag   // byte offset 0-3
	SeriesCount uint32 // byte offset 4-7
	Chains      uint32 // byte offset 8-11
	Draws       uint32 // byte offset 12-15
	Tune        uint32 // byte offset 16-19
	// RunID is the UUID of the sampling run.
	RunID uuid.UUID // byte offset 20-35
	// IndexOffset is the byte offset of the first index entry.
	IndexOffset uint32 // byte offset 36-39
	// PayloadOffset is the byte offset of the stored, possibly compressed, payload.
	PayloadOffset uint32 // byte offset 40-43
	// PayloadLength is the stored payload length; the checksum follows it.
	PayloadLength uint32 // byte offset 44-47
}

// NewHeader creates a header for a run. Counts and offsets are filled in by the encoder.
func NewHeader(runID uuid.UUID, flag Flag) *Header {
	return &Header{
		Flag:        flag,
		RunID:       runID,
		IndexOffset: IndexOffsetOffset,
	}
}

// Bytes serializes the header.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	engine := h.Flag.GetEndianEngine()

	// the options word carries the endianness bit, so it is always little endian
	b[0] = byte(h.Flag.Options)
	b[1] = byte(h.Flag.Options >> 8)
	b[2] = h.Flag.EncodingType
	b[3] = h.Flag.CompressionType
	engine.PutUint32(b[4:8], h.SeriesCount)
	engine.PutUint32(b[8:12], h.Chains)
	engine.PutUint32(b[12:16], h.Draws)
	engine.PutUint32(b[16:20], h.Tune)
	copy(b[20:36], h.RunID[:])
	engine.PutUint32(b[36:40], h.IndexOffset)
	engine.PutUint32(b[40:44], h.PayloadOffset)
	engine.PutUint32(b[44:48], h.PayloadLength)

	return b
}

// Parse parses the header from exactly HeaderSize bytes.
//
// Returns:
//   - error: errs.ErrInvalidSnapshotHeader for a wrong size, flag, chain count, or inconsistent offsets
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return fmt.Errorf("%w: header is %d bytes, want %d", errs.ErrInvalidSnapshotHeader, len(data), HeaderSize)
	}

	h.Flag.Options = uint16(data[0]) | uint16(data[1])<<8
	h.Flag.EncodingType = data[2]
	h.Flag.CompressionType = data[3]
	if err := h.Flag.Validate(); err != nil {
		return err
	}

	engine := h.Flag.GetEndianEngine()
	h.SeriesCount = engine.Uint32(data[4:8])
	h.Chains = engine.Uint32(data[8:12])
	h.Draws = engine.Uint32(data[12:16])
	h.Tune = engine.Uint32(data[16:20])
	copy(h.RunID[:], data[20:36])
	h.IndexOffset = engine.Uint32(data[36:40])
	h.PayloadOffset = engine.Uint32(data[40:44])
	h.PayloadLength = engine.Uint32(data[44:48])

	if h.Chains > MaxChains {
		return fmt.Errorf("%w: %d chains", errs.ErrInvalidSnapshotHeader, h.Chains)
	}
	if h.IndexOffset != IndexOffsetOffset || h.PayloadOffset < h.IndexOffset {
		return fmt.Errorf("%w: index offset %d, payload offset %d", errs.ErrInvalidSnapshotHeader, h.IndexOffset, h.PayloadOffset)
	}

	return nil
}

// ParseHeader parses a header from the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", errs.ErrInvalidSnapshotHeader, len(data))
	}

	var h Header
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return Header{}, err
	}

	return h, nil
}
