package section

import (
	"fmt"

	"github.com/arloliu/linmix/endian"
	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/format"
)

// Flag is the packed options, encoding, and compression field of the snapshot header.
type Flag struct {
	// Options holds the collision and endianness bits and the magic number.
	Options uint16
	// EncodingType is the value encoding of every series.
	EncodingType uint8
	// CompressionType is the compression of the payload block.
	CompressionType uint8
}

// NewFlag creates a little-endian v1 flag with the given value encoding and compression.
func NewFlag(enc format.EncodingType, comp format.CompressionType) Flag {
	return Flag{
		Options:         MagicSnapshotV1Opt,
		EncodingType:    uint8(enc),
		CompressionType: uint8(comp),
	}
}

// HasCollision reports whether two series names share an id.
func (f Flag) HasCollision() bool {
	return f.Options&CollisionMask != 0
}

// SetCollision sets or clears the collision bit.
func (f *Flag) SetCollision(collision bool) {
	if collision {
		f.Options |= CollisionMask
	} else {
		f.Options &^= CollisionMask
	}
}

// IsBigEndian reports whether multi-byte fields are big endian.
func (f Flag) IsBigEndian() bool {
	return f.Options&EndiannessMask != 0
}

// GetEndianEngine returns the byte order of the snapshot.
func (f Flag) GetEndianEngine() endian.EndianEngine {
	if f.IsBigEndian() {
		return endian.GetBigEndianEngine()
	}

	return endian.GetLittleEndianEngine()
}

// MagicNumber returns the magic number bits.
func (f Flag) MagicNumber() uint16 {
	return f.Options & MagicNumberMask
}

// ValueEncoding returns the value encoding.
func (f Flag) ValueEncoding() format.EncodingType {
	return format.EncodingType(f.EncodingType)
}

// Compression returns the payload compression.
func (f Flag) Compression() format.CompressionType {
	return format.CompressionType(f.CompressionType)
}

// Validate checks the magic number, reserved bits, and enum values.
func (f Flag) Validate() error {
	if f.MagicNumber() != MagicSnapshotV1Opt {
		return fmt.Errorf("%w: magic number 0x%04x", errs.ErrInvalidSnapshotHeader, f.MagicNumber())
	}
	if f.Options&ReservedBitsMask != 0 {
		return fmt.Errorf("%w: reserved bits set", errs.ErrInvalidSnapshotHeader)
	}
	if !f.ValueEncoding().Valid() {
		return fmt.Errorf("%w: value encoding 0x%02x", errs.ErrInvalidSnapshotHeader, f.EncodingType)
	}
	switch f.Compression() {
	case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
	default:
		return fmt.Errorf("%w: compression 0x%02x", errs.ErrInvalidSnapshotHeader, f.CompressionType)
	}

	return nil
}
