package section

import (
	"fmt"

	"github.com/arloliu/linmix/endian"
	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/internal/encoding"
	"github.com/arloliu/linmix/internal/hash"
)

// IndexEntry describes one series of a snapshot.
type IndexEntry struct {
	// ID is the xxHash64 of Name.
	ID   uint64
	Kind uint8
	// Shape is the shape of one draw of the series.
	Shape []int
	// Offset is the byte offset of the series in the decompressed payload.
	Offset uint32
	// Length is the encoded byte length of the series.
	Length uint32
	Name   string
}

// NewIndexEntry creates an entry whose ID is derived from name.
func NewIndexEntry(name string, kind uint8, shape []int) IndexEntry {
	return IndexEntry{ID: hash.ID(name), Kind: kind, Shape: append([]int(nil), shape...), Name: name}
}

// AppendTo serializes the entry onto dst.
func (e IndexEntry) AppendTo(dst []byte, engine endian.EndianEngine) ([]byte, error) {
	if len(e.Shape) > MaxRank {
		return dst, fmt.Errorf("%w: series %q has rank %d", errs.ErrInvalidSnapshotIndex, e.Name, len(e.Shape))
	}

	dst = engine.AppendUint64(dst, e.ID)
	dst = append(dst, e.Kind, uint8(len(e.Shape)))
	for _, d := range e.Shape {
		dst = engine.AppendUint32(dst, uint32(d)) //nolint:gosec // shapes are small and non-negative
	}
	dst = engine.AppendUint32(dst, e.Offset)
	dst = engine.AppendUint32(dst, e.Length)

	out, err := encoding.AppendName(dst, e.Name, engine)
	if err != nil {
		return dst, fmt.Errorf("%w: %w", errs.ErrInvalidSnapshotIndex, err)
	}

	return out, nil
}

// ParseIndexEntry reads one entry from the start of data and returns it with the number
// of bytes consumed.
func ParseIndexEntry(data []byte, engine endian.EndianEngine) (IndexEntry, int, error) {
	const fixed = 8 + 1 + 1
	if len(data) < fixed {
		return IndexEntry{}, 0, fmt.Errorf("%w: entry truncated", errs.ErrInvalidSnapshotIndex)
	}

	var e IndexEntry
	e.ID = engine.Uint64(data[0:8])
	e.Kind = data[8]
	rank := int(data[9])
	if e.Kind != KindVariable && e.Kind != KindStat {
		return IndexEntry{}, 0, fmt.Errorf("%w: unknown series kind %d", errs.ErrInvalidSnapshotIndex, e.Kind)
	}
	if rank > MaxRank {
		return IndexEntry{}, 0, fmt.Errorf("%w: rank %d", errs.ErrInvalidSnapshotIndex, rank)
	}

	pos := fixed
	if len(data) < pos+4*rank+8 {
		return IndexEntry{}, 0, fmt.Errorf("%w: entry truncated", errs.ErrInvalidSnapshotIndex)
	}
	e.Shape = make([]int, rank)
	for i := range rank {
		e.Shape[i] = int(engine.Uint32(data[pos:]))
		pos += 4
	}
	e.Offset = engine.Uint32(data[pos:])
	e.Length = engine.Uint32(data[pos+4:])
	pos += 8

	name, n, err := encoding.ReadName(data[pos:], engine)
	if err != nil {
		return IndexEntry{}, 0, fmt.Errorf("%w: %w", errs.ErrInvalidSnapshotIndex, err)
	}
	e.Name = name
	pos += n

	if hash.ID(name) != e.ID {
		return IndexEntry{}, 0, fmt.Errorf("%w: id of %q does not match its name", errs.ErrInvalidSnapshotIndex, name)
	}

	return e, pos, nil
}
