package archive

import (
	"fmt"

	"github.com/arloliu/linmix/compress"
	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/format"
	"github.com/arloliu/linmix/internal/encoding"
	"github.com/arloliu/linmix/internal/hash"
	"github.com/arloliu/linmix/section"
	"github.com/arloliu/linmix/tensor"
	"github.com/arloliu/linmix/trace"
)

// snapshot is a parsed but not yet decoded snapshot.
type snapshot struct {
	header  section.Header
	entries []section.IndexEntry
	payload []byte // decompressed
}

func parse(data []byte) (*snapshot, error) {
	header, err := section.ParseHeader(data)
	if err != nil {
		return nil, err
	}

	end := uint64(header.PayloadOffset) + uint64(header.PayloadLength)
	if end+section.ChecksumSize > uint64(len(data)) {
		return nil, fmt.Errorf("%w: snapshot truncated: %d bytes, want %d", errs.ErrInvalidSnapshotHeader, len(data), end+section.ChecksumSize)
	}

	engine := header.Flag.GetEndianEngine()
	stored := data[header.PayloadOffset:end]
	if hash.Checksum(data[:end]) != engine.Uint64(data[end:]) {
		return nil, errs.ErrSnapshotChecksum
	}

	index := data[header.IndexOffset:header.PayloadOffset]
	entries := make([]section.IndexEntry, 0, header.SeriesCount)
	for range header.SeriesCount {
		e, n, err := section.ParseIndexEntry(index, engine)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		index = index[n:]
	}
	if len(index) != 0 {
		return nil, fmt.Errorf("%w: %d trailing index bytes", errs.ErrInvalidSnapshotIndex, len(index))
	}

	codec, err := compress.GetCodec(header.Flag.Compression())
	if err != nil {
		return nil, err
	}
	payload, err := codec.Decompress(stored)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}

	for _, e := range entries {
		if uint64(e.Offset)+uint64(e.Length) > uint64(len(payload)) {
			return nil, fmt.Errorf("%w: series %q exceeds the payload", errs.ErrInvalidSnapshotIndex, e.Name)
		}
		if err := checkSeries(header, e); err != nil {
			return nil, err
		}
	}

	return &snapshot{header: header, entries: entries, payload: payload}, nil
}

// checkSeries verifies that the value count implied by the header and the entry shape
// fits the stored series, before any sample storage is allocated.
func checkSeries(h section.Header, e section.IndexEntry) error {
	// the payload bounds every count, so anything above it is corrupt
	limit := 8*uint64(e.Length) + 1

	count := uint64(h.Chains)
	for _, n := range append([]int{int(h.Draws)}, e.Shape...) {
		if n < 0 {
			return fmt.Errorf("%w: series %q has a negative dimension", errs.ErrInvalidSnapshotIndex, e.Name)
		}
		if n != 0 && count > limit/uint64(n) {
			return fmt.Errorf("%w: series %q holds more values than its %d bytes", errs.ErrInvalidSnapshotIndex, e.Name, e.Length)
		}
		count *= uint64(n)
	}

	switch enc := h.Flag.ValueEncoding(); enc {
	case format.TypeRaw:
		if 8*count != uint64(e.Length) {
			return fmt.Errorf("%w: series %q has %d bytes, want %d", errs.ErrInvalidSnapshotIndex, e.Name, e.Length, 8*count)
		}
	case format.TypeGorilla:
		if count > limit {
			return fmt.Errorf("%w: series %q holds more values than its %d bytes", errs.ErrInvalidSnapshotIndex, e.Name, e.Length)
		}
	default:
		return fmt.Errorf("%w: value encoding %s", errs.ErrInvalidSnapshotHeader, enc)
	}

	return nil
}

// Decode restores a trace from a snapshot produced by Encode.
//
// Returns:
//   - *trace.Trace: the trace with its original run ID
//   - error: errs.ErrInvalidSnapshotHeader, errs.ErrInvalidSnapshotIndex,
//     errs.ErrSnapshotChecksum, or a decompression error
func Decode(data []byte) (*trace.Trace, error) {
	snap, err := parse(data)
	if err != nil {
		return nil, err
	}

	h := snap.header
	tr := trace.NewWithID(h.RunID, int(h.Chains), int(h.Draws), int(h.Tune))
	for _, e := range snap.entries {
		var s *trace.Samples
		if e.Kind == section.KindStat {
			s, err = tr.AddStat(e.Name)
		} else {
			s, err = tr.AddVariable(e.Name, tensor.Shape(e.Shape))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrInvalidSnapshotIndex, err)
		}
		if err := snap.fill(s, e); err != nil {
			return nil, err
		}
	}

	return tr, nil
}

// DecodeVariable restores a single series without decoding the others.
//
// Returns:
//   - *trace.Samples: the series
//   - error: errs.ErrUnknownVariable if the snapshot has no series called name, or a
//     snapshot error as in Decode
func DecodeVariable(data []byte, name string) (*trace.Samples, error) {
	snap, err := parse(data)
	if err != nil {
		return nil, err
	}

	id := hash.ID(name)
	for _, e := range snap.entries {
		if e.ID != id {
			continue
		}
		// ids are unique unless the collision bit is set
		if snap.header.Flag.HasCollision() && e.Name != name {
			continue
		}

		h := snap.header
		tr := trace.NewWithID(h.RunID, int(h.Chains), int(h.Draws), int(h.Tune))
		s, err := tr.AddVariable(e.Name, tensor.Shape(e.Shape))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrInvalidSnapshotIndex, err)
		}
		if err := snap.fill(s, e); err != nil {
			return nil, err
		}

		return s, nil
	}

	return nil, fmt.Errorf("%w: %q", errs.ErrUnknownVariable, name)
}

// fill decodes one series into s, reversing encodeSeries.
func (snap *snapshot) fill(s *trace.Samples, e section.IndexEntry) error {
	size := s.Size()
	draws := s.Draws()
	count := len(s.Chains) * size * draws
	raw := snap.payload[e.Offset : e.Offset+e.Length]

	var values []float64
	switch enc := snap.header.Flag.ValueEncoding(); enc {
	case format.TypeRaw:
		if len(raw) != 8*count {
			return fmt.Errorf("%w: series %q has %d bytes, want %d", errs.ErrInvalidSnapshotIndex, e.Name, len(raw), 8*count)
		}
		var err error
		values, err = encoding.DecodeRaw(make([]float64, 0, count), raw, count, snap.header.Flag.GetEndianEngine())
		if err != nil {
			return fmt.Errorf("%w: series %q: %w", errs.ErrInvalidSnapshotIndex, e.Name, err)
		}
	case format.TypeGorilla:
		var err error
		values, err = encoding.DecodeGorilla(make([]float64, 0, count), raw, count)
		if err != nil {
			return fmt.Errorf("%w: series %q: %w", errs.ErrInvalidSnapshotIndex, e.Name, err)
		}
	default:
		return fmt.Errorf("%w: value encoding %s", errs.ErrInvalidSnapshotHeader, enc)
	}

	pos := 0
	for _, chain := range s.Chains {
		for idx := range size {
			for i := range draws {
				chain[i*size+idx] = values[pos]
				pos++
			}
		}
	}

	return nil
}
