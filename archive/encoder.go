package archive

import (
	"fmt"
	"math"

	"github.com/arloliu/linmix/compress"
	"github.com/arloliu/linmix/endian"
	"github.com/arloliu/linmix/format"
	"github.com/arloliu/linmix/internal/collision"
	"github.com/arloliu/linmix/internal/encoding"
	"github.com/arloliu/linmix/internal/hash"
	"github.com/arloliu/linmix/internal/options"
	"github.com/arloliu/linmix/internal/pool"
	"github.com/arloliu/linmix/section"
	"github.com/arloliu/linmix/trace"
)

// Encode serializes a trace.
//
// Parameters:
//   - tr: trace to encode
//   - opts: value encoding, compression, and whether to keep sampler statistics
//
// Returns:
//   - []byte: the snapshot
//   - error: an invalid option, an index error, or a compression failure
func Encode(tr *trace.Trace, opts ...Option) ([]byte, error) {
	cfg := defaultEncoderConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	codec, err := compress.GetCodec(cfg.compression)
	if err != nil {
		return nil, err
	}

	type series struct {
		samples *trace.Samples
		kind    uint8
	}
	all := make([]series, 0, len(tr.Variables())+len(tr.Stats()))
	for _, s := range tr.Variables() {
		all = append(all, series{s, section.KindVariable})
	}
	if cfg.stats {
		for _, s := range tr.Stats() {
			all = append(all, series{s, section.KindStat})
		}
	}

	if tr.Chains > section.MaxChains {
		return nil, fmt.Errorf("%d chains exceed the snapshot limit of %d", tr.Chains, section.MaxChains)
	}

	engine := endian.GetLittleEndianEngine()
	tracker := collision.NewTracker()
	buf := pool.GetSnapshotBuffer()
	defer pool.PutSnapshotBuffer(buf)

	entries := make([]section.IndexEntry, 0, len(all))
	for _, s := range all {
		entry := section.NewIndexEntry(s.samples.Name, s.kind, s.samples.Shape)
		if err := tracker.Track(entry.Name, entry.ID); err != nil {
			return nil, err
		}

		start := buf.Len()
		if err := encodeSeries(buf, s.samples, cfg.encoding, engine); err != nil {
			return nil, err
		}
		entry.Offset = uint32(start)             //nolint:gosec // payload is bounded by the uint32 check below
		entry.Length = uint32(buf.Len() - start) //nolint:gosec // same
		entries = append(entries, entry)
	}
	if buf.Len() > math.MaxUint32 {
		return nil, fmt.Errorf("payload of %d bytes exceeds the snapshot limit", buf.Len())
	}

	stored, err := codec.Compress(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}

	flag := section.NewFlag(cfg.encoding, cfg.compression)
	flag.SetCollision(tracker.HasCollision())
	header := section.NewHeader(tr.ID, flag)
	header.SeriesCount = uint32(len(entries)) //nolint:gosec // bounded by memory
	header.Chains = uint32(tr.Chains)         //nolint:gosec // bounded by MaxChains
	header.Draws = uint32(tr.Draws)           //nolint:gosec // same
	header.Tune = uint32(tr.Tune)             //nolint:gosec // same

	index := make([]byte, 0, 64*len(entries))
	for _, e := range entries {
		if index, err = e.AppendTo(index, engine); err != nil {
			return nil, err
		}
	}
	header.PayloadOffset = uint32(section.HeaderSize + len(index)) //nolint:gosec // bounded by memory
	header.PayloadLength = uint32(len(stored))                     //nolint:gosec // same

	out := make([]byte, 0, section.HeaderSize+len(index)+len(stored)+section.ChecksumSize)
	out = append(out, header.Bytes()...)
	out = append(out, index...)
	out = append(out, stored...)
	out = engine.AppendUint64(out, hash.Checksum(out))

	return out, nil
}

// encodeSeries writes the draws of one series ordered by chain, then element, then draw,
// so consecutive values are the history of a single scalar. Each series is one stream.
func encodeSeries(buf *pool.ByteBuffer, s *trace.Samples, enc format.EncodingType, engine endian.EndianEngine) error {
	var col interface {
		WriteSlice(values []float64)
		Finish() []byte
	}
	switch enc {
	case format.TypeRaw:
		col = encoding.NewRawEncoder(make([]byte, 0, 8*s.Len()*s.Size()), engine)
	case format.TypeGorilla:
		col = encoding.NewGorillaEncoder(make([]byte, 0, s.Len()*s.Size()))
	default:
		return fmt.Errorf("unsupported value encoding: %s", enc)
	}

	size := s.Size()
	draws := s.Draws()
	column := make([]float64, draws)
	for _, chain := range s.Chains {
		for idx := range size {
			for i := range draws {
				column[i] = chain[i*size+idx]
			}
			col.WriteSlice(column)
		}
	}
	_, _ = buf.Write(col.Finish())

	return nil
}
