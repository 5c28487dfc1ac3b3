package encoding

import (
	"errors"
	"math"

	"github.com/arloliu/linmix/endian"
)

var errShortRawPayload = errors.New("raw payload length does not match value count")

// RawEncoder stores float64 draws as fixed 8-byte IEEE 754 words.
type RawEncoder struct {
	out    []byte
	engine endian.EndianEngine
	count  int
}

// NewRawEncoder creates an encoder that appends to dst in the byte order of engine.
func NewRawEncoder(dst []byte, engine endian.EndianEngine) *RawEncoder {
	return &RawEncoder{out: dst, engine: engine}
}

// Write encodes a single value.
func (e *RawEncoder) Write(val float64) {
	e.count++
	e.out = e.engine.AppendUint64(e.out, math.Float64bits(val))
}

// WriteSlice encodes values in order.
func (e *RawEncoder) WriteSlice(values []float64) {
	e.out = grow(e.out, 8*len(values))
	for _, v := range values {
		e.out = e.engine.AppendUint64(e.out, math.Float64bits(v))
	}
	e.count += len(values)
}

// Len returns the number of values written.
func (e *RawEncoder) Len() int {
	return e.count
}

// Finish returns the encoded bytes. The encoder must not be used afterwards.
func (e *RawEncoder) Finish() []byte {
	out := e.out
	e.out = nil

	return out
}

// DecodeRaw appends count values decoded from data to dst.
func DecodeRaw(dst []float64, data []byte, count int, engine endian.EndianEngine) ([]float64, error) {
	if len(data) != 8*count {
		return dst, errShortRawPayload
	}

	dst = grow(dst, count)
	for i := range count {
		dst = append(dst, math.Float64frombits(engine.Uint64(data[8*i:])))
	}

	return dst, nil
}

func grow[T any](s []T, n int) []T {
	if cap(s)-len(s) >= n {
		return s
	}
	out := make([]T, len(s), len(s)+n)
	copy(out, s)

	return out
}
