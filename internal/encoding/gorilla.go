package encoding

import (
	"errors"
	"math"
	"math/bits"
)

var errShortGorillaPayload = errors.New("gorilla payload truncated")

// GorillaEncoder compresses a column of float64 draws with Facebook's Gorilla XOR scheme.
//
// The first value is stored verbatim. Each later value is XOR-ed with its predecessor:
//   - XOR == 0: one 0 bit
//   - meaningful bits fit the previous window: bits "10" + window bits
//   - otherwise: bits "11" + 5 bits leading zeros + 6 bits (block size - 1) + block bits
//
// Posterior draws from a Metropolis-style sampler repeat whenever a proposal is rejected,
// and neighbouring draws share sign and exponent, so both short paths are common.
//
// See https://www.vldb.org/pvldb/vol8/p1816-teller.pdf for algorithm details.
type GorillaEncoder struct {
	out          []byte
	bitBuf       uint64
	bitCount     int
	prevValue    uint64
	prevLeading  int
	prevTrailing int
	prevBlock    int
	count        int
}

// NewGorillaEncoder creates an encoder that appends to dst.
func NewGorillaEncoder(dst []byte) *GorillaEncoder {
	return &GorillaEncoder{out: dst}
}

// Write encodes a single value.
func (e *GorillaEncoder) Write(val float64) {
	valBits := math.Float64bits(val)
	e.count++
	if e.count == 1 {
		e.prevValue = valBits
		e.writeBits(valBits, 64)

		return
	}

	xor := valBits ^ e.prevValue
	e.prevValue = valBits
	if xor == 0 {
		e.writeBits(0, 1)
		return
	}

	leading := bits.LeadingZeros64(xor)
	trailing := bits.TrailingZeros64(xor)
	if leading > 31 {
		leading = 31 // 5-bit field
	}

	if e.prevBlock > 0 && leading >= e.prevLeading && trailing >= e.prevTrailing {
		e.writeBits(0b10, 2)
		e.writeBits(xor>>uint(e.prevTrailing), e.prevBlock)

		return
	}

	block := 64 - leading - trailing
	e.writeBits(0b11, 2)
	e.writeBits(uint64(leading), 5) //nolint:gosec // 0..31
	e.writeBits(uint64(block-1), 6) //nolint:gosec // 0..63
	e.writeBits(xor>>uint(trailing), block)
	e.prevLeading = leading
	e.prevTrailing = trailing
	e.prevBlock = block
}

// WriteSlice encodes values in order.
func (e *GorillaEncoder) WriteSlice(values []float64) {
	for _, v := range values {
		e.Write(v)
	}
}

// Len returns the number of values written.
func (e *GorillaEncoder) Len() int {
	return e.count
}

// Finish flushes pending bits, padding the last byte with zeros, and returns the output.
// The encoder must not be used afterwards.
func (e *GorillaEncoder) Finish() []byte {
	if e.bitCount > 0 {
		word := e.bitBuf << uint(64-e.bitCount)
		nbytes := (e.bitCount + 7) / 8
		for i := range nbytes {
			e.out = append(e.out, byte(word>>uint(56-8*i)))
		}
		e.bitBuf, e.bitCount = 0, 0
	}

	return e.out
}

func (e *GorillaEncoder) writeBits(value uint64, numBits int) {
	for numBits > 0 {
		take := min(numBits, 64-e.bitCount)
		chunk := (value >> uint(numBits-take)) & lowMask(take)
		e.bitBuf = e.bitBuf<<uint(take) | chunk
		e.bitCount += take
		numBits -= take

		if e.bitCount == 64 {
			for i := range 8 {
				e.out = append(e.out, byte(e.bitBuf>>uint(56-8*i)))
			}
			e.bitBuf, e.bitCount = 0, 0
		}
	}
}

func lowMask(n int) uint64 {
	if n >= 64 {
		return math.MaxUint64
	}

	return (uint64(1) << uint(n)) - 1
}

// DecodeGorilla decodes count values from data and appends them to dst.
func DecodeGorilla(dst []float64, data []byte, count int) ([]float64, error) {
	if count == 0 {
		return dst, nil
	}

	br := bitReader{data: data}
	first, ok := br.readBits(64)
	if !ok {
		return dst, errShortGorillaPayload
	}
	dst = append(dst, math.Float64frombits(first))

	prev := first
	leading, block := 0, 0
	for i := 1; i < count; i++ {
		ctrl, ok := br.readBits(1)
		if !ok {
			return dst, errShortGorillaPayload
		}
		if ctrl == 0 {
			dst = append(dst, math.Float64frombits(prev))
			continue
		}

		newBlock, ok := br.readBits(1)
		if !ok {
			return dst, errShortGorillaPayload
		}
		if newBlock == 1 {
			l, ok1 := br.readBits(5)
			b, ok2 := br.readBits(6)
			if !ok1 || !ok2 {
				return dst, errShortGorillaPayload
			}
			leading, block = int(l), int(b)+1
		} else if block == 0 {
			return dst, errors.New("gorilla payload reuses an undefined block")
		}

		meaningful, ok := br.readBits(block)
		if !ok {
			return dst, errShortGorillaPayload
		}
		trailing := 64 - leading - block
		prev ^= meaningful << uint(trailing)
		dst = append(dst, math.Float64frombits(prev))
	}

	return dst, nil
}

type bitReader struct {
	data []byte
	pos  int
}

func (r *bitReader) readBits(n int) (uint64, bool) {
	if r.pos+n > len(r.data)*8 {
		return 0, false
	}

	var v uint64
	for n > 0 {
		off := r.pos % 8
		avail := 8 - off
		take := min(avail, n)
		b := uint64(r.data[r.pos/8])
		v = v<<uint(take) | (b>>uint(avail-take))&lowMask(take)
		r.pos += take
		n -= take
	}

	return v, true
}
