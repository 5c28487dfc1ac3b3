package encoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/linmix/endian"
)

func TestRawRoundTrip(t *testing.T) {
	values := []float64{0, -1.5, math.Pi, math.Inf(1), math.SmallestNonzeroFloat64}

	for name, engine := range map[string]endian.EndianEngine{
		"little": endian.GetLittleEndianEngine(),
		"big":    endian.GetBigEndianEngine(),
	} {
		t.Run(name, func(t *testing.T) {
			enc := NewRawEncoder(nil, engine)
			enc.Write(values[0])
			enc.WriteSlice(values[1:])
			require.Equal(t, len(values), enc.Len())

			data := enc.Finish()
			require.Len(t, data, 8*len(values))

			got, err := DecodeRaw(nil, data, len(values), engine)
			require.NoError(t, err)
			require.Equal(t, values, got)
		})
	}
}

func TestRawByteOrder(t *testing.T) {
	le := NewRawEncoder(nil, endian.GetLittleEndianEngine())
	le.Write(1)
	be := NewRawEncoder(nil, endian.GetBigEndianEngine())
	be.Write(1)

	require.Equal(t, byte(0x3f), le.Finish()[7])
	require.Equal(t, byte(0x3f), be.Finish()[0])
}

func TestDecodeRaw_Truncated(t *testing.T) {
	enc := NewRawEncoder(nil, endian.GetLittleEndianEngine())
	enc.WriteSlice([]float64{1, 2})
	data := enc.Finish()

	_, err := DecodeRaw(nil, data[:15], 2, endian.GetLittleEndianEngine())
	require.Error(t, err)
	_, err = DecodeRaw(nil, data, 3, endian.GetLittleEndianEngine())
	require.Error(t, err)
}
