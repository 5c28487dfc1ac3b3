package section

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/linmix/endian"
	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/format"
)

func TestFlag(t *testing.T) {
	flag := NewFlag(format.TypeGorilla, format.CompressionZstd)
	require.NoError(t, flag.Validate())
	require.Equal(t, uint16(MagicSnapshotV1Opt), flag.MagicNumber())
	require.Equal(t, format.TypeGorilla, flag.ValueEncoding())
	require.Equal(t, format.CompressionZstd, flag.Compression())
	require.False(t, flag.IsBigEndian())
	require.False(t, flag.HasCollision())

	flag.SetCollision(true)
	require.True(t, flag.HasCollision())
	require.Equal(t, uint16(MagicSnapshotV1Opt), flag.MagicNumber())
	flag.SetCollision(false)
	require.False(t, flag.HasCollision())
}

func TestFlag_Validate(t *testing.T) {
	tests := map[string]Flag{
		"magic":       {Options: 0xEA10, EncodingType: uint8(format.TypeRaw), CompressionType: uint8(format.CompressionNone)},
		"reserved":    {Options: MagicSnapshotV1Opt | 0x4, EncodingType: uint8(format.TypeRaw), CompressionType: uint8(format.CompressionNone)},
		"encoding":    {Options: MagicSnapshotV1Opt, EncodingType: 0x2, CompressionType: uint8(format.CompressionNone)},
		"compression": {Options: MagicSnapshotV1Opt, EncodingType: uint8(format.TypeRaw), CompressionType: 0x9},
	}

	for name, flag := range tests {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, flag.Validate(), errs.ErrInvalidSnapshotHeader)
		})
	}
}

func TestHeader_RoundTrip(t *testing.T) {
	for _, big := range []bool{false, true} {
		flag := NewFlag(format.TypeRaw, format.CompressionLZ4)
		if big {
			flag.Options |= EndiannessMask
		}
		h := NewHeader(uuid.Must(uuid.NewV7()), flag)
		h.SeriesCount = 13
		h.Chains = 4
		h.Draws = 1000
		h.Tune = 500
		h.PayloadOffset = 400
		h.PayloadLength = 1234

		data := h.Bytes()
		require.Len(t, data, HeaderSize)

		parsed, err := ParseHeader(append(data, 0xff))
		require.NoError(t, err)
		require.Equal(t, *h, parsed)
	}
}

func TestHeader_Invalid(t *testing.T) {
	_, err := ParseHeader(make([]byte, HeaderSize-1))
	require.ErrorIs(t, err, errs.ErrInvalidSnapshotHeader)

	_, err = ParseHeader(make([]byte, HeaderSize))
	require.ErrorIs(t, err, errs.ErrInvalidSnapshotHeader)

	h := NewHeader(uuid.New(), NewFlag(format.TypeRaw, format.CompressionNone))
	h.PayloadOffset = 10 // before the index
	_, err = ParseHeader(h.Bytes())
	require.ErrorIs(t, err, errs.ErrInvalidSnapshotHeader)
}

func TestIndexEntry_RoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	entries := []IndexEntry{
		NewIndexEntry("ksi", KindVariable, []int{5, 1}),
		NewIndexEntry("int_std", KindVariable, nil),
		NewIndexEntry("accept", KindStat, []int{}),
	}
	entries[0].Offset, entries[0].Length = 0, 160
	entries[1].Offset, entries[1].Length = 160, 32

	var buf []byte
	for _, e := range entries {
		var err error
		buf, err = e.AppendTo(buf, engine)
		require.NoError(t, err)
	}

	pos := 0
	for _, want := range entries {
		got, n, err := ParseIndexEntry(buf[pos:], engine)
		require.NoError(t, err)
		require.Equal(t, want.ID, got.ID)
		require.Equal(t, want.Name, got.Name)
		require.Equal(t, want.Kind, got.Kind)
		require.Len(t, got.Shape, len(want.Shape))
		for i := range want.Shape {
			require.Equal(t, want.Shape[i], got.Shape[i])
		}
		require.Equal(t, want.Offset, got.Offset)
		require.Equal(t, want.Length, got.Length)
		pos += n
	}
	require.Equal(t, len(buf), pos)
}

func TestIndexEntry_Invalid(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	_, _, err := ParseIndexEntry([]byte{1, 2, 3}, engine)
	require.ErrorIs(t, err, errs.ErrInvalidSnapshotIndex)

	e := NewIndexEntry("slope", KindVariable, []int{1})
	buf, err := e.AppendTo(nil, engine)
	require.NoError(t, err)

	_, _, err = ParseIndexEntry(buf[:len(buf)-2], engine)
	require.ErrorIs(t, err, errs.ErrInvalidSnapshotIndex)

	badKind := append([]byte(nil), buf...)
	badKind[8] = 7
	_, _, err = ParseIndexEntry(badKind, engine)
	require.ErrorIs(t, err, errs.ErrInvalidSnapshotIndex)

	badID := append([]byte(nil), buf...)
	badID[0] ^= 0xff
	_, _, err = ParseIndexEntry(badID, engine)
	require.ErrorIs(t, err, errs.ErrInvalidSnapshotIndex)

	_, err = NewIndexEntry("deep", KindVariable, make([]int, MaxRank+1)).AppendTo(nil, engine)
	require.ErrorIs(t, err, errs.ErrInvalidSnapshotIndex)
}
