package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodingType(t *testing.T) {
	require.Equal(t, "Raw", TypeRaw.String())
	require.Equal(t, "Gorilla", TypeGorilla.String())
	require.Equal(t, "Unknown", EncodingType(0x7f).String())
	require.True(t, TypeGorilla.Valid())
	require.False(t, EncodingType(0x2).Valid())
}

func TestCompressionType(t *testing.T) {
	cases := map[CompressionType]string{
		CompressionNone:      "None",
		CompressionZstd:      "Zstd",
		CompressionS2:        "S2",
		CompressionLZ4:       "LZ4",
		CompressionType(0x9): "Unknown",
	}
	for ct, want := range cases {
		require.Equal(t, want, ct.String())
	}
}
