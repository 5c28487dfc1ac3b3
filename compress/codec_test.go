package compress

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/linmix/format"
)

var allTypes = []format.CompressionType{
	format.CompressionNone,
	format.CompressionZstd,
	format.CompressionS2,
	format.CompressionLZ4,
}

// drawPayload mimics a raw-encoded draw column: noisy float64 values around a mean.
func drawPayload(n int) []byte {
	rng := rand.New(rand.NewPCG(7, 11))
	buf := make([]byte, 0, n*8)
	for range n {
		v := 2.0 + 0.05*rng.NormFloat64()
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}

	return buf
}

func TestGetCodec(t *testing.T) {
	for _, ct := range allTypes {
		codec, err := GetCodec(ct)
		require.NoError(t, err, ct.String())
		require.NotNil(t, codec)
	}

	_, err := GetCodec(format.CompressionType(0x7f))
	require.Error(t, err)
}

func TestAllCodecs_RoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"draws":     drawPayload(4000),
		"repeating": bytes.Repeat([]byte("slope"), 2000),
		"tiny":      {42},
	}

	for _, ct := range allTypes {
		codec, err := GetCodec(ct)
		require.NoError(t, err)
		for name, data := range inputs {
			t.Run(ct.String()+"/"+name, func(t *testing.T) {
				packed, err := codec.Compress(data)
				require.NoError(t, err)
				out, err := codec.Decompress(packed)
				require.NoError(t, err)
				require.Equal(t, data, out)
			})
		}
	}
}

func TestAllCodecs_EmptyData(t *testing.T) {
	for _, ct := range allTypes {
		codec, err := GetCodec(ct)
		require.NoError(t, err)

		packed, err := codec.Compress(nil)
		require.NoError(t, err)
		out, err := codec.Decompress(packed)
		require.NoError(t, err)
		require.Empty(t, out)
	}
}

func TestCompressingCodecs_ShrinkRepeats(t *testing.T) {
	data := bytes.Repeat([]byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}, 4096)
	for _, ct := range allTypes[1:] {
		codec, _ := GetCodec(ct)
		packed, err := codec.Compress(data)
		require.NoError(t, err)
		require.Less(t, len(packed), len(data)/4, ct.String())
	}
}

func TestCompressingCodecs_InvalidData(t *testing.T) {
	garbage := []byte{0xff, 0xfe, 0xfd, 0xfc, 0x01, 0x02, 0x03}
	for _, ct := range []format.CompressionType{format.CompressionZstd, format.CompressionS2} {
		codec, _ := GetCodec(ct)
		_, err := codec.Decompress(garbage)
		require.Error(t, err, ct.String())
	}
}

func TestAllCodecs_ConcurrentUsage(t *testing.T) {
	data := drawPayload(1000)
	for _, ct := range allTypes {
		codec, _ := GetCodec(ct)
		var wg sync.WaitGroup
		errCh := make(chan error, 8)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				packed, err := codec.Compress(data)
				if err != nil {
					errCh <- err
					return
				}
				out, err := codec.Decompress(packed)
				if err != nil {
					errCh <- err
					return
				}
				if !bytes.Equal(out, data) {
					errCh <- bytes.ErrTooLarge
				}
			}()
		}
		wg.Wait()
		close(errCh)
		for err := range errCh {
			require.NoError(t, err, ct.String())
		}
	}
}
