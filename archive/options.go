package archive

import (
	"fmt"

	"github.com/arloliu/linmix/format"
	"github.com/arloliu/linmix/internal/options"
)

type encoderConfig struct {
	encoding    format.EncodingType
	compression format.CompressionType
	stats       bool
}

func defaultEncoderConfig() *encoderConfig {
	return &encoderConfig{
		encoding:    format.TypeGorilla,
		compression: format.CompressionZstd,
		stats:       true,
	}
}

// Option configures Encode.
type Option = options.Option[*encoderConfig]

// WithEncoding selects the value encoding. The default is format.TypeGorilla.
func WithEncoding(enc format.EncodingType) Option {
	return options.New(func(c *encoderConfig) error {
		if !enc.Valid() {
			return fmt.Errorf("unsupported value encoding: %s", enc)
		}
		c.encoding = enc

		return nil
	})
}

// WithCompression selects the payload compression. The default is format.CompressionZstd.
func WithCompression(comp format.CompressionType) Option {
	return options.NoError(func(c *encoderConfig) {
		c.compression = comp
	})
}

// WithoutStats leaves sampler statistics out of the snapshot.
func WithoutStats() Option {
	return options.NoError(func(c *encoderConfig) {
		c.stats = false
	})
}
