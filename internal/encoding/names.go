package encoding

import (
	"fmt"

	"github.com/arloliu/linmix/endian"
)

// AppendName appends a uint16 length-prefixed UTF-8 name.
func AppendName(dst []byte, name string, engine endian.EndianEngine) ([]byte, error) {
	if len(name) > 0xffff {
		return dst, fmt.Errorf("name %q exceeds 65535 bytes", name[:32])
	}
	dst = engine.AppendUint16(dst, uint16(len(name))) //nolint:gosec // bounded above

	return append(dst, name...), nil
}

// ReadName reads a length-prefixed name from data and returns it with the number of bytes consumed.
func ReadName(data []byte, engine endian.EndianEngine) (string, int, error) {
	if len(data) < 2 {
		return "", 0, fmt.Errorf("name length truncated: %d bytes", len(data))
	}
	n := int(engine.Uint16(data))
	if len(data) < 2+n {
		return "", 0, fmt.Errorf("name truncated: want %d bytes, have %d", n, len(data)-2)
	}

	return string(data[2 : 2+n]), 2 + n, nil
}
