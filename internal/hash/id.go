package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of a trace variable name. Snapshots index variables by it.
func ID(name string) uint64 {
	return xxhash.Sum64String(name)
}

// Checksum computes the xxHash64 of a snapshot's header, index and stored payload.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}
