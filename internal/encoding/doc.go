// Package encoding holds the column codecs used by trace snapshots: Gorilla XOR
// compression for float64 draw columns and a length-prefixed name table.
package encoding
