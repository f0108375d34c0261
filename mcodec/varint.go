package mcodec

import (
	"fmt"

	"github.com/multiformats/go-varint"
)

const (
	// MaxVarintLen is the longest varint accepted by the decoder.
	MaxVarintLen = 9

	// MaxVarintValue is the largest value that fits in [MaxVarintLen] bytes.
	// Encoding anything larger is a programming error.
	MaxVarintValue uint64 = 1<<63 - 1
)

// AppendUvarint appends the minimal varint encoding of v to dst.
// It panics if v exceeds [MaxVarintValue].
func AppendUvarint(dst []byte, v uint64) []byte {
	if v > MaxVarintValue {
		panic(fmt.Errorf(
			"ILLEGAL: varint value %d exceeds maximum %d", v, MaxVarintValue,
		))
	}

	var buf [MaxVarintLen]byte
	n := varint.PutUvarint(buf[:], v)
	return append(dst, buf[:n]...)
}

// UvarintSize returns the number of bytes AppendUvarint writes for v.
func UvarintSize(v uint64) int {
	return varint.UvarintSize(v)
}

// ReadUvarint decodes a varint from the front of src.
// Truncated, overlong and non-minimal encodings
// are reported as [MalformedVarintError] naming field.
func ReadUvarint(src []byte, field string) (uint64, int, error) {
	v, n, err := varint.FromUvarint(src)
	if err != nil {
		return 0, 0, MalformedVarintError{Field: field, Err: err}
	}
	return v, n, nil
}
