// Package mcodec contains the compact binary codec shared by
// every bootstrap payload type.
//
// A compact encoding has no field names or type descriptors.
// Integers used as tags, lengths and counts are unsigned LEB128 varints,
// and identifiers, signatures and nonces are fixed-size raw bytes.
// Decoding always reports the exact number of bytes consumed,
// so values can be concatenated without separators.
//
// Every length read from the wire is checked against a
// [SerializationContext] limit before it is used to size a
// container or bound a loop.
package mcodec

// Encoder is implemented by values with a compact encoding.
//
// AppendCompact appends the encoding of the value to dst
// and returns the extended slice.
// The output depends only on the value and sc.
// An error is only returned if the value exceeds a limit in sc,
// in which case dst must be considered garbage.
type Encoder interface {
	AppendCompact(dst []byte, sc *SerializationContext) ([]byte, error)
}

// Decoder is implemented by pointers to values with a compact encoding.
//
// DecodeCompact reads one value from the front of src,
// overwriting the receiver, and returns the number of bytes consumed.
// Trailing bytes after the value are left for the caller.
// On error the receiver is in an unspecified state.
//
// The wire does not distinguish an empty slice or map from a nil one,
// so decoders store nil for every empty collection.
// Decoding an encoded value yields an equal value
// once its empty collections are nil.
type Decoder interface {
	DecodeCompact(src []byte, sc *SerializationContext) (int, error)
}

// Codec is the combination of [Encoder] and [Decoder].
type Codec interface {
	Encoder
	Decoder
}
