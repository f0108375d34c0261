package mcodec

import (
	"errors"
	"fmt"
	"math"
)

// Cursor reads consecutive fields from a byte slice,
// tracking how many bytes have been consumed.
//
// Every method checks bounds before touching src,
// so a Cursor never panics on short or hostile input.
type Cursor struct {
	src []byte
	off int

	sc *SerializationContext
}

// NewCursor returns a Cursor positioned at the start of src.
// The context is passed through to nested decoders.
func NewCursor(src []byte, sc *SerializationContext) *Cursor {
	return &Cursor{src: src, sc: sc}
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.src) - c.off
}

// Uvarint reads one varint.
func (c *Cursor) Uvarint(field string) (uint64, error) {
	v, n, err := ReadUvarint(c.src[c.off:], field)
	if err != nil {
		return 0, err
	}
	c.off += n
	return v, nil
}

// Uvarint32 reads one varint that must fit in a uint32.
func (c *Cursor) Uvarint32(field string) (uint32, error) {
	v, err := c.Uvarint(field)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, MalformedVarintError{
			Field: field,
			Err:   fmt.Errorf("value %d overflows uint32", v),
		}
	}
	return uint32(v), nil
}

// Length reads a varint length or count and checks it against limit.
// The returned value is safe to use for allocation.
func (c *Cursor) Length(field string, limit uint32) (int, error) {
	v, err := c.Uvarint(field)
	if err != nil {
		return 0, err
	}
	if v > uint64(limit) {
		return 0, LimitExceededError{Field: field, Got: v, Limit: uint64(limit)}
	}
	return int(v), nil
}

// Fixed returns the next n bytes without copying them.
// The returned slice aliases the cursor's input.
func (c *Cursor) Fixed(field string, n int) ([]byte, error) {
	if n < 0 {
		panic(fmt.Errorf("BUG: negative fixed length %d for %s", n, field))
	}
	if c.Remaining() < n {
		return nil, TruncatedBufferError{Field: field, Need: n, Have: c.Remaining()}
	}
	b := c.src[c.off : c.off+n]
	c.off += n
	return b, nil
}

// ReadInto fills dst from the next len(dst) bytes.
func (c *Cursor) ReadInto(field string, dst []byte) error {
	b, err := c.Fixed(field, len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

// Byte reads a single byte.
func (c *Cursor) Byte(field string) (byte, error) {
	b, err := c.Fixed(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Decode runs a nested decoder on the unread input
// and advances past the bytes it consumed.
func (c *Cursor) Decode(field string, d Decoder) error {
	n, err := d.DecodeCompact(c.src[c.off:], c.sc)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", field, err)
	}
	if n < 0 || n > c.Remaining() {
		panic(fmt.Errorf(
			"BUG: decoder for %s reported %d bytes consumed with only %d available",
			field, n, c.Remaining(),
		))
	}
	c.off += n
	return nil
}

// Decode decodes a single value from src,
// requiring that the value consumes all of src.
// Use this when a framing layer has already isolated exactly one value.
func Decode(d Decoder, src []byte, sc *SerializationContext) error {
	n, err := d.DecodeCompact(src, sc)
	if err != nil {
		return err
	}
	if n != len(src) {
		return errTrailingBytes{Consumed: n, Total: len(src)}
	}
	return nil
}

// ErrTrailingBytes is matched by the error from [Decode]
// when the input continues past the decoded value.
var ErrTrailingBytes = errors.New("trailing bytes after value")

type errTrailingBytes struct {
	Consumed, Total int
}

func (e errTrailingBytes) Error() string {
	return fmt.Sprintf("trailing bytes after value: consumed %d of %d", e.Consumed, e.Total)
}

func (e errTrailingBytes) Is(target error) bool {
	return target == ErrTrailingBytes
}
