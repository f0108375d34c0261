package mcodec

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedVarint matches any [MalformedVarintError].
	ErrMalformedVarint = errors.New("malformed varint")

	// ErrTruncatedBuffer matches any [TruncatedBufferError].
	ErrTruncatedBuffer = errors.New("truncated buffer")

	// ErrLimitExceeded matches any [LimitExceededError].
	ErrLimitExceeded = errors.New("limit exceeded")
)

// MalformedVarintError is returned when a varint is truncated,
// not minimally encoded, or too large for its destination.
type MalformedVarintError struct {
	Field string
	Err   error
}

func (e MalformedVarintError) Error() string {
	return fmt.Sprintf("malformed varint for %s: %v", e.Field, e.Err)
}

func (e MalformedVarintError) Is(target error) bool {
	return target == ErrMalformedVarint
}

func (e MalformedVarintError) Unwrap() error {
	return e.Err
}

// TruncatedBufferError is returned when a fixed-size field
// needs more bytes than remain in the input.
type TruncatedBufferError struct {
	Field string

	Need, Have int
}

func (e TruncatedBufferError) Error() string {
	return fmt.Sprintf(
		"truncated buffer reading %s: need %d bytes, have %d",
		e.Field, e.Need, e.Have,
	)
}

func (e TruncatedBufferError) Is(target error) bool {
	return target == ErrTruncatedBuffer
}

// LimitExceededError is returned when a length or count
// exceeds the bound configured in a [SerializationContext].
// It is returned both when decoding untrusted input
// and when encoding a value that could not be decoded under the same limits.
type LimitExceededError struct {
	Field string

	Got, Limit uint64
}

func (e LimitExceededError) Error() string {
	return fmt.Sprintf(
		"%s: %d exceeds limit of %d", e.Field, e.Got, e.Limit,
	)
}

func (e LimitExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// CheckLimit returns a [LimitExceededError] if n is greater than limit.
// Encoders use this to refuse values that a peer would reject.
func CheckLimit(field string, n int, limit uint32) error {
	if n < 0 || uint64(n) > uint64(limit) {
		return LimitExceededError{Field: field, Got: uint64(n), Limit: uint64(limit)}
	}
	return nil
}
