package mcodec_test

import (
	"testing"

	"github.com/lareeq/massa/mcodec"
	"github.com/stretchr/testify/require"
)

func TestCursor_sequentialFields(t *testing.T) {
	t.Parallel()

	var buf []byte
	buf = mcodec.AppendUvarint(buf, 300)
	buf = append(buf, 0xaa, 0xbb, 0xcc)
	buf = mcodec.AppendUvarint(buf, 2)
	buf = append(buf, 0x07)

	sc := mcodec.DefaultSerializationContext()
	c := mcodec.NewCursor(buf, &sc)

	v, err := c.Uvarint("v")
	require.NoError(t, err)
	require.Equal(t, uint64(300), v)
	require.Equal(t, 2, c.Offset())

	b, err := c.Fixed("fixed", 3)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 0xbb, 0xcc}, b)

	n, err := c.Length("n", 2)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	last, err := c.Byte("last")
	require.NoError(t, err)
	require.Equal(t, byte(0x07), last)

	require.Equal(t, len(buf), c.Offset())
	require.Zero(t, c.Remaining())
}

func TestCursor_lengthCheckedBeforeUse(t *testing.T) {
	t.Parallel()

	// A huge declared count with no following data
	// must be rejected by the limit, not by a later truncation.
	buf := mcodec.AppendUvarint(nil, 1<<40)

	c := mcodec.NewCursor(buf, nil)
	_, err := c.Length("entries", 16)
	require.ErrorIs(t, err, mcodec.ErrLimitExceeded)

	var le mcodec.LimitExceededError
	require.ErrorAs(t, err, &le)
	require.Equal(t, uint64(1<<40), le.Got)
	require.Equal(t, uint64(16), le.Limit)
}

func TestCursor_fixedTruncated(t *testing.T) {
	t.Parallel()

	c := mcodec.NewCursor([]byte{1, 2}, nil)
	_, err := c.Fixed("nonce", 32)
	require.ErrorIs(t, err, mcodec.ErrTruncatedBuffer)

	var tb mcodec.TruncatedBufferError
	require.ErrorAs(t, err, &tb)
	require.Equal(t, 32, tb.Need)
	require.Equal(t, 2, tb.Have)

	// Failed reads do not advance.
	require.Zero(t, c.Offset())
}

func TestCursor_uvarint32Overflow(t *testing.T) {
	t.Parallel()

	buf := mcodec.AppendUvarint(nil, 1<<32)
	c := mcodec.NewCursor(buf, nil)
	_, err := c.Uvarint32("tag")
	require.ErrorIs(t, err, mcodec.ErrMalformedVarint)
}

func TestCheckLimit(t *testing.T) {
	t.Parallel()

	require.NoError(t, mcodec.CheckLimit("x", 3, 3))
	require.ErrorIs(t, mcodec.CheckLimit("x", 4, 3), mcodec.ErrLimitExceeded)
}
