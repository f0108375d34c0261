package mcodec_test

import (
	"math"
	"testing"

	"github.com/lareeq/massa/mcodec"
	"github.com/stretchr/testify/require"
)

func TestUvarint_roundTrip(t *testing.T) {
	t.Parallel()

	for _, v := range []uint64{
		0, 1, 127, 128, 255, 300, 16383, 16384,
		math.MaxUint32, math.MaxUint32 + 1,
		mcodec.MaxVarintValue,
	} {
		enc := mcodec.AppendUvarint(nil, v)
		require.Len(t, enc, mcodec.UvarintSize(v))

		got, n, err := mcodec.ReadUvarint(enc, "v")
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(enc), n)
	}
}

func TestUvarint_smallValuesAreShort(t *testing.T) {
	t.Parallel()

	require.Equal(t, []byte{0x00}, mcodec.AppendUvarint(nil, 0))
	require.Equal(t, []byte{0x7f}, mcodec.AppendUvarint(nil, 127))
	require.Equal(t, []byte{0x80, 0x01}, mcodec.AppendUvarint(nil, 128))
}

func TestAppendUvarint_panicsAboveMax(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		mcodec.AppendUvarint(nil, mcodec.MaxVarintValue+1)
	})
}

func TestReadUvarint_malformed(t *testing.T) {
	t.Parallel()

	for name, in := range map[string][]byte{
		"empty":       nil,
		"truncated":   {0x80},
		"truncated 2": {0xff, 0xff},
		"not minimal": {0x81, 0x00},
		"overlong":    {0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := mcodec.ReadUvarint(in, "field")
			require.ErrorIs(t, err, mcodec.ErrMalformedVarint)

			var mv mcodec.MalformedVarintError
			require.ErrorAs(t, err, &mv)
			require.Equal(t, "field", mv.Field)
		})
	}
}
