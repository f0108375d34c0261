// Package mcodectest contains a compliance suite
// for implementations of [mcodec.Codec].
package mcodectest

import (
	"testing"

	"github.com/lareeq/massa/mcodec"
	"github.com/stretchr/testify/require"
)

// Case is a named value fed through the compliance suite.
//
// Empty collections in Value must be nil,
// because decoders produce nil for zero-length collections.
type Case[T any] struct {
	Name  string
	Value T
}

// CodecPtr constrains the pointer type of a codec value.
type CodecPtr[T any] interface {
	*T
	mcodec.Codec
}

// TestCodecCompliance runs every case through the properties
// that all compact codecs must satisfy under sc:
//   - encoding is deterministic
//   - decoding the encoding yields an equal value and consumes exactly every byte
//   - trailing input after the encoding is not consumed
//   - every strict prefix of the encoding fails to decode, without panicking
func TestCodecCompliance[T any, P CodecPtr[T]](
	t *testing.T, sc *mcodec.SerializationContext, cases []Case[T],
) {
	t.Helper()

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Run("deterministic", func(t *testing.T) {
				t.Parallel()

				v := tc.Value
				a, err := P(&v).AppendCompact(nil, sc)
				require.NoError(t, err)
				b, err := P(&v).AppendCompact(nil, sc)
				require.NoError(t, err)

				require.Equal(t, a, b)
			})

			t.Run("round trip", func(t *testing.T) {
				t.Parallel()

				v := tc.Value
				enc, err := P(&v).AppendCompact(nil, sc)
				require.NoError(t, err)

				var got T
				n, err := P(&got).DecodeCompact(enc, sc)
				require.NoError(t, err)
				require.Equal(t, len(enc), n)
				require.Equal(t, tc.Value, got)
			})

			t.Run("appends to existing prefix", func(t *testing.T) {
				t.Parallel()

				v := tc.Value
				enc, err := P(&v).AppendCompact(nil, sc)
				require.NoError(t, err)

				prefixed, err := P(&v).AppendCompact([]byte("prefix"), sc)
				require.NoError(t, err)
				require.Equal(t, append([]byte("prefix"), enc...), prefixed)
			})

			t.Run("trailing bytes are not consumed", func(t *testing.T) {
				t.Parallel()

				v := tc.Value
				enc, err := P(&v).AppendCompact(nil, sc)
				require.NoError(t, err)

				padded := append(enc[:len(enc):len(enc)], 0xde, 0xad, 0xbe, 0xef)

				var got T
				n, err := P(&got).DecodeCompact(padded, sc)
				require.NoError(t, err)
				require.Equal(t, len(enc), n)
				require.Equal(t, tc.Value, got)

				require.ErrorIs(t, mcodec.Decode(P(&got), padded, sc), mcodec.ErrTrailingBytes)
			})

			t.Run("every strict prefix fails", func(t *testing.T) {
				t.Parallel()

				v := tc.Value
				enc, err := P(&v).AppendCompact(nil, sc)
				require.NoError(t, err)

				for i := range len(enc) {
					// Copy so the capacity does not expose the rest of enc.
					prefix := append([]byte(nil), enc[:i]...)

					var got T
					require.NotPanics(t, func() {
						_, err = P(&got).DecodeCompact(prefix, sc)
					})
					require.Errorf(t, err, "prefix of length %d/%d decoded without error", i, len(enc))
				}
			})
		})
	}
}
