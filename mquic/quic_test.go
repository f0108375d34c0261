package mquic_test

import (
	"context"
	"io"
	"testing"

	"github.com/lareeq/massa/internal/mtest"
	"github.com/lareeq/massa/mquic"
	"github.com/lareeq/massa/mquic/mquictest"
	"github.com/stretchr/testify/require"
)

func TestDial_stream(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lb := mquictest.NewLoopback(t)
	createdConn, acceptedConn := lb.Dial(t)

	streamAcceptedCh := make(chan mquic.Stream, 1)
	go func() {
		acceptedStream, err := acceptedConn.AcceptStream(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		streamAcceptedCh <- acceptedStream
	}()

	createdStream, err := createdConn.OpenStreamSync(ctx)
	require.NoError(t, err)
	_, err = io.WriteString(createdStream, "hello")
	require.NoError(t, err)

	acceptedStream := mtest.ReceiveSoon(t, streamAcceptedCh)

	buf := make([]byte, 5)
	_, err = io.ReadFull(acceptedStream, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf))

	// Closing the write side surfaces as EOF after the data.
	require.NoError(t, createdStream.Close())
	_, err = acceptedStream.Read(buf)
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, createdConn.CloseWithError(mquic.BootstrapDone, "done"))
}

func TestConnAdapter_closeCodeRange(t *testing.T) {
	t.Parallel()

	lb := mquictest.NewLoopback(t)
	createdConn, _ := lb.Dial(t)

	require.Panics(t, func() {
		_ = createdConn.CloseWithError(1<<62, "too large")
	})
}

func TestPipeConn_stream(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, b := mquictest.NewConnPair()

	acceptedCh := make(chan mquic.Stream, 1)
	go func() {
		s, err := b.AcceptStream(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		acceptedCh <- s
	}()

	opened, err := a.OpenStreamSync(ctx)
	require.NoError(t, err)
	accepted := mtest.ReceiveSoon(t, acceptedCh)

	go func() {
		_, _ = io.WriteString(opened, "ping")
	}()
	buf := make([]byte, 4)
	_, err = io.ReadFull(accepted, buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf))

	require.NoError(t, a.CloseWithError(mquic.BootstrapFailed, "bad signature"))
	<-b.Closed()
	code, msg := b.CloseError()
	require.Equal(t, mquic.BootstrapFailed, code)
	require.Equal(t, "bad signature", msg)

	_, err = b.AcceptStream(ctx)
	require.ErrorIs(t, err, mquictest.ErrConnClosed)
}

func TestPipeConn_acceptCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, b := mquictest.NewConnPair()
	_, err := b.AcceptStream(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
