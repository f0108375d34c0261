// Package mquic narrows quic-go connections and streams
// to the methods the bootstrap protocol uses,
// so the protocol can run over in-memory pipes in tests.
package mquic

import (
	"context"
	"fmt"
	"net"

	"github.com/quic-go/quic-go"
)

// ApplicationErrorCode is used for [Conn.CloseWithError].
type ApplicationErrorCode uint64

const (
	// Not using iota here, to avoid possibility of values changing across the wire.

	// The bootstrap completed and the connection is no longer needed.
	BootstrapDone ApplicationErrorCode = 0

	// The bootstrap was abandoned after a protocol or verification error.
	BootstrapFailed ApplicationErrorCode = 1
)

// Conn is the interface representing a QUIC connection.
//
// This is a subset of the methods on [*quic.Conn].
// A bootstrap uses a single bidirectional stream,
// so unidirectional streams and datagrams are omitted.
type Conn interface {
	AcceptStream(context.Context) (Stream, error)
	OpenStreamSync(context.Context) (Stream, error)

	CloseWithError(code ApplicationErrorCode, msg string) error

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

var _ Conn = ConnAdapter{}

// ConnAdapter wraps a [*quic.Conn], implementing the [Conn] interface.
//
// Create an instance with [WrapConn].
type ConnAdapter struct {
	qc *quic.Conn
}

// WrapConn wraps the given connection,
// returning a value implementing [Conn].
func WrapConn(qc *quic.Conn) ConnAdapter {
	return ConnAdapter{qc: qc}
}

func (c ConnAdapter) AcceptStream(ctx context.Context) (Stream, error) {
	s, err := c.qc.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return WrapStream(s), nil
}

func (c ConnAdapter) OpenStreamSync(ctx context.Context) (Stream, error) {
	s, err := c.qc.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return WrapStream(s), nil
}

func (c ConnAdapter) CloseWithError(code ApplicationErrorCode, msg string) error {
	if (code >> 62) > 0 {
		panic(fmt.Errorf(
			"BUG: application error code must fit in 62 bits (got 0x%x)", code,
		))
	}
	return c.qc.CloseWithError(quic.ApplicationErrorCode(code), msg)
}

func (c ConnAdapter) LocalAddr() net.Addr { return c.qc.LocalAddr() }

func (c ConnAdapter) RemoteAddr() net.Addr { return c.qc.RemoteAddr() }
