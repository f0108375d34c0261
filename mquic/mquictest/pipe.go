package mquictest

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/lareeq/massa/mquic"
)

// PipeStream is an [mquic.Stream] backed by one end of a [net.Pipe].
//
// net.Pipe has no half-close, so Close, CancelRead, and CancelWrite
// all close the whole pipe end.
type PipeStream struct {
	net.Conn
}

var _ mquic.Stream = PipeStream{}

func (s PipeStream) CancelRead(mquic.StreamErrorCode) { _ = s.Conn.Close() }

func (s PipeStream) CancelWrite(mquic.StreamErrorCode) { _ = s.Conn.Close() }

// NewStreamPair returns two connected in-memory streams.
func NewStreamPair() (PipeStream, PipeStream) {
	a, b := net.Pipe()
	return PipeStream{Conn: a}, PipeStream{Conn: b}
}

// ErrConnClosed is returned from a [*PipeConn] after either side closes it.
var ErrConnClosed = errors.New("pipe connection closed")

// PipeConn is an in-memory [mquic.Conn].
// Streams opened on one side of a pair from [NewConnPair]
// are accepted on the other side.
type PipeConn struct {
	local, remote StubNetAddr

	// Streams opened by the peer, waiting to be accepted here.
	incoming chan PipeStream
	// Streams opened here, delivered to the peer.
	outgoing chan PipeStream

	closed    chan struct{}
	closeOnce *sync.Once

	mu        *sync.Mutex
	closeCode mquic.ApplicationErrorCode
	closeMsg  string
}

var _ mquic.Conn = (*PipeConn)(nil)

// NewConnPair returns two connected in-memory connections.
func NewConnPair() (a, b *PipeConn) {
	ab := make(chan PipeStream)
	ba := make(chan PipeStream)
	closed := make(chan struct{})
	once := new(sync.Once)
	mu := new(sync.Mutex)

	addrA := StubNetAddr{NetworkValue: "pipe", StringValue: "pipe-a"}
	addrB := StubNetAddr{NetworkValue: "pipe", StringValue: "pipe-b"}

	a = &PipeConn{
		local: addrA, remote: addrB,
		incoming: ba, outgoing: ab,
		closed: closed, closeOnce: once, mu: mu,
	}
	b = &PipeConn{
		local: addrB, remote: addrA,
		incoming: ab, outgoing: ba,
		closed: closed, closeOnce: once, mu: mu,
	}
	return a, b
}

// AcceptStream implements [mquic.Conn].
func (c *PipeConn) AcceptStream(ctx context.Context) (mquic.Stream, error) {
	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-c.closed:
		return nil, ErrConnClosed
	case s := <-c.incoming:
		return s, nil
	}
}

// OpenStreamSync implements [mquic.Conn].
// It blocks until the peer accepts the stream.
func (c *PipeConn) OpenStreamSync(ctx context.Context) (mquic.Stream, error) {
	mine, theirs := NewStreamPair()
	select {
	case <-ctx.Done():
		_ = mine.Close()
		return nil, context.Cause(ctx)
	case <-c.closed:
		_ = mine.Close()
		return nil, ErrConnClosed
	case c.outgoing <- theirs:
		return mine, nil
	}
}

// CloseWithError implements [mquic.Conn].
// Only the first close records its code and message.
func (c *PipeConn) CloseWithError(code mquic.ApplicationErrorCode, msg string) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeCode = code
		c.closeMsg = msg
		c.mu.Unlock()
		close(c.closed)
	})
	return nil
}

// Closed returns a channel that is closed when either side closes the pair.
func (c *PipeConn) Closed() <-chan struct{} {
	return c.closed
}

// CloseError returns the code and message from the first close of the pair.
// It is only meaningful after [*PipeConn.Closed] is closed.
func (c *PipeConn) CloseError() (mquic.ApplicationErrorCode, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeMsg
}

// LocalAddr implements [mquic.Conn].
func (c *PipeConn) LocalAddr() net.Addr { return c.local }

// RemoteAddr implements [mquic.Conn].
func (c *PipeConn) RemoteAddr() net.Addr { return c.remote }

// StubNetAddr holds the return values for
// [*PipeConn.LocalAddr] and [*PipeConn.RemoteAddr].
type StubNetAddr struct {
	NetworkValue string
	StringValue  string
}

var _ net.Addr = StubNetAddr{}

func (a StubNetAddr) Network() string { return a.NetworkValue }
func (a StubNetAddr) String() string  { return a.StringValue }
