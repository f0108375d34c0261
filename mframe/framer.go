// Package mframe delimits bootstrap messages on a byte stream.
//
// Each frame is a one-byte encoding header,
// the varint length of the body, and the body:
//
//	[encoding] [uvarint len] [body]
//
// The encoding is raw (0) or snappy (1).
// A writer only uses snappy when it makes the body smaller.
package mframe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/snappy"
	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mquic"
)

const (
	// Not using iota here, to avoid possibility of values changing across the wire.
	rawEncoding    byte = 0
	snappyEncoding byte = 1
)

// Framer sends and receives whole frames.
//
// A Framer is not safe for concurrent use,
// but one goroutine may read while another writes.
type Framer interface {
	// ReadFrame blocks until a complete frame arrives,
	// the context is canceled, or the read timeout elapses.
	ReadFrame(ctx context.Context) ([]byte, error)

	// WriteFrame sends frame as a single frame.
	WriteFrame(ctx context.Context, frame []byte) error
}

// ErrTimeout is matched by errors from a [*StreamFramer]
// when a read or write deadline elapses.
var ErrTimeout = errors.New("frame timeout")

// ErrUnknownEncoding is matched by the error from [*StreamFramer.ReadFrame]
// when the frame header names an encoding this package does not know.
var ErrUnknownEncoding = errors.New("unknown frame encoding")

// Config is the configuration for a [*StreamFramer].
type Config struct {
	// Largest decoded body accepted or sent.
	// Usually the serialization context's MaxBootstrapMessageSize.
	MaxFrameSize uint32

	// Time allowed for each ReadFrame and WriteFrame call.
	// Zero means no deadline.
	ReadTimeout, WriteTimeout time.Duration

	// Whether WriteFrame may snappy-compress bodies.
	// Compressed frames are always accepted when reading.
	Compress bool
}

// StreamFramer is a [Framer] over an [mquic.Stream].
type StreamFramer struct {
	s   mquic.Stream
	r   *bufio.Reader
	cfg Config

	// Reused between writes.
	wbuf, sbuf []byte
}

var _ Framer = (*StreamFramer)(nil)

// NewStreamFramer returns a StreamFramer reading and writing on s.
// The framer buffers reads, so s must not be read directly afterwards.
func NewStreamFramer(s mquic.Stream, cfg Config) *StreamFramer {
	if cfg.MaxFrameSize == 0 {
		panic(errors.New("ILLEGAL: MaxFrameSize must be greater than zero"))
	}

	return &StreamFramer{
		s:   s,
		r:   bufio.NewReader(s),
		cfg: cfg,
	}
}

// ReadFrame implements [Framer].
func (f *StreamFramer) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("frame read canceled: %w", context.Cause(ctx))
	}

	if err := f.s.SetReadDeadline(deadline(f.cfg.ReadTimeout)); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	// Cancellation unblocks a pending read by expiring the deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = f.s.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	frame, err := f.readFrame()
	if err != nil {
		return nil, ioError(ctx, "read", err)
	}
	return frame, nil
}

func (f *StreamFramer) readFrame() ([]byte, error) {
	enc, err := f.r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}
	if enc != rawEncoding && enc != snappyEncoding {
		return nil, fmt.Errorf("%w 0x%x", ErrUnknownEncoding, enc)
	}

	sz, err := f.readLength()
	if err != nil {
		return nil, err
	}

	// The body length is bounded before allocating for it.
	if err := mcodec.CheckLimit("frame size", sz, f.cfg.MaxFrameSize); err != nil {
		return nil, err
	}

	body := make([]byte, sz)
	if _, err := io.ReadFull(f.r, body); err != nil {
		return nil, fmt.Errorf("failed to read %d-byte frame body: %w", sz, err)
	}

	if enc == rawEncoding {
		return body, nil
	}

	decLen, err := snappy.DecodedLen(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snappy frame length: %w", err)
	}
	if err := mcodec.CheckLimit("decompressed frame size", decLen, f.cfg.MaxFrameSize); err != nil {
		return nil, err
	}

	out, err := snappy.Decode(make([]byte, decLen), body)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress frame: %w", err)
	}
	return out, nil
}

// readLength reads the varint frame length one byte at a time,
// so a hostile peer cannot make it read past the length.
func (f *StreamFramer) readLength() (int, error) {
	var buf [mcodec.MaxVarintLen]byte
	for i := range buf {
		b, err := f.r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("failed to read frame length: %w", err)
		}
		buf[i] = b
		if b < 0x80 {
			v, _, err := mcodec.ReadUvarint(buf[:i+1], "frame length")
			if err != nil {
				return 0, err
			}
			if v > uint64(f.cfg.MaxFrameSize) {
				return 0, mcodec.LimitExceededError{
					Field: "frame size",
					Got:   v,
					Limit: uint64(f.cfg.MaxFrameSize),
				}
			}
			return int(v), nil
		}
	}

	// Every byte had the continuation bit set.
	_, _, err := mcodec.ReadUvarint(buf[:], "frame length")
	return 0, err
}

// WriteFrame implements [Framer].
func (f *StreamFramer) WriteFrame(ctx context.Context, frame []byte) error {
	if err := mcodec.CheckLimit("frame size", len(frame), f.cfg.MaxFrameSize); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("frame write canceled: %w", context.Cause(ctx))
	}

	f.wbuf = f.encode(f.wbuf[:0], frame)

	if err := f.s.SetWriteDeadline(deadline(f.cfg.WriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = f.s.SetWriteDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := f.s.Write(f.wbuf); err != nil {
		return ioError(ctx, "write", fmt.Errorf("failed to write frame: %w", err))
	}
	return nil
}

func (f *StreamFramer) encode(dst, frame []byte) []byte {
	if f.cfg.Compress {
		f.sbuf = snappy.Encode(f.sbuf[:cap(f.sbuf)], frame)

		if len(f.sbuf) < len(frame) {
			dst = append(dst, snappyEncoding)
			dst = mcodec.AppendUvarint(dst, uint64(len(f.sbuf)))
			return append(dst, f.sbuf...)
		}
	}

	dst = append(dst, rawEncoding)
	dst = mcodec.AppendUvarint(dst, uint64(len(frame)))
	return append(dst, frame...)
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// ioError prefers the context's cause over the deadline error it produced,
// and marks genuine timeouts with [ErrTimeout].
func ioError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("frame %s canceled: %w", op, context.Cause(ctx))
	}

	var te interface{ Timeout() bool }
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &te) && te.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
