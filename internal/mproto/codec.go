package mproto

import (
	"fmt"

	"github.com/lareeq/massa/mcodec"
)

// AppendMessage appends the compact encoding of m to dst:
// the varint type tag, then the signature for signed types,
// then the payload.
//
// An encoding larger than the context's MaxBootstrapMessageSize
// is an error, so a peer never sends what the other side must reject.
func AppendMessage(dst []byte, m Message, sc *mcodec.SerializationContext) ([]byte, error) {
	switch m.(type) {
	case InitiationMessage, TimeMessage, PeersMessage, ConsensusStateMessage:
	default:
		// Pointers to the message types satisfy Message too,
		// but only the value forms are accepted.
		return nil, fmt.Errorf("cannot encode message of type %T", m)
	}

	start := len(dst)
	dst = mcodec.AppendUvarint(dst, uint64(m.Type()))

	if !m.Type().Signed() {
		init := m.(InitiationMessage)
		dst = append(dst, init.RandomBytes[:]...)
	} else {
		sig, _ := signature(m)
		dst = append(dst, sig[:]...)

		var err error
		dst, err = m.payload().AppendCompact(dst, sc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", m.Type(), err)
		}
	}

	if sz := len(dst) - start; sz > int(sc.MaxBootstrapMessageSize) {
		return nil, mcodec.LimitExceededError{
			Field: "bootstrap message",
			Got:   uint64(sz),
			Limit: uint64(sc.MaxBootstrapMessageSize),
		}
	}
	return dst, nil
}

// EncodeMessage returns the compact encoding of m in a new slice.
func EncodeMessage(m Message, sc *mcodec.SerializationContext) ([]byte, error) {
	return AppendMessage(nil, m, sc)
}

// DecodeMessage decodes one message from the start of src,
// returning the message and the number of bytes consumed.
//
// Input longer than MaxBootstrapMessageSize is rejected
// before any field is read.
func DecodeMessage(src []byte, sc *mcodec.SerializationContext) (Message, int, error) {
	if len(src) > int(sc.MaxBootstrapMessageSize) {
		return nil, 0, mcodec.LimitExceededError{
			Field: "bootstrap message",
			Got:   uint64(len(src)),
			Limit: uint64(sc.MaxBootstrapMessageSize),
		}
	}

	c := mcodec.NewCursor(src, sc)

	raw, err := c.Uvarint32("message type")
	if err != nil {
		return nil, 0, err
	}
	t, err := ParseMessageTypeID(raw)
	if err != nil {
		return nil, 0, err
	}

	if !t.Signed() {
		var m InitiationMessage
		if err := c.ReadInto("random bytes", m.RandomBytes[:]); err != nil {
			return nil, 0, err
		}
		return m, c.Offset(), nil
	}

	var m Message
	switch t {
	case TimeMessageType:
		var tm TimeMessage
		if err := c.ReadInto("signature", tm.Signature[:]); err != nil {
			return nil, 0, err
		}
		if err := c.Decode("server time", &tm.ServerTime); err != nil {
			return nil, 0, err
		}
		m = tm

	case PeersMessageType:
		var pm PeersMessage
		if err := c.ReadInto("signature", pm.Signature[:]); err != nil {
			return nil, 0, err
		}
		if err := c.Decode("peers", &pm.Peers); err != nil {
			return nil, 0, err
		}
		m = pm

	case ConsensusStateMessageType:
		var cm ConsensusStateMessage
		if err := c.ReadInto("signature", cm.Signature[:]); err != nil {
			return nil, 0, err
		}
		if err := c.Decode("consensus graph", &cm.Graph); err != nil {
			return nil, 0, err
		}
		m = cm

	default:
		panic(fmt.Errorf("BUG: no decoder for registered message type %s", t))
	}

	return m, c.Offset(), nil
}

// DecodeSingleMessage decodes src as exactly one message.
// Bytes after the message are an error matching [mcodec.ErrTrailingBytes].
func DecodeSingleMessage(src []byte, sc *mcodec.SerializationContext) (Message, error) {
	m, n, err := DecodeMessage(src, sc)
	if err != nil {
		return nil, err
	}
	if n != len(src) {
		return nil, fmt.Errorf(
			"bootstrap %s message: %w (consumed %d of %d)",
			m.Type(), mcodec.ErrTrailingBytes, n, len(src),
		)
	}
	return m, nil
}
