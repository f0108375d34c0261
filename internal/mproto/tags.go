package mproto

import (
	"errors"
	"fmt"
)

// MessageTypeID is the varint tag at the front of every bootstrap message.
type MessageTypeID uint32

const (
	// Not using iota here, to avoid possibility of values changing across the wire.
	// New message types take the next unused value;
	// existing values are never reassigned.

	// The joining node sends a random nonce to start the handshake.
	InitiationMessageType MessageTypeID = 0

	// The bootstrap server sends its current time, signed over the nonce.
	TimeMessageType MessageTypeID = 1

	// The bootstrap server sends its peer list,
	// signed over the time message's signature.
	PeersMessageType MessageTypeID = 2

	// The bootstrap server sends its consensus graph,
	// signed over the peers message's signature.
	ConsensusStateMessageType MessageTypeID = 3
)

// ParseMessageTypeID maps a wire tag to a MessageTypeID.
// Any value outside the registry is an [UnknownMessageTypeError];
// there is no fallback type.
func ParseMessageTypeID(v uint32) (MessageTypeID, error) {
	switch v {
	case 0:
		return InitiationMessageType, nil
	case 1:
		return TimeMessageType, nil
	case 2:
		return PeersMessageType, nil
	case 3:
		return ConsensusStateMessageType, nil
	default:
		return 0, UnknownMessageTypeError{ID: v}
	}
}

// Signed reports whether messages of type t carry a signature.
func (t MessageTypeID) Signed() bool {
	switch t {
	case InitiationMessageType:
		return false
	case TimeMessageType, PeersMessageType, ConsensusStateMessageType:
		return true
	default:
		panic(fmt.Errorf("BUG: Signed called on unknown message type %d", uint32(t)))
	}
}

func (t MessageTypeID) String() string {
	switch t {
	case InitiationMessageType:
		return "Initiation"
	case TimeMessageType:
		return "Time"
	case PeersMessageType:
		return "Peers"
	case ConsensusStateMessageType:
		return "ConsensusState"
	default:
		return fmt.Sprintf("MessageTypeID(%d)", uint32(t))
	}
}

// ErrUnknownMessageType matches any [UnknownMessageTypeError].
var ErrUnknownMessageType = errors.New("unknown message type")

// UnknownMessageTypeError is returned when decoding a tag
// that is not in the registry.
type UnknownMessageTypeError struct {
	ID uint32
}

func (e UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("unknown message type %d", e.ID)
}

func (e UnknownMessageTypeError) Is(target error) bool {
	return target == ErrUnknownMessageType
}
