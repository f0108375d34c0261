// Package mproto contains the bootstrap messages,
// their wire encoding, and the signature chain linking them.
//
// A bootstrap is four messages on one connection:
//
//	joining node  -> InitiationMessage{RandomBytes}
//	bootstrap peer -> TimeMessage{ServerTime, sign(RandomBytes ‖ ServerTime)}
//	bootstrap peer -> PeersMessage{Peers, sign(TimeSig ‖ Peers)}
//	bootstrap peer -> ConsensusStateMessage{Graph, sign(PeersSig ‖ Graph)}
//
// Each signature covers the previous step's authenticating bytes,
// so verifying the last signature attests to the whole exchange.
// See [Chain] for the state machine enforcing that order.
package mproto

import (
	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcrypto"
	"github.com/lareeq/massa/mgraph"
	"github.com/lareeq/massa/mpeer"
	"github.com/lareeq/massa/mtime"
)

// RandomnessSize is the length of the initiation nonce.
const RandomnessSize = 32

// Message is one of [InitiationMessage], [TimeMessage],
// [PeersMessage] or [ConsensusStateMessage].
type Message interface {
	Type() MessageTypeID

	// payload returns the part of the message covered by its signature,
	// or nil for the unsigned initiation message.
	payload() mcodec.Codec

	isMessage()
}

// InitiationMessage starts a bootstrap.
type InitiationMessage struct {
	// Nonce the bootstrap peer must sign in its first reply.
	RandomBytes [RandomnessSize]byte
}

// TimeMessage carries the bootstrap peer's clock.
type TimeMessage struct {
	ServerTime mtime.UTime

	// Signature over the initiation's random bytes and ServerTime.
	Signature mcrypto.Signature
}

// PeersMessage carries the bootstrap peer's peer list.
type PeersMessage struct {
	Peers mpeer.BootstrapPeers

	// Signature over the time message's signature and Peers.
	Signature mcrypto.Signature
}

// ConsensusStateMessage carries the consensus graph snapshot.
type ConsensusStateMessage struct {
	Graph mgraph.BootstrapableGraph

	// Signature over the peers message's signature and Graph.
	Signature mcrypto.Signature
}

func (InitiationMessage) Type() MessageTypeID     { return InitiationMessageType }
func (TimeMessage) Type() MessageTypeID           { return TimeMessageType }
func (PeersMessage) Type() MessageTypeID          { return PeersMessageType }
func (ConsensusStateMessage) Type() MessageTypeID { return ConsensusStateMessageType }

func (InitiationMessage) payload() mcodec.Codec       { return nil }
func (m TimeMessage) payload() mcodec.Codec           { return &m.ServerTime }
func (m PeersMessage) payload() mcodec.Codec          { return &m.Peers }
func (m ConsensusStateMessage) payload() mcodec.Codec { return &m.Graph }

func (InitiationMessage) isMessage()     {}
func (TimeMessage) isMessage()           {}
func (PeersMessage) isMessage()          {}
func (ConsensusStateMessage) isMessage() {}

// signature returns the signature of a signed message.
func signature(m Message) (mcrypto.Signature, bool) {
	switch m := m.(type) {
	case TimeMessage:
		return m.Signature, true
	case PeersMessage:
		return m.Signature, true
	case ConsensusStateMessage:
		return m.Signature, true
	default:
		return mcrypto.Signature{}, false
	}
}
