package mproto

import (
	"context"
	"errors"
	"fmt"

	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcrypto"
	"github.com/lareeq/massa/mgraph"
	"github.com/lareeq/massa/mpeer"
	"github.com/lareeq/massa/mtime"
)

// Phase is the position of a [Chain] within the bootstrap exchange.
// Phases are local state and never sent on the wire.
type Phase uint8

const (
	AwaitingInitiation Phase = iota
	AwaitingTime
	AwaitingPeers
	AwaitingConsensusState
	Complete
)

func (p Phase) String() string {
	switch p {
	case AwaitingInitiation:
		return "AwaitingInitiation"
	case AwaitingTime:
		return "AwaitingTime"
	case AwaitingPeers:
		return "AwaitingPeers"
	case AwaitingConsensusState:
		return "AwaitingConsensusState"
	case Complete:
		return "Complete"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// Expects returns the message type accepted in phase p.
// The second result is false for [Complete],
// which accepts no further messages.
func (p Phase) Expects() (MessageTypeID, bool) {
	switch p {
	case AwaitingInitiation:
		return InitiationMessageType, true
	case AwaitingTime:
		return TimeMessageType, true
	case AwaitingPeers:
		return PeersMessageType, true
	case AwaitingConsensusState:
		return ConsensusStateMessageType, true
	default:
		return 0, false
	}
}

// Chain tracks the signature chain of one bootstrap exchange.
//
// Both sides hold a Chain.
// The joining node calls [Chain.Advance] on every message,
// including the initiation it sent itself;
// the bootstrap server calls Advance on the initiation it received
// and then the Seal methods to produce each signed reply.
//
// A Chain is an immutable value: Advance and the Seal methods
// return the next Chain and leave the receiver unchanged,
// so a failed step never corrupts the state of the exchange.
type Chain struct {
	phase Phase

	// The bytes the next signature must cover before its payload:
	// the initiation nonce, then each preceding signature.
	anchor []byte
}

// Phase returns the current phase of c.
func (c Chain) Phase() Phase {
	return c.phase
}

// Anchor returns a copy of the bytes the next signature is bound to.
// It is nil before the initiation has been processed.
func (c Chain) Anchor() []byte {
	if c.anchor == nil {
		return nil
	}
	return append([]byte(nil), c.anchor...)
}

// Advance checks that m is the message expected in c's phase
// and, for signed messages, that its signature by pub verifies
// over the previous anchor and m's payload.
//
// The verifier is not consulted for the initiation message.
func (c Chain) Advance(
	m Message,
	pub mcrypto.PublicKey,
	v mcrypto.Verifier,
	sc *mcodec.SerializationContext,
) (Chain, error) {
	if err := c.expect(m.Type()); err != nil {
		return c, err
	}

	if init, ok := m.(InitiationMessage); ok {
		return Chain{
			phase:  AwaitingTime,
			anchor: append([]byte(nil), init.RandomBytes[:]...),
		}, nil
	}

	sig, ok := signature(m)
	if !ok {
		return c, fmt.Errorf("cannot advance with message of type %T", m)
	}

	transcript, err := AppendSignContent(nil, c.anchor, m.payload(), sc)
	if err != nil {
		return c, fmt.Errorf("failed to build %s transcript: %w", m.Type(), err)
	}

	if err := v.Verify(pub, transcript, sig); err != nil {
		if !errors.Is(err, mcrypto.ErrSignatureInvalid) {
			err = mcrypto.SignatureInvalidError{Err: err}
		}
		return c, fmt.Errorf("%s message: %w", m.Type(), err)
	}

	return Chain{
		phase:  c.phase + 1,
		anchor: append([]byte(nil), sig[:]...),
	}, nil
}

// SealTime signs t as the time message and returns it with the next chain.
func (c Chain) SealTime(
	ctx context.Context, t mtime.UTime, s mcrypto.Signer, sc *mcodec.SerializationContext,
) (TimeMessage, Chain, error) {
	m := TimeMessage{ServerTime: t}
	next, err := c.seal(ctx, &m.ServerTime, TimeMessageType, &m.Signature, s, sc)
	return m, next, err
}

// SealPeers signs p as the peers message and returns it with the next chain.
func (c Chain) SealPeers(
	ctx context.Context, p mpeer.BootstrapPeers, s mcrypto.Signer, sc *mcodec.SerializationContext,
) (PeersMessage, Chain, error) {
	m := PeersMessage{Peers: p}
	next, err := c.seal(ctx, &m.Peers, PeersMessageType, &m.Signature, s, sc)
	return m, next, err
}

// SealConsensusState signs g as the consensus state message
// and returns it with the completed chain.
func (c Chain) SealConsensusState(
	ctx context.Context, g mgraph.BootstrapableGraph, s mcrypto.Signer, sc *mcodec.SerializationContext,
) (ConsensusStateMessage, Chain, error) {
	m := ConsensusStateMessage{Graph: g}
	next, err := c.seal(ctx, &m.Graph, ConsensusStateMessageType, &m.Signature, s, sc)
	return m, next, err
}

func (c Chain) seal(
	ctx context.Context,
	payload mcodec.Encoder,
	t MessageTypeID,
	sigOut *mcrypto.Signature,
	s mcrypto.Signer,
	sc *mcodec.SerializationContext,
) (Chain, error) {
	if err := c.expect(t); err != nil {
		return c, err
	}

	transcript, err := AppendSignContent(nil, c.anchor, payload, sc)
	if err != nil {
		return c, fmt.Errorf("failed to build %s transcript: %w", t, err)
	}

	sig, err := s.Sign(ctx, transcript)
	if err != nil {
		return c, fmt.Errorf("failed to sign %s message: %w", t, err)
	}
	*sigOut = sig

	return Chain{
		phase:  c.phase + 1,
		anchor: append([]byte(nil), sig[:]...),
	}, nil
}

func (c Chain) expect(got MessageTypeID) error {
	want, ok := c.phase.Expects()
	if !ok || want != got {
		return UnexpectedVariantError{Phase: c.phase, Got: got}
	}
	return nil
}

// AppendSignContent appends the transcript a bootstrap signature covers:
// the anchor bytes followed by the compact encoding of payload.
// The anchor is the initiation nonce for the time message,
// and the previous message's signature for each later message.
func AppendSignContent(
	dst []byte, anchor []byte, payload mcodec.Encoder, sc *mcodec.SerializationContext,
) ([]byte, error) {
	dst = append(dst, anchor...)
	return payload.AppendCompact(dst, sc)
}

// ErrUnexpectedVariant matches any [UnexpectedVariantError].
var ErrUnexpectedVariant = errors.New("unexpected message variant")

// UnexpectedVariantError is returned when a message arrives,
// or is about to be sealed, out of order.
type UnexpectedVariantError struct {
	Phase Phase
	Got   MessageTypeID
}

func (e UnexpectedVariantError) Error() string {
	want, ok := e.Phase.Expects()
	if !ok {
		return fmt.Sprintf("unexpected %s message after bootstrap completed", e.Got)
	}
	return fmt.Sprintf("unexpected %s message in phase %s (want %s)", e.Got, e.Phase, want)
}

func (e UnexpectedVariantError) Is(target error) bool {
	return target == ErrUnexpectedVariant
}
