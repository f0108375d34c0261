package mproto

import (
	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcrypto"
	"github.com/lareeq/massa/mgraph"
	"github.com/lareeq/massa/mpeer"
	"github.com/lareeq/massa/mtime"
)

// TimeSignContent returns the transcript signed in a [TimeMessage]:
// the initiation nonce followed by the encoded server time.
func TimeSignContent(random [RandomnessSize]byte, t mtime.UTime, sc *mcodec.SerializationContext) ([]byte, error) {
	return AppendSignContent(nil, random[:], t, sc)
}

// PeersSignContent returns the transcript signed in a [PeersMessage]:
// the time message's signature followed by the encoded peers.
func PeersSignContent(prev mcrypto.Signature, p mpeer.BootstrapPeers, sc *mcodec.SerializationContext) ([]byte, error) {
	return AppendSignContent(nil, prev[:], p, sc)
}

// ConsensusStateSignContent returns the transcript signed in a [ConsensusStateMessage]:
// the peers message's signature followed by the encoded graph.
func ConsensusStateSignContent(
	prev mcrypto.Signature, g mgraph.BootstrapableGraph, sc *mcodec.SerializationContext,
) ([]byte, error) {
	return AppendSignContent(nil, prev[:], g, sc)
}
