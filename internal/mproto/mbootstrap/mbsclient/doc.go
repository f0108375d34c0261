// Package mbsclient contains the joining node's side of the bootstrap protocol.
//
// The joining node opens a stream to a trusted bootstrap server, then:
//   - Sends an Initiation message carrying fresh random bytes
//   - Waits for the Time message, whose signature must cover the random bytes
//   - Waits for the Peers message, whose signature must cover the time signature
//   - Waits for the ConsensusState message, whose signature must cover the peers signature
//   - Bootstrapping is complete
//
// Any out-of-order message, or any signature failing to verify
// against the configured bootstrap key, ends the protocol with an error.
package mbsclient
