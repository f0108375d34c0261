// Package massa contains the public API for bootstrapping a ledger node
// from a trusted bootstrap server.
//
// A node joining the network has no state and no trusted peers.
// It connects to a bootstrap server whose public key it already knows,
// and the server sends, in order, its current time, its peer list,
// and a snapshot of its consensus graph.
// Each of those messages is signed over the previous one,
// with the first signature covering random bytes chosen by the joining node,
// so a recorded exchange cannot be replayed
// and no message can be swapped in from another exchange.
//
// Use [NewClient] and [*Client.Bootstrap] on the joining node,
// and [NewServer] and [*Server.Serve] on the bootstrap server.
// Both run over an [mquic.Conn];
// see [mquic.Dialer] and [mquic.Listen] for establishing one.
package massa
