// Package mbsserver contains the bootstrap server's side of the bootstrap protocol.
//
// After the joining node opens the bootstrap stream, the server:
//   - Waits for, and then reads, an Initiation message
//   - Sends its current time, signed over the initiation's random bytes
//   - Sends its peer list, signed over the time signature
//   - Sends its consensus graph, signed over the peers signature
//   - Bootstrapping is complete
package mbsserver
