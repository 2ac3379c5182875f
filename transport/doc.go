// Package transport owns the TCP connection to one controller port and carries
// request/reply pairs over it.
//
// A Transport serializes requests: at most one frame is in flight and its reply is
// the next line read from the socket. Lines end with CR or LF; empty lines are
// skipped. The connection is dialed lazily and re-dialed after a failure.
//
// Errors are classified so callers can react:
//
//   - ErrTimeout: no reply within the reply timeout. The connection is kept and a
//     late reply is discarded before the next request.
//   - ErrProtocol: a partial or oversized frame was received. The connection is
//     dropped and re-dialed on the next request.
//   - ErrConnection: dialing, writing or reading failed.
//   - ErrClosed: the transport was closed.
package transport
