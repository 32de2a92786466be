// Package node runs the D2D protocol over live connections.
//
// Ownership boundary:
// - client dial/handshake, correlated calls, notification pump
// - server accept loop, precondition gate, event-keyed dispatch
// The authoritative state behind handlers lives elsewhere; this package only
// moves validated messages between peers.
package node
