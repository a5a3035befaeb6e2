package raft

import (
	"time"

	"github.com/mouad-eh/raftkv/internal/wire"
)

// Transport is the external collaborator a replica depends on to send
// and receive framed messages. It is deliberately out of scope for this
// core (spec.md §1): the event loop never opens a socket, it only calls
// Send/Recv. internal/transport provides the one concrete
// implementation (UDP datagrams, JSON-encoded), and tests supply an
// in-memory fake.
type Transport interface {
	// Send emits msg. Loss is expected and not an error the caller must
	// react to beyond logging; Send returning an error means the local
	// socket itself failed, not that the peer didn't receive it.
	Send(msg wire.Message) error

	// Recv blocks for up to timeout waiting for the next message. ok is
	// false if nothing arrived before the deadline; that is not an
	// error. A malformed datagram is swallowed internally by the
	// transport and does not count against the caller as a received
	// message (spec.md §7: malformed messages are ignored).
	Recv(timeout time.Duration) (msg wire.Message, ok bool, err error)
}
