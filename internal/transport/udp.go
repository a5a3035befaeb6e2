// Package transport is the one concrete Transport the core raft
// package is compiled against in production: length-unframed UDP
// datagrams, one JSON-encoded wire.Message per datagram (spec.md §6).
// It is explicitly out of scope for the consensus core itself (spec.md
// §1 calls it "an external collaborator"), but something has to answer
// cmd/replica's sockets, so this is adapted from
// IvanObreshkov-aubg-cos-senior-project/internal/swim/transport.go's
// UDPTransport — same net.ListenUDP/ReadFromUDP/WriteToUDP/json shape,
// stripped of its background goroutine and handler callback, since
// spec.md §5 requires the replica to pull one message per event-loop
// iteration rather than have one pushed to it asynchronously.
package transport

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/mouad-eh/raftkv/internal/wire"
)

// maxDatagramSize matches spec.md §5's buffer sizing note: 65535 bytes
// is sufficient for any datagram this protocol defines given the
// NUM_BUFFER cap on appended entries.
const maxDatagramSize = 65535

// UDP implements raft.Transport. Every outbound message is sent to a
// single shared simulator address; the simulator (out of scope here)
// is responsible for routing by the message's Dst field to whichever
// replica's ephemeral receive port first announced that id via hello.
type UDP struct {
	conn    *net.UDPConn
	simAddr *net.UDPAddr
	buf     []byte
}

// Listen binds an ephemeral UDP receive endpoint and targets simPort on
// localhost as the shared simulator port every Send goes through.
func Listen(simPort int) (*UDP, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		return nil, fmt.Errorf("failed to bind receive socket: %w", err)
	}
	simAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("127.0.0.1:%d", simPort))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to resolve simulator address: %w", err)
	}
	return &UDP{conn: conn, simAddr: simAddr, buf: make([]byte, maxDatagramSize)}, nil
}

// Send JSON-encodes msg and writes it as one datagram to the simulator
// address, regardless of msg.Dst (the simulator is the one that knows
// how to route by id).
func (u *UDP) Send(msg wire.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	_, err = u.conn.WriteToUDP(data, u.simAddr)
	if err != nil {
		return fmt.Errorf("failed to write datagram: %w", err)
	}
	return nil
}

// Recv blocks for up to timeout for the next valid datagram. A
// malformed datagram is silently skipped and does not consume the
// caller's deadline budget beyond the time already spent (spec.md §7).
func (u *UDP) Recv(timeout time.Duration) (wire.Message, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return wire.Message{}, false, nil
		}
		if err := u.conn.SetReadDeadline(deadline); err != nil {
			return wire.Message{}, false, fmt.Errorf("failed to set read deadline: %w", err)
		}
		n, _, err := u.conn.ReadFromUDP(u.buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return wire.Message{}, false, nil
			}
			return wire.Message{}, false, fmt.Errorf("failed to read datagram: %w", err)
		}
		var msg wire.Message
		if jsonErr := json.Unmarshal(u.buf[:n], &msg); jsonErr != nil {
			continue
		}
		return msg, true, nil
	}
}

// Close releases the receive socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}
