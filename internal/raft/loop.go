package raft

import (
	"context"

	"github.com/mouad-eh/raftkv/internal/timer"
	"github.com/mouad-eh/raftkv/internal/wire"
)

// Run is the single-threaded, datagram-driven event loop (spec.md §5).
// Each iteration: check the timer first (an expired timer always wins
// over a pending message), then prefer the deferred-request queue over
// the socket, then block on the socket for no longer than the time
// remaining on the timer. The deferred queue only drains once the
// replica has settled out of CANDIDATE (spec.md §4.3/§5): draining it
// while still a candidate would just re-append every popped put/get
// right back onto itself, spinning forever on the queue and starving
// the socket read that the candidacy needs to resolve. There is
// nothing here resembling the teacher's goroutine-per-RPC fan-out:
// every emission happens inline, synchronously, from whichever handler
// is running.
func (r *Replica) Run(ctx context.Context) error {
	r.send(wire.Message{Dst: wire.Broadcast, Type: wire.TypeHello})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if r.clock.Expired() {
			r.onTimerExpired()
			continue
		}

		if r.role != Candidate && len(r.deferred) > 0 {
			msg := r.deferred[0]
			r.deferred = r.deferred[1:]
			r.dispatch(msg)
			continue
		}

		msg, ok, err := r.transport.Recv(r.clock.Remaining())
		if err != nil {
			r.logger.Errorw("transport receive failed", append(r.fields(), "error", err)...)
			continue
		}
		if !ok {
			continue
		}
		r.dispatch(msg)
	}
}

// onTimerExpired runs the role-specific effect of the single timer
// firing: a FOLLOWER or CANDIDATE starts (or retries) an election; a
// LEADER reasserts itself with a heartbeat.
func (r *Replica) onTimerExpired() {
	switch r.role {
	case Follower, Candidate:
		r.startElection()
	case Leader:
		r.broadcastHeartbeat()
		r.clock.Reset(timer.HeartbeatInterval)
	}
}

// dispatch routes one message by its Type. An unrecognized type is
// ignored and the loop continues (spec.md §7).
func (r *Replica) dispatch(msg wire.Message) {
	switch msg.Type {
	case wire.TypeHello:
		// Startup announcement only; no state to update.
	case wire.TypePut:
		r.handlePut(msg)
	case wire.TypeGet:
		r.handleGet(msg)
	case wire.TypeReqVote:
		r.handleReqVote(msg)
	case wire.TypeAckVote:
		r.handleAckVote(msg)
	case wire.TypeAppendRPC:
		r.handleAppendRPC(msg)
	case wire.TypeSuccess:
		r.handleSuccess(msg)
	case wire.TypeBlunder:
		r.handleBlunder(msg)
	default:
		r.logger.Warnw("ignoring message of unknown type", append(r.fields(), "type", msg.Type, "src", msg.Src)...)
	}
}
