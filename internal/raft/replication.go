package raft

import (
	"github.com/mouad-eh/raftkv/internal/timer"
	"github.com/mouad-eh/raftkv/internal/wire"
)

// broadcastHeartbeat sends an AppendRPC with empty entry and empty logs
// to every other replica: spec.md's glossary definition of a heartbeat,
// used both on LEADER election and on every heartbeat-timer expiration.
func (r *Replica) broadcastHeartbeat() {
	for _, other := range r.others {
		r.send(wire.Message{Dst: other, Type: wire.TypeAppendRPC, Term: r.term})
	}
}

// replicateTo sends one AppendRPC batch to other, built from the
// leader's current view of other's next index (spec.md §4.4). Called
// on a fresh client put, and again on every success/blunder reply that
// leaves other behind the leader's log.
func (r *Replica) replicateTo(other string) {
	n := r.leader.nextIndices[other]
	prevTerm := 0
	if n > 0 {
		prevTerm = r.log[n-1].Term
	}
	end := n + AppendBatchCap
	if end > len(r.log) {
		end = len(r.log)
	}
	batch := append([]wire.LogEntry(nil), r.log[n:end]...)

	r.send(wire.Message{
		Dst:   other,
		Type:  wire.TypeAppendRPC,
		Term:  r.term,
		Entry: []int{n, prevTerm},
		Logs:  batch,
	})
}

// handleAppendRPC implements spec.md §4.5 for the follower side, and
// also subsumes the CANDIDATE -> FOLLOWER and LEADER -> FOLLOWER
// transitions of §4.3: any AppendRPC carrying term >= current term puts
// this replica into FOLLOWER behind the sender, except at a LEADER for an
// AppendRPC of its own term, which it ignores if it sent it and treats as
// a fatal invariant violation otherwise.
func (r *Replica) handleAppendRPC(msg wire.Message) {
	if msg.Term < r.term {
		// Stale sender. A leader at a higher term ignores it outright
		// (spec.md §7); anyone else tells the sender it's behind.
		if r.role != Leader {
			r.send(wire.Message{Dst: msg.Src, Type: wire.TypeBlunder})
		}
		return
	}

	if msg.Term == r.term && r.role == Leader {
		if msg.Src != r.id {
			r.logger.Fatalw("invariant violation: two leaders observed in the same term",
				"replica", r.id, "term", r.term, "other_leader", msg.Src)
		}
		return
	}

	if msg.Term > r.term {
		r.term = msg.Term
	}
	r.stepDownTo(Follower)
	r.setKnownLeader(msg.Src)
	r.votedThisTerm = true // a leader in this term obviates any candidacy
	r.clock.Reset(timer.RandomElectionTimeout(r.rng))

	if len(msg.Logs) == 0 {
		// Heartbeat (or an empty batch): term/leader already updated
		// above, the log is left untouched regardless of Entry.
		return
	}

	n, prevTerm := 0, 0
	if len(msg.Entry) == 2 {
		n, prevTerm = msg.Entry[0], msg.Entry[1]
	}
	accept := n == 0 || (n <= len(r.log) && r.log[n-1].Term == prevTerm)
	if !accept {
		r.send(wire.Message{Dst: msg.Src, Type: wire.TypeBlunder})
		return
	}

	r.log = append(r.log[:n:n], msg.Logs...)
	r.send(wire.Message{Dst: msg.Src, Type: wire.TypeSuccess, NextIndex: len(r.log)})
}

// handleSuccess advances next_indices[other] and, if other is still
// behind, immediately sends the next batch. It then pops every unacked
// put that has reached quorum, in log order (spec.md §4.4).
func (r *Replica) handleSuccess(msg wire.Message) {
	if r.role != Leader {
		return
	}
	if msg.NextIndex > r.leader.nextIndices[msg.Src] {
		r.leader.nextIndices[msg.Src] = msg.NextIndex
	}
	if msg.NextIndex < len(r.log) {
		r.replicateTo(msg.Src)
	}
	r.advanceCommitted()
}

// handleBlunder walks next_indices[other] one step back toward the
// always-matching empty-prefix sentinel at 0 and retries (spec.md
// §4.4, §9's first open question).
func (r *Replica) handleBlunder(msg wire.Message) {
	if r.role != Leader {
		return
	}
	next := r.leader.nextIndices[msg.Src] - 1
	if next < 0 {
		next = 0
	}
	r.leader.nextIndices[msg.Src] = next
	r.replicateTo(msg.Src)
}

// advanceCommitted pops every unacked put whose index has reached
// quorum and answers its client with ok. The leader counts itself
// implicitly: it needs only floor(len(others)/2) followers whose
// matched prefix reaches at least an index to call that index
// committed (spec.md §4.4).
func (r *Replica) advanceCommitted() {
	for len(r.leader.unackedPuts) > 0 {
		head := r.leader.unackedPuts[0]
		if !r.hasQuorum(head.Index) {
			break
		}
		r.leader.unackedPuts = r.leader.unackedPuts[1:]
		r.send(wire.Message{Dst: head.Msg.Src, Type: wire.TypeOK, MID: head.Msg.MID})
	}
}

func (r *Replica) hasQuorum(index int) bool {
	acked := 0
	for _, other := range r.others {
		if r.leader.nextIndices[other] >= index {
			acked++
		}
	}
	return acked >= len(r.others)/2
}
