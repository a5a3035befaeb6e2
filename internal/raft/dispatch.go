package raft

import "github.com/mouad-eh/raftkv/internal/wire"

// handlePut dispatches a client put by role (spec.md §4.6).
func (r *Replica) handlePut(msg wire.Message) {
	switch r.role {
	case Follower:
		r.redirect(msg)
	case Candidate:
		r.deferred = append(r.deferred, msg)
	case Leader:
		r.leaderPut(msg)
	}
}

// handleGet dispatches a client get by role (spec.md §4.6).
func (r *Replica) handleGet(msg wire.Message) {
	switch r.role {
	case Follower:
		r.redirect(msg)
	case Candidate:
		r.deferred = append(r.deferred, msg)
	case Leader:
		r.leaderGet(msg)
	}
}

func (r *Replica) redirect(msg wire.Message) {
	r.send(wire.Message{Dst: msg.Src, Type: wire.TypeRedirect, MID: msg.MID})
}

// leaderPut appends the write to the log, tracks it as unacked, and
// fans an AppendRPC out to every follower. The client only hears ok
// once advanceCommitted (driven by success replies) pops this entry.
func (r *Replica) leaderPut(msg wire.Message) {
	r.log = append(r.log, wire.LogEntry{Term: r.term, Key: msg.Key, Value: msg.Value})
	r.leader.unackedPuts = append(r.leader.unackedPuts, pendingPut{Index: len(r.log), Msg: msg})
	for _, other := range r.others {
		r.replicateTo(other)
	}
}

// leaderGet answers immediately from the committed prefix of the log:
// entries at indices strictly less than the head of unacked_puts, or
// the whole log if nothing is outstanding. This is a leader-local,
// non-linearizable read (spec.md §4.6, §9).
func (r *Replica) leaderGet(msg wire.Message) {
	committed := len(r.log)
	if len(r.leader.unackedPuts) > 0 {
		committed = r.leader.unackedPuts[0].Index - 1
	}
	value := ""
	for i := committed - 1; i >= 0; i-- {
		if r.log[i].Key == msg.Key {
			value = r.log[i].Value
			break
		}
	}
	r.send(wire.Message{Dst: msg.Src, Type: wire.TypeOK, MID: msg.MID, Key: msg.Key, Value: value})
}
