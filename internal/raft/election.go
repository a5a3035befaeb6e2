package raft

import (
	"github.com/mouad-eh/raftkv/internal/timer"
	"github.com/mouad-eh/raftkv/internal/wire"
)

// startElection drives FOLLOWER -> CANDIDATE on election-timer
// expiration, and is called again for CANDIDATE's own retry on a fresh
// timeout (spec.md §4.3 "CANDIDATE retry"). Modeled as a plain method
// invoked from the event loop rather than the teacher's (absent) nested
// read loop, per spec.md §9's re-architecture note: recursion becomes a
// loop within the top-level dispatch, not re-entrant candidacy.
func (r *Replica) startElection() {
	r.term++
	r.votedThisTerm = false
	r.role = Candidate
	r.leader = nil
	r.votesReceived = map[string]struct{}{r.id: {}}
	r.votedThisTerm = true // counting 1 vote for self casts this term's vote
	r.clock.Reset(timer.RandomElectionTimeout(r.rng))

	r.logger.Infow("starting election", append(r.fields(), "last_log_term", r.lastLogTerm())...)

	entry := []int{len(r.log), r.lastLogTerm()}
	for _, other := range r.others {
		r.send(wire.Message{
			Dst:   other,
			Type:  wire.TypeReqVote,
			Term:  r.term,
			Entry: entry,
		})
	}

	// A single-replica cluster has no peers to ack, so the self-vote
	// above already meets quorum; nothing else will ever call
	// becomeLeader for it.
	if len(r.votesReceived) >= quorumVotes(len(r.others)) {
		r.becomeLeader()
	}
}

// quorumVotes is the number of votes (including the self-vote) a
// candidate needs to become leader, computed as floor(len(others)/2)+1
// (spec.md §4.3). For an odd number of replicas this is a strict
// majority of len(others)+1; for an even number it is exactly half,
// one vote short of a strict majority.
func quorumVotes(others int) int {
	return others/2 + 1
}

// becomeLeader is CANDIDATE -> LEADER on reaching quorum (spec.md
// §4.3).
func (r *Replica) becomeLeader() {
	ls := &leaderState{nextIndices: make(map[string]int)}
	for _, other := range r.others {
		ls.nextIndices[other] = len(r.log)
	}
	r.leader = ls
	r.role = Leader
	r.setKnownLeader(r.id)
	r.clock.Reset(timer.HeartbeatInterval)

	r.logger.Infow("became leader", r.fields()...)

	r.broadcastHeartbeat()
}

// handleAckVote counts a vote while collecting for the current
// candidacy. AckVote carries no term (spec.md §4.2's table), so every
// ack received while CANDIDATE is attributed to the in-flight election;
// a stale ack from an abandoned candidacy of an earlier term in this
// replica's own history could in principle be miscounted here, but the
// wire schema gives this replica no way to tell the difference — that
// is a known limitation carried over unchanged from spec.md's schema,
// not something this core invents a workaround for.
func (r *Replica) handleAckVote(msg wire.Message) {
	if r.role != Candidate {
		return
	}
	r.votesReceived[msg.Src] = struct{}{}
	if len(r.votesReceived) >= quorumVotes(len(r.others)) {
		r.becomeLeader()
	}
}

// handleReqVote implements spec.md §4.7 in full: the term-bump fallthrough
// into vote logic, and the three vote-withholding conditions.
func (r *Replica) handleReqVote(msg wire.Message) {
	candLen, candLastTerm := 0, 0
	if len(msg.Entry) == 2 {
		candLen, candLastTerm = msg.Entry[0], msg.Entry[1]
	}

	if msg.Term > r.term {
		r.term = msg.Term
		r.votedThisTerm = false
		r.clock.Reset(timer.RandomElectionTimeout(r.rng))
		r.stepDownTo(Follower)
	}

	// 1. Sender's term is stale.
	if msg.Term < r.term {
		return
	}
	// Vote logic requires FOLLOWER role and an unused vote this term.
	if r.role != Follower || r.votedThisTerm {
		return
	}
	// 2. Candidate's log must be at least as up-to-date as ours: higher
	// last-log term wins outright; on a tie, the longer log wins. A
	// shorter log at a strictly higher term is still more up-to-date
	// (spec.md §4.7).
	if len(r.log) > 0 {
		lastTerm := r.lastLogTerm()
		if candLastTerm < lastTerm || (candLastTerm == lastTerm && candLen < len(r.log)) {
			return
		}
	}
	// 3. Grant the vote.
	r.send(wire.Message{Dst: msg.Src, Type: wire.TypeAckVote})
	r.votedThisTerm = true
}

// stepDownTo demotes this replica to role (always Follower in this
// implementation) and, if it was LEADER, discards next_indices and
// fails every outstanding unacked put with a redirect — spec.md §4.3's
// LEADER -> FOLLOWER side effects, and §4.6's "leader steps down with
// outstanding writes" rule.
func (r *Replica) stepDownTo(role Role) {
	wasLeader := r.role == Leader
	var pending []pendingPut
	if wasLeader && r.leader != nil {
		pending = r.leader.unackedPuts
	}
	r.role = role
	r.leader = nil
	r.votesReceived = make(map[string]struct{})

	for _, p := range pending {
		r.redirect(p.Msg)
	}
}
