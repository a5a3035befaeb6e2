// Package raft is the per-replica consensus engine: the leader-election
// state machine, the log-replication protocol, the quorum accounting
// for client writes, and the role-dependent client request dispatcher.
// It is grounded on raft/server.go and raft/original_raft.go of the
// teacher repository (github.com/mouad-eh/gosensus) — the same
// PersistentState/VolatileState split, the same SentLength/AckedLength
// bookkeeping generalized to next_indices and commit quorum — rewritten
// from the teacher's goroutine-and-gRPC concurrency model into the
// single-threaded, datagram-driven event loop spec.md §5 mandates.
package raft

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/mouad-eh/raftkv/internal/timer"
	"github.com/mouad-eh/raftkv/internal/wire"
)

// Broadcast is re-exported from wire for callers of this package that
// never otherwise need to import it directly.
const Broadcast = wire.Broadcast

// AppendBatchCap bounds how many log entries a single AppendRPC carries
// (spec.md §4.4's NUM_BUFFER), keeping any one datagram well under the
// 65535-byte buffer spec.md §5 sizes the transport for.
const AppendBatchCap = 114

// Role is one of FOLLOWER, CANDIDATE, LEADER (spec.md §3). Modeled as an
// enum rather than the teacher's bare strings so invalid roles cannot be
// constructed and role switches are exhaustive at compile time.
type Role int

const (
	Follower Role = iota
	Candidate
	Leader
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	default:
		return "unknown"
	}
}

// pendingPut is one entry of the leader's unacked_puts queue: a client
// put appended to the log but not yet known to be on a majority.
type pendingPut struct {
	Index int // 1-based log index the entry occupies
	Msg   wire.Message
}

// leaderState holds the tables that exist only while this replica is
// LEADER. It is re-initialized on every leader transition and discarded
// on step-down, matching spec.md §3's lifecycle note; the type system
// makes that explicit by nil-ing the pointer rather than leaving stale
// maps lying around on a demoted replica.
type leaderState struct {
	nextIndices map[string]int // other replica id -> next log index to try
	unackedPuts []pendingPut    // ordered; matches log order
}

// Replica is a single node's consensus engine. It owns no socket: all
// I/O goes through Transport, and the whole struct is touched only from
// Run's event loop (spec.md §5 — no locks, no background goroutines).
type Replica struct {
	id     string
	others []string

	transport Transport
	logger    *zap.SugaredLogger
	rng       *rand.Rand

	// Persistent-ish state (in-memory only; persistence is a non-goal
	// per spec.md §1 — durability is majority replication while the
	// cluster is up, not disk survival).
	term          int
	votedThisTerm bool
	log           []wire.LogEntry

	// Volatile state.
	role        Role
	knownLeader string // wire.Broadcast if unknown

	votesReceived map[string]struct{} // meaningful only while role == Candidate
	leader        *leaderState         // non-nil iff role == Leader

	deferred []wire.Message // put/get received while Candidate

	clock *timer.Timer
}

// New constructs a replica in the FOLLOWER role at term 0, per spec.md
// §3's initial conditions. others is every other replica id in the
// cluster, excluding id itself.
func New(id string, others []string, transport Transport, logger *zap.SugaredLogger) *Replica {
	r := &Replica{
		id:            id,
		others:        append([]string(nil), others...),
		transport:     transport,
		logger:        logger,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		role:          Follower,
		knownLeader:   wire.Broadcast,
		votesReceived: make(map[string]struct{}),
	}
	r.clock = timer.New(timer.RandomElectionTimeout(r.rng))
	return r
}

// lastLogTerm returns the term of the last log entry, or 0 if the log
// is empty (index 0 denotes the empty prefix, spec.md §3).
func (r *Replica) lastLogTerm() int {
	if len(r.log) == 0 {
		return 0
	}
	return r.log[len(r.log)-1].Term
}

// setKnownLeader records the believed leader. Encodes spec.md §7's
// fatal invariant at the one place it can be violated: a leader whose
// own id diverges from its own known-leader field is a bug, not an
// external failure, and must abort rather than limp along.
func (r *Replica) setKnownLeader(id string) {
	if r.role == Leader && id != r.id {
		r.logger.Fatalw("invariant violation: leader's known-leader diverged from self",
			"replica", r.id, "term", r.term, "known_leader", id)
	}
	r.knownLeader = id
}

func (r *Replica) fields() []interface{} {
	return []interface{}{"role", r.role.String(), "term", r.term}
}

// send fills in Src and Leader and hands msg to the transport. Loss of
// an individual send is not retried here: the protocol's own timers
// (election timeouts, repeated AppendRPC on put) are the retry
// mechanism (spec.md §5, §7).
func (r *Replica) send(msg wire.Message) {
	msg.Src = r.id
	if msg.Leader == "" {
		msg.Leader = r.knownLeader
	}
	if err := r.transport.Send(msg); err != nil {
		r.logger.Errorw("failed to send message", append(r.fields(), "type", msg.Type, "dst", msg.Dst, "error", err)...)
	}
}
