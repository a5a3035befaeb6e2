package raft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouad-eh/raftkv/internal/wire"
)

func makeLeader(t *testing.T, id string, others ...string) (*Replica, *fakeTransport) {
	t.Helper()
	r, tp := newTestReplica(id, others...)
	r.startElection()
	for _, o := range others {
		r.handleAckVote(wire.Message{Src: o})
		if r.role == Leader {
			break
		}
	}
	require.Equal(t, Leader, r.role)
	tp.outbox = nil // discard the becomeLeader heartbeat fan-out for a clean slate
	return r, tp
}

func TestBroadcastHeartbeat_EmptyBatch(t *testing.T) {
	r, tp := makeLeader(t, "n1", "n2", "n3")
	r.broadcastHeartbeat()

	for _, other := range []string{"n2", "n3"} {
		msgs := tp.sentTo(other)
		require.NotEmpty(t, msgs)
		last := msgs[len(msgs)-1]
		assert.Equal(t, wire.TypeAppendRPC, last.Type)
		assert.Empty(t, last.Logs)
	}
}

func TestHandleAppendRPC_FollowerAcceptsAndGrowsLog(t *testing.T) {
	r, tp := newTestReplica("n1", "n2")
	r.handleAppendRPC(wire.Message{
		Src: "n2", Term: 1, Entry: []int{0, 0},
		Logs: []wire.LogEntry{{Term: 1, Key: "a", Value: "1"}},
	})

	assert.Equal(t, Follower, r.role)
	assert.Equal(t, "n2", r.knownLeader)
	require.Len(t, r.log, 1)
	assert.Equal(t, "a", r.log[0].Key)

	success := tp.lastSent()
	assert.Equal(t, wire.TypeSuccess, success.Type)
	assert.Equal(t, 1, success.NextIndex)
}

func TestHandleAppendRPC_RejectsOnPrefixMismatch(t *testing.T) {
	r, tp := newTestReplica("n1", "n2")
	r.term = 1
	r.log = []wire.LogEntry{{Term: 1, Key: "a", Value: "1"}}

	r.handleAppendRPC(wire.Message{
		Src: "n2", Term: 1, Entry: []int{2, 9}, // prev index 2 doesn't exist
		Logs: []wire.LogEntry{{Term: 1, Key: "b", Value: "2"}},
	})

	assert.Len(t, r.log, 1) // log untouched
	blunder := tp.lastSent()
	assert.Equal(t, wire.TypeBlunder, blunder.Type)
}

func TestHandleAppendRPC_StaleSenderToldBlunder(t *testing.T) {
	r, tp := newTestReplica("n1", "n2")
	r.term = 5

	r.handleAppendRPC(wire.Message{Src: "n2", Term: 3})

	assert.Equal(t, 5, r.term)
	blunder := tp.lastSent()
	assert.Equal(t, wire.TypeBlunder, blunder.Type)
}

func TestHandleAppendRPC_StaleSenderIgnoredByLeader(t *testing.T) {
	r, tp := makeLeader(t, "n1", "n2", "n3")

	r.handleAppendRPC(wire.Message{Src: "n2", Term: 0})

	assert.Equal(t, Leader, r.role)
	assert.Empty(t, tp.outbox)
}

func TestHandleAppendRPC_HigherTermStepsLeaderDown(t *testing.T) {
	r, _ := makeLeader(t, "n1", "n2", "n3")

	r.handleAppendRPC(wire.Message{Src: "n2", Term: r.term + 1})

	assert.Equal(t, Follower, r.role)
	assert.Equal(t, "n2", r.knownLeader)
	assert.Nil(t, r.leader)
}

func TestHandleSuccess_AdvancesNextIndexAndCommits(t *testing.T) {
	r, tp := makeLeader(t, "n1", "n2", "n3")
	put := wire.Message{Src: "client", MID: "m1", Type: wire.TypePut, Key: "k", Value: "v"}
	r.leaderPut(put)
	require.Len(t, r.leader.unackedPuts, 1)

	r.handleSuccess(wire.Message{Src: "n2", NextIndex: 1})
	// Only one follower acked; quorum for 3 replicas needs floor(2/2)=1
	// follower whose next index has reached the entry's index, which n2
	// alone already satisfies.
	assert.Empty(t, r.leader.unackedPuts)
	ok := tp.lastSent()
	assert.Equal(t, wire.TypeOK, ok.Type)
	assert.Equal(t, "client", ok.Dst)
	assert.Equal(t, "m1", ok.MID)
}

func TestHandleSuccess_IgnoredWhenNotLeader(t *testing.T) {
	r, tp := newTestReplica("n1", "n2")
	r.handleSuccess(wire.Message{Src: "n2", NextIndex: 5})
	assert.Empty(t, tp.outbox)
}

func TestHandleBlunder_WalksNextIndexBackAndRetries(t *testing.T) {
	r, tp := makeLeader(t, "n1", "n2", "n3")
	r.log = []wire.LogEntry{{Term: r.term, Key: "a", Value: "1"}, {Term: r.term, Key: "b", Value: "2"}}
	r.leader.nextIndices["n2"] = 2

	r.handleBlunder(wire.Message{Src: "n2"})

	assert.Equal(t, 1, r.leader.nextIndices["n2"])
	retry := tp.lastSent()
	assert.Equal(t, wire.TypeAppendRPC, retry.Type)
	assert.Equal(t, "n2", retry.Dst)
}

func TestHandleBlunder_FloorsAtZero(t *testing.T) {
	r, _ := makeLeader(t, "n1", "n2", "n3")
	r.leader.nextIndices["n2"] = 0

	r.handleBlunder(wire.Message{Src: "n2"})

	assert.Equal(t, 0, r.leader.nextIndices["n2"])
}

func TestAdvanceCommitted_StopsAtFirstUnreachedIndex(t *testing.T) {
	r, _ := makeLeader(t, "n1", "n2", "n3")
	r.leaderPut(wire.Message{Src: "client", MID: "m1", Key: "k1", Value: "v1"})
	r.leaderPut(wire.Message{Src: "client", MID: "m2", Key: "k2", Value: "v2"})
	require.Len(t, r.leader.unackedPuts, 2)

	// n2 only reaches index 1; index 2 stays uncommitted, so m2 must not
	// be popped even though nothing blocks it individually.
	r.handleSuccess(wire.Message{Src: "n2", NextIndex: 1})

	require.Len(t, r.leader.unackedPuts, 1)
	assert.Equal(t, "m2", r.leader.unackedPuts[0].Msg.MID)
}
