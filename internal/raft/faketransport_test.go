package raft

import (
	"time"

	"go.uber.org/zap"

	"github.com/mouad-eh/raftkv/internal/wire"
)

// testLogger discards everything; tests assert on state and on messages
// sent through fakeTransport, not on log output.
func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// fakeTransport is an in-memory Transport for deterministic tests: every
// Send appends to outbox, every Recv pops the front of inbox (or reports
// nothing arrived). Grounded on the fake/in-memory transport pattern
// used by isparth-Distributed-Systems/kv-store's raft tests, adapted
// from its HTTP-handler fakes to this package's Send/Recv shape.
type fakeTransport struct {
	outbox []wire.Message
	inbox  []wire.Message
}

func (f *fakeTransport) Send(msg wire.Message) error {
	f.outbox = append(f.outbox, msg)
	return nil
}

func (f *fakeTransport) Recv(time.Duration) (wire.Message, bool, error) {
	if len(f.inbox) == 0 {
		return wire.Message{}, false, nil
	}
	msg := f.inbox[0]
	f.inbox = f.inbox[1:]
	return msg, true, nil
}

func (f *fakeTransport) deliver(msg wire.Message) {
	f.inbox = append(f.inbox, msg)
}

func (f *fakeTransport) lastSent() wire.Message {
	return f.outbox[len(f.outbox)-1]
}

func (f *fakeTransport) sentTo(dst string) []wire.Message {
	var out []wire.Message
	for _, m := range f.outbox {
		if m.Dst == dst {
			out = append(out, m)
		}
	}
	return out
}

// newTestReplica builds a replica wired to a fakeTransport and a no-op
// logger, ready for direct method calls (white-box, same package).
func newTestReplica(id string, others ...string) (*Replica, *fakeTransport) {
	tp := &fakeTransport{}
	r := New(id, others, tp, testLogger())
	return r, tp
}
