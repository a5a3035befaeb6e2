// Package wire defines the tagged message envelope every replica and
// client speaks. It is the normative form of spec.md §4.2: a single
// struct with omitempty payload fields rather than a sum of variants,
// since encoding/json has no closed-union type and the message set is
// small and fixed.
package wire

// Broadcast is the reserved destination/leader id meaning "no specific
// destination" or "no known leader".
const Broadcast = "FFFF"

// Message type discriminators. Part of the wire contract (spec.md §6):
// every replica in a cluster must agree on these exact literals.
const (
	TypeHello     = "hello"
	TypePut       = "put"
	TypeGet       = "get"
	TypeOK        = "ok"
	TypeRedirect  = "redirect"
	TypeReqVote   = "ReqVote"
	TypeAckVote   = "AckVote"
	TypeAppendRPC = "AppendRPC"
	TypeSuccess   = "success"
	TypeBlunder   = "blunder"
)

// LogEntry is one (term, (key, value)) pair in a replica's log.
type LogEntry struct {
	Term  int    `json:"term"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Message is the envelope carried over the datagram transport. Every
// message has Src, Dst, Leader and Type; the remaining fields are
// populated per Type and otherwise omitted from the encoded JSON.
type Message struct {
	Src    string `json:"src"`
	Dst    string `json:"dst"`
	Leader string `json:"leader"`
	Type   string `json:"type"`

	// put / get / ok / redirect
	MID   string `json:"MID,omitempty"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`

	// ReqVote / AppendRPC
	Term int `json:"term,omitempty"`

	// ReqVote: Entry = [log_length, last_log_term].
	// AppendRPC: Entry = [prev_index, prev_term], or omitted for a heartbeat.
	Entry []int `json:"entry,omitempty"`

	// AppendRPC
	Logs []LogEntry `json:"logs,omitempty"`

	// success
	NextIndex int `json:"next_idx,omitempty"`
}
