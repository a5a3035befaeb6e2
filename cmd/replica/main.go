// Command replica is the process bootstrap: argument parsing and
// wiring only, deliberately out of scope for the consensus core
// (spec.md §1). Adapted from raft/server_run.go of the teacher
// repository, with gRPC dial/listen replaced by one bound UDP socket
// per spec.md §6, and flag parsing dropped in favor of the spec's
// fixed positional CLI: "replica <port> <id> <other_id>...".
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/mouad-eh/raftkv/internal/logging"
	"github.com/mouad-eh/raftkv/internal/raft"
	"github.com/mouad-eh/raftkv/internal/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: replica <port> <id> <other_id>...")
	}

	port, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[0], err)
	}
	id := args[1]
	others := args[2:]

	tp, err := transport.Listen(port)
	if err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}
	defer tp.Close()

	logger := logging.New(id)
	defer logger.Sync()

	replica := raft.New(id, others, tp, logger)
	return replica.Run(context.Background())
}
