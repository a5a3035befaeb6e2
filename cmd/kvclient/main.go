// Command kvclient is a minimal put/get client for exercising a
// cluster started with cmd/replica. It is not part of the spec's core
// and not part of its wire contract beyond speaking the same
// wire.Message envelope; adapted from client/client.go of the teacher
// repository, with gRPC replaced by a raw UDP datagram to the shared
// simulator port, and -message replaced by -key/-value and a -get switch
// (a put is sent unless -get is given) per spec.md §6's client protocol.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"github.com/mouad-eh/raftkv/internal/transport"
	"github.com/mouad-eh/raftkv/internal/wire"
)

func main() {
	port := flag.Int("port", 0, "shared simulator port")
	dst := flag.String("to", "", "replica id to address the request to")
	key := flag.String("key", "", "key to put or get")
	value := flag.String("value", "", "value to put (omit for get)")
	get := flag.Bool("get", false, "perform a get instead of a put")
	timeout := flag.Duration("timeout", 2*time.Second, "how long to wait for a reply")
	flag.Parse()

	if *port == 0 || *dst == "" || *key == "" {
		log.Fatal("usage: kvclient -port <port> -to <replica-id> -key <key> [-value <value> | -get]")
	}

	tp, err := transport.Listen(*port)
	if err != nil {
		log.Fatalf("failed to start transport: %v", err)
	}
	defer tp.Close()

	id := "client-" + strconv.FormatInt(rand.Int63(), 36)
	mid := strconv.FormatInt(rand.Int63(), 36)
	msg := wire.Message{Src: id, Dst: *dst, MID: mid, Key: *key}
	if *get {
		msg.Type = wire.TypeGet
	} else {
		msg.Type = wire.TypePut
		msg.Value = *value
	}

	if err := tp.Send(msg); err != nil {
		log.Fatalf("failed to send request: %v", err)
	}

	deadline := time.Now().Add(*timeout)
	for time.Now().Before(deadline) {
		reply, ok, err := tp.Recv(time.Until(deadline))
		if err != nil {
			log.Fatalf("failed to receive reply: %v", err)
		}
		if !ok {
			break
		}
		if reply.MID != mid {
			continue
		}
		switch reply.Type {
		case wire.TypeOK:
			fmt.Printf("ok key=%q value=%q\n", reply.Key, reply.Value)
		case wire.TypeRedirect:
			fmt.Printf("redirect leader=%q (retry there)\n", reply.Leader)
		default:
			fmt.Printf("unexpected reply type %q\n", reply.Type)
		}
		return
	}
	log.Fatal("timed out waiting for a reply")
}
