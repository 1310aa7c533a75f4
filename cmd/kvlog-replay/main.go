// Command kvlog-replay opens a fresh, disposable dict instance against
// an existing topic, forces it through a full catch-up from the start
// of the log, and dumps the resulting key set — a way to inspect what
// a brand new replica would converge to without disturbing any
// existing consumer group's read position.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/cuemby/kvlog/pkg/dict"
)

func main() {
	brokers := flag.String("brokers", "localhost:9092", "comma-separated broker addresses")
	topic := flag.String("topic", "", "topic to replay (required)")
	flag.Parse()

	if *topic == "" {
		fmt.Fprintln(os.Stderr, "kvlog-replay: --topic is required")
		os.Exit(2)
	}

	d, err := dict.Open(dict.Options{
		Brokers:          strings.Split(*brokers, ","),
		Topic:            *topic,
		GUID:             "replay-" + uuid.NewString(),
		UseEmbeddedStore: false, // disposable: never needs to persist across runs
		ReadOnly:         true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "kvlog-replay:", err)
		os.Exit(1)
	}
	defer d.Close()

	ctx := context.Background()
	keys, err := d.Keys(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kvlog-replay:", err)
		os.Exit(1)
	}
	for _, k := range keys {
		fmt.Println(string(k))
	}
}

