// Command kvlog is the operator-facing CLI over a single kvlog dict:
// point get/set/delete, key and item listing, compaction, a metrics
// and health server, and a YAML bulk-load convenience.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvlog/pkg/dict"
	"github.com/cuemby/kvlog/pkg/log"
)

var (
	flagBrokers        []string
	flagTopic          string
	flagGUID           string
	flagDBDir          string
	flagMemoryBudget   int64
	flagCatchupDelay   time.Duration
	flagReadOnly       bool
	flagUniqueProducer bool
	flagUseEmbedded    bool
	flagLogLevel       string
	flagJSONLogs       bool
)

func main() {
	root := &cobra.Command{
		Use:   "kvlog",
		Short: "A durable key-value map backed by a Kafka log",
	}
	cobra.OnInitialize(initLogging)

	root.PersistentFlags().StringSliceVar(&flagBrokers, "brokers", []string{"localhost:9092"}, "comma-separated broker addresses")
	root.PersistentFlags().StringVar(&flagTopic, "topic", "", "topic this dict is addressed to (required)")
	root.PersistentFlags().StringVar(&flagGUID, "guid", "", "instance identity; a fresh one is minted if omitted")
	root.PersistentFlags().StringVar(&flagDBDir, "db-dir", "", "parent directory for rocksdb-<guid>; defaults to the working directory")
	root.PersistentFlags().Int64Var(&flagMemoryBudget, "memory-budget", 0, "write-buffer sizing for the embedded store, in bytes")
	root.PersistentFlags().DurationVar(&flagCatchupDelay, "catchup-delay", 0, "minimum interval between two catch-up cycles")
	root.PersistentFlags().BoolVar(&flagReadOnly, "read-only", false, "reject writes and deletes")
	root.PersistentFlags().BoolVar(&flagUniqueProducer, "unique-producer", false, "catch up exactly once over this process's lifetime")
	root.PersistentFlags().BoolVar(&flagUseEmbedded, "embedded-store", true, "use the embedded bbolt-backed local store instead of an in-memory one")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "debug, info, warn, or error")
	root.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "emit logs as JSON instead of console text")

	root.AddCommand(
		newGetCmd(),
		newSetCmd(),
		newDeleteCmd(),
		newKeysCmd(),
		newItemsCmd(),
		newCompactCmd(),
		newApplyCmd(),
		newServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging() {
	level := log.InfoLevel
	switch flagLogLevel {
	case "debug":
		level = log.DebugLevel
	case "warn":
		level = log.WarnLevel
	case "error":
		level = log.ErrorLevel
	}
	log.Init(log.Config{Level: level, JSONOutput: flagJSONLogs})
}

func openDict() (*dict.Dict, error) {
	if flagTopic == "" {
		return nil, fmt.Errorf("--topic is required")
	}
	return dict.Open(dict.Options{
		Brokers:          flagBrokers,
		Topic:            flagTopic,
		GUID:             flagGUID,
		DBDir:            flagDBDir,
		MemoryBudget:     flagMemoryBudget,
		CatchupDelay:     flagCatchupDelay,
		ReadOnly:         flagReadOnly,
		UniqueProducer:   flagUniqueProducer,
		UseEmbeddedStore: flagUseEmbedded,
	})
}

func withDict(fn func(ctx context.Context, d *dict.Dict) error) error {
	d, err := openDict()
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(context.Background(), d)
}
