package broker

import (
	"context"
	"sync"
)

// MemoryClient is a deterministic, in-process stand-in for KafkaClient:
// a single ordered log, shared by every MemoryClient constructed from
// the same *MemoryLog, so that two or more Dict instances in a test
// can publish to and catch up from one another without a running
// broker. It has no partitions, no watermark math, and no consumer
// groups — Consume simply replays whatever in the shared log this
// client's cursor hasn't applied yet, which is enough to exercise
// pkg/dict's catch-up and replay-convergence behavior.
type MemoryClient struct {
	log    *MemoryLog
	cursor int
}

// MemoryLog is the shared append-only backing store for one or more
// MemoryClients. Construct one per simulated topic and hand it to
// NewMemoryClient for every instance that should observe the same
// stream.
type MemoryLog struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryLog returns an empty shared log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// NewMemoryClient returns a Client view onto log, starting with no
// records yet applied.
func NewMemoryClient(log *MemoryLog) *MemoryClient {
	return &MemoryClient{log: log}
}

func (c *MemoryClient) Publish(_ context.Context, key, value []byte) error {
	c.log.mu.Lock()
	defer c.log.mu.Unlock()
	c.log.records = append(c.log.records, Record{
		Key:       append([]byte(nil), key...),
		Value:     append([]byte(nil), value...),
		Timestamp: 0, // stamped by pkg/record.Encode before reaching here
		Offset:    int64(len(c.log.records)),
	})
	return nil
}

func (c *MemoryClient) Flush(_ context.Context) error { return nil }

// Consume replays every record appended since this client's last
// Consume call, then returns — it does not wait for records published
// after it was entered, matching the bounded catch-up contract real
// KafkaClient implements against partition watermarks.
func (c *MemoryClient) Consume(ctx context.Context, apply func(Record) error) error {
	c.log.mu.Lock()
	bound := len(c.log.records)
	pending := append([]Record(nil), c.log.records[c.cursor:bound]...)
	c.log.mu.Unlock()

	for _, r := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := apply(r); err != nil {
			return err
		}
	}
	c.cursor = bound
	return nil
}

func (c *MemoryClient) Close() error { return nil }
