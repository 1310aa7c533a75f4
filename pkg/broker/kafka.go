package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/cuemby/kvlog/pkg/log"
	"github.com/cuemby/kvlog/pkg/types"
)

// pollTimeout bounds each individual PollFetches call so that a
// catch-up against an unreachable broker eventually surfaces an error
// through the caller's context instead of blocking silently forever.
const pollTimeout = 10 * time.Second

// KafkaClient is the production Client, backed by a single
// github.com/twmb/franz-go consumer-group client shared between
// producing and consuming; both roles are constructed lazily, the
// first time either is needed, since franz-go's kgo.Client already
// multiplexes both over one connection pool.
type KafkaClient struct {
	brokers []string
	topic   string
	group   string
	logger  zerolog.Logger

	once    sync.Once
	initErr error
	cl      *kgo.Client
	adm     *kadm.Client

	mu       sync.Mutex
	assigned map[int32]struct{}
}

// NewKafkaClient returns a Client that publishes to and replays topic,
// using group as both the consumer group ID and the caller's instance
// identity.
func NewKafkaClient(brokers []string, topic, group string) *KafkaClient {
	return &KafkaClient{
		brokers:  brokers,
		topic:    topic,
		group:    group,
		logger:   log.WithTopic(log.WithComponent("broker"), topic),
		assigned: make(map[int32]struct{}),
	}
}

func (c *KafkaClient) ensure() error {
	c.once.Do(func() {
		opts := []kgo.Opt{
			kgo.SeedBrokers(c.brokers...),
			kgo.ClientID("kvlog-" + c.group),
			kgo.ConsumerGroup(c.group),
			kgo.ConsumeTopics(c.topic),
			kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
			kgo.SessionTimeout(6 * time.Second),
			kgo.OnPartitionsAssigned(c.onAssigned),
			kgo.OnPartitionsRevoked(c.onRevoked),
			kgo.OnPartitionsLost(c.onRevoked),
		}
		cl, err := kgo.NewClient(opts...)
		if err != nil {
			c.initErr = fmt.Errorf("broker: construct client: %w", err)
			return
		}
		c.cl = cl
		c.adm = kadm.NewClient(cl)
	})
	return c.initErr
}

func (c *KafkaClient) onAssigned(_ context.Context, _ *kgo.Client, assigned map[string][]int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range assigned[c.topic] {
		c.assigned[p] = struct{}{}
		log.WithPartition(c.logger, p).Debug().Msg("broker: partition assigned")
	}
}

func (c *KafkaClient) onRevoked(_ context.Context, _ *kgo.Client, revoked map[string][]int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range revoked[c.topic] {
		delete(c.assigned, p)
		log.WithPartition(c.logger, p).Debug().Msg("broker: partition revoked")
	}
}

func (c *KafkaClient) currentAssignment() []int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int32, 0, len(c.assigned))
	for p := range c.assigned {
		out = append(out, p)
	}
	return out
}

func (c *KafkaClient) Publish(ctx context.Context, key, value []byte) error {
	if err := c.ensure(); err != nil {
		return err
	}
	rec := &kgo.Record{Topic: c.topic, Key: key, Value: value}

	res := c.cl.ProduceSync(ctx, rec)
	if err := res.FirstErr(); err != nil {
		if !isBufferFull(err) {
			return &types.FatalBrokerError{Op: "publish", Err: err}
		}
		// The client's local buffer is full; flush what's pending and
		// retry once.
		if ferr := c.cl.Flush(ctx); ferr != nil {
			return &types.FatalBrokerError{Op: "publish flush", Err: ferr}
		}
		res = c.cl.ProduceSync(ctx, rec)
		if err := res.FirstErr(); err != nil {
			return &types.FatalBrokerError{Op: "publish retry", Err: err}
		}
	}
	return nil
}

func (c *KafkaClient) Flush(ctx context.Context) error {
	if err := c.ensure(); err != nil {
		return err
	}
	if err := c.cl.Flush(ctx); err != nil {
		return &types.FatalBrokerError{Op: "flush", Err: err}
	}
	return nil
}

// Consume implements the bounded catch-up algorithm: poll once to
// discover (or rediscover) this instance's partition assignment, read
// each assigned partition's high watermark and this group's last
// committed position, then keep polling and applying records until
// every assigned partition has reached the watermark it had at the
// moment Consume was called.
func (c *KafkaClient) Consume(ctx context.Context, apply func(Record) error) error {
	if err := c.ensure(); err != nil {
		return err
	}

	firstFetches, err := c.poll(ctx)
	if err != nil {
		return err
	}

	partitions := c.currentAssignment()

	pending := make(map[int32]int64, len(partitions))
	if len(partitions) > 0 {
		pending, err = c.targetOffsets(ctx, partitions)
		if err != nil {
			return err
		}
	}

	applyOne := func(r *kgo.Record) error {
		if target, ok := pending[r.Partition]; ok && r.Offset >= target {
			delete(pending, r.Partition)
		}
		return apply(Record{
			Key:       r.Key,
			Value:     r.Value,
			Timestamp: r.Timestamp.UnixMilli(),
			Offset:    r.Offset,
		})
	}

	if err := eachRecord(firstFetches, applyOne); err != nil {
		return err
	}

	for len(pending) > 0 {
		fetches, err := c.poll(ctx)
		if err != nil {
			return err
		}
		if err := eachRecord(fetches, applyOne); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (c *KafkaClient) poll(ctx context.Context) (kgo.Fetches, error) {
	pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()
	fetches := c.cl.PollFetches(pollCtx)
	if errs := fetches.Errors(); len(errs) > 0 {
		log.Debug(fmt.Sprintf("broker: poll returned %d partition error(s)", len(errs)))
	}
	return fetches, nil
}

func eachRecord(fetches kgo.Fetches, fn func(*kgo.Record) error) error {
	var applyErr error
	fetches.EachRecord(func(r *kgo.Record) {
		if applyErr != nil {
			return
		}
		applyErr = fn(r)
	})
	return applyErr
}

// targetOffsets computes, for every assigned partition, the last
// offset that was already durable when Consume was called. A
// partition whose committed position has already reached its
// watermark is omitted; there is nothing left to catch up on.
func (c *KafkaClient) targetOffsets(ctx context.Context, partitions []int32) (map[int32]int64, error) {
	ends, err := c.adm.ListEndOffsets(ctx, c.topic)
	if err != nil {
		return nil, &types.TransientBrokerError{Op: "list end offsets", Err: err}
	}
	committed, err := c.adm.FetchOffsets(ctx, c.group)
	if err != nil {
		return nil, &types.TransientBrokerError{Op: "fetch committed offsets", Err: err}
	}

	pending := make(map[int32]int64, len(partitions))
	for _, p := range partitions {
		end, ok := ends[c.topic][p]
		if !ok || end.Err != nil {
			continue
		}
		lastOffset := end.Offset - 1
		if lastOffset < 0 {
			continue // empty partition, nothing to replay
		}

		position := int64(-1)
		if resp, ok := committed.Lookup(c.topic, p); ok {
			position = resp.Offset - 1
			if position < -1 {
				position = -1
			}
		}

		if lastOffset > position {
			pending[p] = lastOffset
		}
	}
	return pending, nil
}

func (c *KafkaClient) Close() error {
	if c.cl != nil {
		c.cl.Close()
	}
	return nil
}

// isBufferFull reports whether err indicates the producer's local
// buffer is full, the one retryable condition Publish handles itself.
// franz-go exposes kgo.ErrMaxBuffered for this; the string match is a
// fallback for wrapped variants that don't survive errors.Is.
func isBufferFull(err error) bool {
	if errors.Is(err, kgo.ErrMaxBuffered) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "max") && strings.Contains(msg, "buffered")
}
