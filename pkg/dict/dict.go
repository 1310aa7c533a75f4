package dict

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/cuemby/kvlog/pkg/broker"
	"github.com/cuemby/kvlog/pkg/log"
	"github.com/cuemby/kvlog/pkg/metrics"
	"github.com/cuemby/kvlog/pkg/prefix"
	"github.com/cuemby/kvlog/pkg/record"
	"github.com/cuemby/kvlog/pkg/store"
	"github.com/cuemby/kvlog/pkg/types"
)

// Options carries every construction parameter a Dict needs. Brokers
// and Topic address the log; passing a pre-built Broker (e.g.
// broker.NewMemoryClient, or a shared broker.NewKafkaClient) overrides
// them, which is how tests run several Dicts against one in-memory log
// without a running cluster.
type Options struct {
	Brokers []string
	Topic   string
	Broker  broker.Client

	// UseEmbeddedStore selects store.BoltStore when true, store.MemoryStore
	// when false.
	UseEmbeddedStore bool

	// DBDir is the parent directory for rocksdb-<guid>; defaults to the
	// current working directory.
	DBDir string

	// MemoryBudget sizes the embedded store's write buffers; see pkg/store.
	MemoryBudget int64

	// CatchupDelay is the minimum interval between two catch-up cycles.
	CatchupDelay time.Duration

	// GUID names this instance's local store directory and consumer
	// group. A fresh one is minted if empty.
	GUID string

	// PrefixTransform enables prefix-bounded iteration in Items when set.
	PrefixTransform prefix.Transform

	// ReadOnly rejects Set and Delete with ErrPolicyViolation.
	ReadOnly bool

	// UniqueProducer, if set, limits this instance to exactly one
	// catch-up cycle over its whole lifetime.
	UniqueProducer bool

	// Logger overrides the default component logger; nil uses one
	// derived from log.WithComponent("dict").
	Logger     *zerolog.Logger
	Registerer prometheus.Registerer
}

// Dict is one process's view of a log-backed key-value map.
type Dict struct {
	opts Options

	broker    broker.Client
	store     store.Store
	extractor *prefix.Extractor

	logger zerolog.Logger
	rec    *metrics.Recorder

	mu            sync.Mutex
	busy          bool
	lastCatchup   time.Time
	everCaughtUp  bool
	lastHighWater int64
	lastApplied   int64

	closeOnce sync.Once
}

// Open constructs a Dict per opts. The local store directory is
// created (for the embedded backend) or a fresh in-memory tree is
// allocated; no catch-up runs until the first operation.
func Open(opts Options) (*Dict, error) {
	if opts.GUID == "" {
		opts.GUID = uuid.NewString()
	}
	if opts.DBDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("dict: determine working directory: %w", err)
		}
		opts.DBDir = wd
	}

	var logger zerolog.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	} else {
		logger = log.WithTopic(log.WithGUID(log.WithComponent("dict"), opts.GUID), opts.Topic)
	}

	b := opts.Broker
	if b == nil {
		if len(opts.Brokers) == 0 || opts.Topic == "" {
			return nil, fmt.Errorf("dict: Broker or Brokers+Topic must be set")
		}
		b = broker.NewKafkaClient(opts.Brokers, opts.Topic, opts.GUID)
	}

	var s store.Store
	var err error
	if opts.UseEmbeddedStore {
		dir := filepath.Join(opts.DBDir, "rocksdb-"+opts.GUID)
		s, err = store.Open(store.Options{Dir: dir, MemoryBudget: opts.MemoryBudget})
		if err != nil {
			return nil, fmt.Errorf("dict: open local store: %w", err)
		}
	} else {
		s = store.NewMemoryStore()
	}

	var extractor *prefix.Extractor
	if opts.PrefixTransform != nil {
		extractor = &prefix.Extractor{Transform: opts.PrefixTransform}
	}

	rec := metrics.NewRecorder(opts.Registerer)

	return &Dict{
		opts:      opts,
		broker:    b,
		store:     s,
		extractor: extractor,
		logger:    logger,
		rec:       rec,
	}, nil
}

// maybeCatchup is the catch-up scheduler: skip if unique_producer
// already ran once, skip if the delay interval hasn't elapsed,
// otherwise flush the producer and replay the log into the local
// store.
func (d *Dict) maybeCatchup(ctx context.Context) error {
	d.mu.Lock()
	if d.opts.UniqueProducer && d.everCaughtUp {
		d.mu.Unlock()
		return nil
	}
	if !d.lastCatchup.IsZero() && time.Since(d.lastCatchup) < d.opts.CatchupDelay {
		d.mu.Unlock()
		return nil
	}
	d.lastCatchup = time.Now()
	d.busy = true
	d.rec.Busy.Set(1)
	d.mu.Unlock()

	timer := metrics.NewTimer()
	defer func() {
		d.mu.Lock()
		d.busy = false
		d.everCaughtUp = true
		d.mu.Unlock()
		d.rec.Busy.Set(0)
		d.rec.Catchups.Inc()
		timer.ObserveDuration(d.rec.CatchupDuration)
	}()

	if err := d.broker.Flush(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("dict: flush before catch-up failed")
		return err
	}

	applied := int64(0)
	err := d.broker.Consume(ctx, func(r broker.Record) error {
		applied++
		return d.apply(r)
	})
	if err != nil {
		d.logger.Warn().Err(err).Msg("dict: catch-up consume failed")
		return err
	}

	d.mu.Lock()
	d.lastApplied += applied
	localKeys := d.approximateKeyCount()
	d.mu.Unlock()
	d.rec.LocalKeys.Set(float64(localKeys))

	return nil
}

// apply is maybeCatchup's per-record dispatch: a tombstone deletes,
// anything else overwrites.
func (d *Dict) apply(r broker.Record) error {
	isTombstone, err := record.IsTombstone(r.Value)
	if err != nil {
		d.logger.Warn().Err(err).Msg("dict: undecodable record during catch-up, skipping")
		return nil
	}
	if isTombstone {
		return d.store.Delete(r.Key)
	}
	return d.store.Put(r.Key, r.Value)
}

func (d *Dict) approximateKeyCount() int {
	cur := d.store.NewCursor()
	defer cur.Close()
	n := 0
	_, _, ok, _ := cur.First()
	for ok {
		n++
		_, _, ok, _ = cur.Next()
	}
	return n
}

// Get runs catch-up, then fetches and decodes key's value. It reports
// types.ErrNotFound if key is absent locally.
func (d *Dict) Get(ctx context.Context, key []byte) (any, error) {
	if err := d.maybeCatchup(ctx); err != nil {
		return nil, err
	}
	d.rec.Gets.Inc()

	raw, ok, err := d.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("dict: get: %w", err)
	}
	if !ok {
		d.rec.NotFound.Inc()
		return nil, types.ErrNotFound
	}
	value, _, err := record.Decode(raw)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set encodes value (with timestampMs if non-nil, else the wall
// clock), publishes it, and writes it through to the local store.
func (d *Dict) Set(ctx context.Context, key []byte, value any, timestampMs *int64) error {
	if d.opts.ReadOnly {
		return types.ErrPolicyViolation
	}
	if err := d.maybeCatchup(ctx); err != nil {
		return err
	}

	raw, err := record.Encode(value, timestampMs)
	if err != nil {
		return err
	}
	if err := d.broker.Publish(ctx, key, raw); err != nil {
		return err
	}
	if err := d.store.Put(key, raw); err != nil {
		return fmt.Errorf("dict: write-through after publish: %w", err)
	}
	d.rec.Sets.Inc()
	return nil
}

// Delete publishes a tombstone for key and removes it from the local
// store. Deleting an absent key still publishes a tombstone — there
// is no suppression optimization.
func (d *Dict) Delete(ctx context.Context, key []byte) error {
	if d.opts.ReadOnly {
		return types.ErrPolicyViolation
	}
	if err := d.maybeCatchup(ctx); err != nil {
		return err
	}

	// A tombstone is published as raw empty bytes, bypassing the codec
	// entirely, so any writer's delete is recognized as a tombstone
	// without having to decode a value first.
	if err := d.broker.Publish(ctx, key, []byte{}); err != nil {
		return err
	}
	if err := d.store.Delete(key); err != nil {
		return fmt.Errorf("dict: local delete after publish: %w", err)
	}
	d.rec.Deletes.Inc()
	return nil
}

// Free removes key from the local store only. It never publishes, so
// other replicas are unaffected; a subsequent catch-up will not bring
// the key back unless it was never tombstoned upstream and this
// instance reconsumes its own prior write.
func (d *Dict) Free(key []byte) error {
	return d.store.Delete(key)
}

// Contains runs catch-up, then reports whether key is present locally.
func (d *Dict) Contains(ctx context.Context, key []byte) (bool, error) {
	if err := d.maybeCatchup(ctx); err != nil {
		return false, err
	}
	_, ok, err := d.store.Get(key)
	if err != nil {
		return false, fmt.Errorf("dict: contains: %w", err)
	}
	return ok, nil
}

// Keys runs catch-up, then returns every key in the local store in
// ascending order.
func (d *Dict) Keys(ctx context.Context) ([][]byte, error) {
	if err := d.maybeCatchup(ctx); err != nil {
		return nil, err
	}
	return d.collectKeys(nil)
}

// Values runs catch-up, then decodes and returns every value in
// ascending key order.
func (d *Dict) Values(ctx context.Context) ([]any, error) {
	if err := d.maybeCatchup(ctx); err != nil {
		return nil, err
	}
	items, err := d.items(nil)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(items))
	for i, it := range items {
		values[i] = it.Value
	}
	return values, nil
}

// Item is one decoded (key, value) pair as returned by Items.
type Item struct {
	Key   []byte
	Value any
}

// Items runs catch-up, then returns every (key, value) pair, bounded
// to keys sharing prefix when non-nil. A non-nil prefix requires both
// a configured prefix extractor and the embedded backend: without an
// extractor it fails with types.ErrPolicyViolation, and on a backend
// without prefix support with types.ErrUnsupportedOperation.
func (d *Dict) Items(ctx context.Context, prefixBytes []byte) ([]Item, error) {
	if err := d.maybeCatchup(ctx); err != nil {
		return nil, err
	}
	if prefixBytes != nil {
		if d.extractor == nil {
			return nil, fmt.Errorf("dict: prefix scan without extractor: %w", types.ErrPolicyViolation)
		}
		if !d.store.SupportsPrefix() {
			return nil, fmt.Errorf("dict: prefix scan on this backend: %w", types.ErrUnsupportedOperation)
		}
	}
	return d.items(prefixBytes)
}

func (d *Dict) collectKeys(prefixBytes []byte) ([][]byte, error) {
	items, err := d.items(prefixBytes)
	if err != nil {
		return nil, err
	}
	keys := make([][]byte, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys, nil
}

func (d *Dict) items(prefixBytes []byte) ([]Item, error) {
	cur := d.store.NewCursor()
	defer cur.Close()

	var k, v []byte
	var ok bool
	var err error
	if prefixBytes != nil {
		k, v, ok, err = cur.Seek(prefixBytes)
	} else {
		k, v, ok, err = cur.First()
	}

	var items []Item
	for ok {
		if err != nil {
			return nil, fmt.Errorf("dict: iterate: %w", err)
		}
		if prefixBytes != nil && !bytes.Equal(d.extractor.Apply(k), prefixBytes) {
			break
		}
		value, _, derr := record.Decode(v)
		if derr != nil {
			return nil, derr
		}
		items = append(items, Item{Key: append([]byte(nil), k...), Value: value})
		k, v, ok, err = cur.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("dict: iterate: %w", err)
	}
	return items, nil
}

// FirstItem returns the smallest key's decoded value. Only supported
// on the embedded backend.
func (d *Dict) FirstItem(ctx context.Context) (Item, error) {
	if !d.store.SupportsReverse() {
		return Item{}, fmt.Errorf("dict: first-item on this backend: %w", types.ErrUnsupportedOperation)
	}
	if err := d.maybeCatchup(ctx); err != nil {
		return Item{}, err
	}
	cur := d.store.NewCursor()
	defer cur.Close()
	k, v, ok, err := cur.First()
	if err != nil {
		return Item{}, err
	}
	if !ok {
		return Item{}, types.ErrNotFound
	}
	value, _, err := record.Decode(v)
	if err != nil {
		return Item{}, err
	}
	return Item{Key: k, Value: value}, nil
}

// LastItem returns the largest key's decoded value. Only supported on
// the embedded backend.
func (d *Dict) LastItem(ctx context.Context) (Item, error) {
	if !d.store.SupportsReverse() {
		return Item{}, fmt.Errorf("dict: last-item on this backend: %w", types.ErrUnsupportedOperation)
	}
	if err := d.maybeCatchup(ctx); err != nil {
		return Item{}, err
	}
	cur := d.store.NewCursor()
	defer cur.Close()
	k, v, ok, err := cur.Last()
	if err != nil {
		return Item{}, err
	}
	if !ok {
		return Item{}, types.ErrNotFound
	}
	value, _, err := record.Decode(v)
	if err != nil {
		return Item{}, err
	}
	return Item{Key: k, Value: value}, nil
}

// Compact forwards to the embedded backend; a no-op on in-memory.
func (d *Dict) Compact() error {
	if !d.opts.UseEmbeddedStore {
		return nil
	}
	return d.store.Compact()
}

// Busy reports whether a catch-up cycle is currently running. Exposed
// for external coordination only; it is not used for mutual exclusion
// within the process.
func (d *Dict) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// GUID returns this instance's identity.
func (d *Dict) GUID() string { return d.opts.GUID }

// Close flushes outstanding writes and closes the broker client, then
// the local store. Idempotent; safe to call more than once.
func (d *Dict) Close() error {
	var closeErr error
	d.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := d.broker.Flush(ctx); err != nil {
			d.logger.Warn().Err(err).Msg("dict: flush on close failed")
			closeErr = err
		}
		if err := d.broker.Close(); err != nil {
			d.logger.Warn().Err(err).Msg("dict: close broker failed")
			if closeErr == nil {
				closeErr = err
			}
		}
		if err := d.store.Close(); err != nil {
			d.logger.Warn().Err(err).Msg("dict: close local store failed")
			if closeErr == nil {
				closeErr = err
			}
		}
	})
	return closeErr
}
