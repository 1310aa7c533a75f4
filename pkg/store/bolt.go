package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketKV = []byte("kv")

// BoltStore implements Store using a single bbolt file as the
// embedded ordered local store. It lives at <dir>/data.db, inside a
// <db_dir>/rocksdb-<guid>/ directory created by the dict core — the
// directory naming is kept even though the file within it is a bbolt
// database, not a RocksDB one.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// Options configures the write-buffer sizing translated from a
// memory_budget knob (half the budget per write buffer, up to two
// buffers) onto bbolt's nearest equivalent, its mmap pre-allocation
// size. See DESIGN.md for the derivation.
type Options struct {
	// Dir is the directory the embedded store's file lives in. It is
	// created if missing.
	Dir string

	// MemoryBudget in bytes; 0 leaves bbolt's defaults untouched.
	MemoryBudget int64

	// OpenTimeout bounds how long Open waits for the file lock held by
	// another process.
	OpenTimeout time.Duration
}

// Open creates or opens a BoltStore at opts.Dir/data.db.
func Open(opts Options) (*BoltStore, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir %s: %w", opts.Dir, err)
	}
	path := filepath.Join(opts.Dir, "data.db")

	boltOpts := &bolt.Options{Timeout: opts.OpenTimeout}
	if opts.MemoryBudget > 0 {
		writeBufferSize := opts.MemoryBudget / 2
		numBuffers := int64(2)
		boltOpts.InitialMmapSize = int(writeBufferSize * numBuffers)
	}

	db, err := bolt.Open(path, 0o600, boltOpts)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketKV)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}

	return &BoltStore{db: db, path: path}, nil
}

func (s *BoltStore) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketKV).Get(key)
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("store: get: %w", err)
	}
	return value, value != nil, nil
}

func (s *BoltStore) Put(key, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("store: put: %w", err)
	}
	return nil
}

func (s *BoltStore) Delete(key []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Delete(key)
	})
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	return nil
}

func (s *BoltStore) SupportsPrefix() bool  { return true }
func (s *BoltStore) SupportsReverse() bool { return true }

// Compact copies the database into a fresh file via bbolt's own
// compaction routine, then swaps it in, matching the same range
// compaction the embedded-store contract promises.
func (s *BoltStore) Compact() error {
	tmpPath := s.path + ".compact"
	dst, err := bolt.Open(tmpPath, 0o600, nil)
	if err != nil {
		return fmt.Errorf("store: open compaction target: %w", err)
	}

	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: compact: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: close compaction target: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: close before swap: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("store: swap compacted file: %w", err)
	}

	db, err := bolt.Open(s.path, 0o600, nil)
	if err != nil {
		return fmt.Errorf("store: reopen after compaction: %w", err)
	}
	s.db = db
	return nil
}

func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// NewCursor begins a read-only transaction that stays open until the
// returned cursor's Close is called.
func (s *BoltStore) NewCursor() Cursor {
	tx, err := s.db.Begin(false)
	if err != nil {
		return &errCursor{err: fmt.Errorf("store: begin cursor tx: %w", err)}
	}
	return &boltCursor{tx: tx, cur: tx.Bucket(bucketKV).Cursor()}
}

type boltCursor struct {
	tx  *bolt.Tx
	cur *bolt.Cursor
}

func copyKV(k, v []byte) ([]byte, []byte, bool) {
	if k == nil {
		return nil, nil, false
	}
	return append([]byte(nil), k...), append([]byte(nil), v...), true
}

func (c *boltCursor) First() ([]byte, []byte, bool, error) {
	k, v := c.cur.First()
	kk, vv, ok := copyKV(k, v)
	return kk, vv, ok, nil
}

func (c *boltCursor) Last() ([]byte, []byte, bool, error) {
	k, v := c.cur.Last()
	kk, vv, ok := copyKV(k, v)
	return kk, vv, ok, nil
}

func (c *boltCursor) Seek(prefix []byte) ([]byte, []byte, bool, error) {
	k, v := c.cur.Seek(prefix)
	kk, vv, ok := copyKV(k, v)
	return kk, vv, ok, nil
}

func (c *boltCursor) Next() ([]byte, []byte, bool, error) {
	k, v := c.cur.Next()
	kk, vv, ok := copyKV(k, v)
	return kk, vv, ok, nil
}

func (c *boltCursor) Prev() ([]byte, []byte, bool, error) {
	k, v := c.cur.Prev()
	kk, vv, ok := copyKV(k, v)
	return kk, vv, ok, nil
}

func (c *boltCursor) Close() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	return err
}

// errCursor is returned when a cursor could not even be opened; every
// method reports the same error.
type errCursor struct{ err error }

func (c *errCursor) First() ([]byte, []byte, bool, error)          { return nil, nil, false, c.err }
func (c *errCursor) Last() ([]byte, []byte, bool, error)           { return nil, nil, false, c.err }
func (c *errCursor) Seek([]byte) ([]byte, []byte, bool, error)     { return nil, nil, false, c.err }
func (c *errCursor) Next() ([]byte, []byte, bool, error)           { return nil, nil, false, c.err }
func (c *errCursor) Prev() ([]byte, []byte, bool, error) { return nil, nil, false, c.err }
func (c *errCursor) Close() error                        { return nil }
