package store

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/cuemby/kvlog/pkg/types"
)

// MemoryStore implements Store as an ordered in-memory map, backed by
// github.com/google/btree (the same ordered-tree library the
// database-engine example in the retrieval pack, launix-de/memcp,
// imports directly). It supports point operations and forward
// iteration only: Seek, SeekToLast-style reverse iteration, and
// Compact are unsupported, per the local store contract.
type MemoryStore struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

const memoryStoreDegree = 32

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tree: btree.New(memoryStoreDegree)}
}

type kvItem struct {
	key   []byte
	value []byte
}

func (a kvItem) Less(than btree.Item) bool {
	return bytes.Compare(a.key, than.(kvItem).key) < 0
}

func (s *MemoryStore) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item := s.tree.Get(kvItem{key: key})
	if item == nil {
		return nil, false, nil
	}
	v := item.(kvItem).value
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryStore) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(kvItem{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	return nil
}

func (s *MemoryStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Delete(kvItem{key: key})
	return nil
}

func (s *MemoryStore) SupportsPrefix() bool  { return false }
func (s *MemoryStore) SupportsReverse() bool { return false }

func (s *MemoryStore) Compact() error {
	return typesUnsupported("compact")
}

func (s *MemoryStore) Close() error { return nil }

// NewCursor snapshots the current key order into a slice. The
// in-memory backend has no live external cursor over a btree.BTree, so
// forward iteration walks this snapshot rather than the live tree;
// concurrent mutation during iteration is not reflected, which matches
// the contract that a single instance is not safe for concurrent
// mutation (see the concurrency model).
func (s *MemoryStore) NewCursor() Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]kvItem, 0, s.tree.Len())
	s.tree.Ascend(func(i btree.Item) bool {
		items = append(items, i.(kvItem))
		return true
	})
	return &memoryCursor{items: items, idx: -1}
}

type memoryCursor struct {
	items []kvItem
	idx   int
}

func (c *memoryCursor) First() ([]byte, []byte, bool, error) {
	if len(c.items) == 0 {
		c.idx = 0
		return nil, nil, false, nil
	}
	c.idx = 0
	item := c.items[0]
	return item.key, item.value, true, nil
}

func (c *memoryCursor) Last() ([]byte, []byte, bool, error) {
	return nil, nil, false, typesUnsupported("seek to last")
}

func (c *memoryCursor) Seek([]byte) ([]byte, []byte, bool, error) {
	return nil, nil, false, typesUnsupported("prefix seek")
}

func (c *memoryCursor) Next() ([]byte, []byte, bool, error) {
	c.idx++
	if c.idx < 0 || c.idx >= len(c.items) {
		return nil, nil, false, nil
	}
	item := c.items[c.idx]
	return item.key, item.value, true, nil
}

func (c *memoryCursor) Prev() ([]byte, []byte, bool, error) {
	return nil, nil, false, typesUnsupported("reverse iteration")
}

func (c *memoryCursor) Close() error { return nil }

func typesUnsupported(op string) error {
	return &unsupportedOpError{op: op}
}

type unsupportedOpError struct{ op string }

func (e *unsupportedOpError) Error() string {
	return "store: " + e.op + " not supported by this backend"
}

func (e *unsupportedOpError) Unwrap() error { return types.ErrUnsupportedOperation }
