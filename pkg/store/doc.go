/*
Package store provides the local materialized view kvlog's dict core
reads and writes: an ordered byte-key to byte-value map with point
lookup, prefix-bounded iteration, and deletion. It is a disposable
cache of the log, never itself authoritative.

Two backends implement the same Store interface:

  - BoltStore, backed by go.etcd.io/bbolt, a single-file embedded
    B+tree. Supports every capability: reverse iteration, prefix seek
    (accelerated by the B+tree's native key ordering), and Compact.
  - MemoryStore, backed by github.com/google/btree, an in-process
    ordered tree. Supports forward iteration and point operations only;
    SeekToLast, Seek(prefix), and Compact return
    types.ErrUnsupportedOperation, per the local store contract.

BoltStore keeps everything in one flat bucket keyed by the dict's raw
key bytes, with raw record bytes as the stored value — decoding to a
logical value happens one layer up, in pkg/dict.
*/
package store
