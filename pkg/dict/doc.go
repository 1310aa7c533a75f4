/*
Package dict is kvlog's public surface: a key-value map whose source
of truth is an append-only log (pkg/broker) and whose reads are served
from a local materialized view (pkg/store). Get, Set, Delete, and the
iteration operations all run a bounded catch-up before touching the
local store, so a caller that hasn't written anything still sees every
record the log held at the moment it asked.

Construction orchestrates a broker.Client, a store.Store, and an
optional prefix.Extractor behind one Dict value. The dispatch inside
maybeCatchup is a single binary decision: a tombstone record deletes,
anything else overwrites.
*/
package dict
