package broker

import "context"

// Record is one log entry as seen by a consumer: raw key/value bytes,
// the broker's own timestamp for the record (milliseconds since the
// epoch), and its offset within its partition.
type Record struct {
	Key       []byte
	Value     []byte
	Timestamp int64
	Offset    int64
}

// Client is the log-client contract: publish records, and replay them
// back in offset order. Implementations do not interpret Key or Value;
// the codec in pkg/record owns that.
type Client interface {
	// Publish appends a record for key/value to the topic. It may
	// buffer locally; Flush forces delivery.
	Publish(ctx context.Context, key, value []byte) error

	// Flush blocks until every Publish call made so far has either
	// been acknowledged or failed.
	Flush(ctx context.Context) error

	// Consume catches the caller up to the position the log was at
	// when Consume was called: it calls apply once per record, in
	// offset order, for every record that existed at that moment,
	// then returns. A Consume call made while new records are still
	// arriving from other producers does not chase them forever; it
	// bounds itself to what was already durable, and a subsequent
	// Consume call picks up the rest.
	//
	// apply returning a non-nil error aborts the catch-up and surfaces
	// that error to the caller; no further records are applied.
	Consume(ctx context.Context, apply func(Record) error) error

	// Close releases the client's connections. Calling it more than
	// once is safe.
	Close() error
}
