/*
Package broker is kvlog's log client: the thing the dict core publishes
records to and replays records from. Every dict operation that changes
state goes through Publish before a local store is touched, and every
instance catches up by Consuming from wherever its consumer group last
left off.

Client is an interface, not a concrete Kafka type, for the same reason
pkg/store has two backends: so pkg/dict can be exercised in tests
against a deterministic in-memory fake (NewMemoryClient, in
memory.go) without a running broker, while KafkaClient (kafka.go)
talks to a real cluster via github.com/twmb/franz-go.

Consume is push-style: it blocks, calling apply once per record in
offset order, and returns once the records that existed when it was
called have been applied, the caller's context is done, or apply
returns an error. It does not hand back an iterator, because the
catch-up bound kvlog needs — "the records that existed as of when
Consume was called, not whatever arrives after" — is a property of the
call, not of how the caller drains it. See KafkaClient.Consume and its
targetOffsets helper for how the bound is computed.
*/
package broker
