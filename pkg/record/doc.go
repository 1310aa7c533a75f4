// Package record implements the on-the-wire envelope kvlog publishes to
// the log: a three-element JSON array of [timestamp_ms, binary_flag,
// payload], UTF-8 encoded with non-ASCII characters left unescaped.
package record
