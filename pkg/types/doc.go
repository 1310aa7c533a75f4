/*
Package types holds the shared error kinds and small value types used
across kvlog: the dict core, the local store backends, and the log
client all return and wrap these same sentinel errors so callers can
branch with errors.Is regardless of which layer raised them.
*/
package types
