/*
Package log provides structured logging for kvlog using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

kvlog's logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Context Loggers                   │          │
	│  │  - WithComponent("dict")                    │          │
	│  │  - WithGUID("a1b2c3...")                    │          │
	│  │  - WithTopic("my-topic")                    │          │
	│  │  - WithPartition(0)                         │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "dict",                     │          │
	│  │    "guid": "a1b2c3...",                     │          │
	│  │    "time": "2026-07-30T10:30:00Z",         │          │
	│  │    "message": "catch-up complete"           │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  2026-07-30T10:30:00Z INF catch-up complete │          │
	│  │    component=dict                            │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all kvlog packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information (e.g. per-record catch-up apply)
  - Info: General informational messages (catch-up started/finished)
  - Warn: Warning messages (transient broker error recovered)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Context Loggers:
  - WithComponent: Add component name ("dict", "broker", "store") to all logs
  - WithGUID: Add instance GUID context
  - WithTopic: Add topic context
  - WithPartition: Add partition number context

# Usage

Initializing the Logger:

	import "github.com/cuemby/kvlog/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple Logging:

	log.Info("dict opened")
	log.Debug("catch-up starting")
	log.Warn("producer buffer full, flushing and retrying")
	log.Error("failed to open local store")

Context Logger:

	dictLog := log.WithTopic(log.WithGUID(log.WithComponent("dict"), guid), topic)
	dictLog.Info().Int("keys_applied", n).Msg("catch-up complete")
	dictLog.Error().Err(err).Msg("publish failed")

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields (guid, topic, partition, offset) for queryable data
  - Create component-specific loggers with WithComponent
  - Log errors with .Err() and still return the error to the caller

Don't:
  - Log secrets or raw record payloads at Info level
  - Use Debug level in production (per-record logging is high volume)
  - Concatenate strings into the message; use typed fields instead

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
