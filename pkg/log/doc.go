/*
Package log provides structured logging for graphd using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

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
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("ingest")                  │          │
	│  │  - WithShard("us-east")                     │          │
	│  │  - WithNamespace("acme-kg")                 │          │
	│  │  - WithJobID("import-7a3")                  │          │
	│  │  - WithChunk("c-91f2")                      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │  {"level":"info","component":"ingest",       │          │
	│  │   "namespace":"acme-kg",                     │          │
	│  │   "time":"2026-01-01T00:00:00Z",             │          │
	│  │   "message":"chunk flushed"}                 │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all graphd packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithShard: Add shard region context
  - WithNamespace: Add graph namespace context
  - WithJobID: Add import job ID context
  - WithChunk: Add chunk ID context

# Usage

Initializing the Logger:

	import "github.com/cuemby/graphd/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple Logging:

	log.Info("shard starting")
	log.Debug("checking manifest sync state")
	log.Warn("range fetch retrying")
	log.Error("import source unreachable")
	log.Fatal("cannot open embedded store") // exits process

Component and Context Loggers:

	ingestLog := log.WithComponent("ingest").With().
		Str("namespace", "acme-kg").
		Str("job_id", "import-7a3").Logger()
	ingestLog.Info().Int("chunk_count", 5).Msg("registered manifest")

	shardLog := log.WithShard("us-east")
	shardLog.Info().Msg("shard opened")

# Integration Points

This package integrates with:

  - pkg/shard: logs subsystem wiring and data-plane operations
  - pkg/ingest: logs import job progress and checkpointing
  - pkg/manifest: logs manifest sync and conflict resolution
  - pkg/lookup: logs entity resolution and range-fetch fallbacks
  - pkg/api: logs request handling and errors

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Include context (shard region, namespace, job ID)

Don't:
  - Log secrets or sensitive data
  - Use Debug level in production
  - Concatenate strings into messages (use .Str, .Int)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
