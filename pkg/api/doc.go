/*
Package api serves a graphd shard process's liveness, readiness, and
Prometheus metrics endpoints over plain HTTP.

graphd's data-plane operations (Write, Get, Compact, Sync, Traverse,
InsertVector, HybridSearch, Import) are Go APIs on pkg/shard.Shard;
the concrete wire-level request router, auth, and dispatch (MCP,
SPARQL, or any other front-end) are external collaborators this
module doesn't implement. What this package DOES own is the small
operational surface every long-running shard process needs
regardless of front-end: a way for an orchestrator to ask "is this
process alive" and "is this process ready to serve", and a way for
Prometheus to scrape it.

# Architecture

	┌──────────────── graphd shard process ─────────────────┐
	│                                                          │
	│  ┌────────────────────────────────────────────┐        │
	│  │              HealthServer (pkg/api)          │        │
	│  │  GET /health  - liveness                     │        │
	│  │  GET /ready   - readiness (pings sqlstore)    │        │
	│  │  GET /metrics - pkg/metrics.Handler()         │        │
	│  └──────────────────┬───────────────────────────┘        │
	│                     │                                      │
	│  ┌──────────────────▼───────────────────────────┐        │
	│  │              *shard.Shard                      │        │
	│  └────────────────────────────────────────────────┘        │
	└──────────────────────────────────────────────────────────┘

# Usage

	s, err := shard.New(cfg, blobs, kvStore, locality, log.Logger)
	hs := api.NewHealthServer(s)
	go hs.Start(":9090")

# Integration Points

This package integrates with:

  - pkg/shard: Ping for readiness, passed in at construction
  - pkg/metrics: /metrics handler

# See Also

  - cmd/graphd's "serve" subcommand, which starts this server
    alongside a Shard
*/
package api
