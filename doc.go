/*
Package microserver provides a minimal multi-process HTTP/1.1 serving
runtime for Go.

Micro-Server accepts TCP connections, parses requests, dispatches them to
registered handlers by exact method+path match, and serializes JSON
responses, while fanning load out across one worker process per CPU core
and draining in-flight connections on shutdown.

Features

  - Worker topology: primary process supervises one worker per core;
    workers share the port via SO_REUSEPORT with bounded, backoff-aware
    respawn
  - Pooled body buffers: fixed pool of pre-allocated 16KB buffers with
    scoped acquire/release and explicit exhaustion
  - Two-tier routing: exact method+path table fronted by a bounded LRU
    cache keyed by the literal URL observed on the wire
  - Graceful draining: shutdown half-closes live connections, answers
    late requests with 503, and enforces a drain deadline
  - Codec negotiation: JSON by default, protobuf on request
  - Middleware pipeline with short-circuiting

Quick Start

Basic usage example:

package main

import (
    "github.com/searchktools/micro-server/app"
    "github.com/searchktools/micro-server/config"
    "github.com/searchktools/micro-server/core/http"
)

func main() {
    cfg := config.New()
    application := app.New(cfg)

    server := application.Server()
    server.GET("/health", func(req *http.Request, res *http.Response) error {
        return res.Send(map[string]string{"status": "healthy"})
    })

    application.Run()
}

Modules

The runtime is organized into several modules:

  - app: Application lifecycle and process-role selection
  - config: Configuration loading (flags + environment)
  - core: Server runtime, accept loop, connection tracking, shutdown
  - core/http: Request parsing and response serialization
  - core/router: Exact-match routing with observed-URL caching
  - core/middleware: Middleware pipeline
  - core/pools: Body buffer pool and GC tuning
  - core/codec: Response body codecs (JSON, protobuf)
  - core/topology: Primary/worker process supervision

For more information, see https://github.com/searchktools/micro-server
*/
package microserver
