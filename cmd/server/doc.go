// Package main is the entry point for the WorldLoom backend server.
//
// The backend hosts the plugin runtime for the WorldLoom worldbuilding
// app: installed plugins run in sandboxed JavaScript VMs against a
// capability-scoped api, and the frontend drives everything over REST
// and a WebSocket event stream.
//
// Configuration comes from environment variables, optionally overlaid
// with a YAML file, with a few CLI flags on top:
//
//	# Production mode
//	./server -config /etc/worldloom/backend.yaml
//
//	# Development mode (colored logs, debug level)
//	./server -dev -port 8090
//
// SIGINT and SIGTERM trigger a graceful shutdown.
package main
