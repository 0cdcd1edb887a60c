// Package daemon coordinates the long-running notebrief server process.
//
// It binds the HTTP API and the MCP streamable HTTP handler to their
// configured addresses, runs both under one errgroup, and shuts them down
// together when the context ends or either listener fails. A flock-based lock
// file in the state directory prevents multiple instances, and staged files
// orphaned by an earlier crash are swept before the listeners open.
//
// Keep request handling in httpapi and mcpserver; the daemon only owns
// startup, shutdown, and process-level coordination.
package daemon
