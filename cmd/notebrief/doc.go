// Package main hosts the notebrief CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into pipeline runs:
// single-file analysis, manifest batches, multi-source digests, playlist
// collection, audio downloads, notebook export, and the long-running server
// that exposes the same pipeline over MCP and HTTP. It centralizes
// configuration resolution, logger setup, and backend construction so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
