// Package services defines shared utilities consumed by the analysis pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that tag failures with the
//     pipeline step that produced them (source lookup, download, ingestion,
//     query, backend session).
//   - Kind, which turns a marker into the stable label used by the run ledger
//     and the HTTP surface.
//   - Context helpers that stamp item identities, surfaces, and correlation
//     identifiers for logging.
//
// Use these helpers when wiring new pipeline code so error handling and
// observability stay uniform across the CLI, batch, MCP, and HTTP paths.
package services
