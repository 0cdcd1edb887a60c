// Package ingest turns item origins (local files, remote files, web URLs) into
// sources attached to a workspace.
//
// Ingestion is split in two. Prepare runs before a workspace exists: it checks
// that local files are present and downloads remote files into staging, so a
// bad input never costs a backend workspace. Attach then uploads or links the
// content and applies the readiness Policy: a Fixed delay, or a Poll handled
// by the backend. Running out of polling budget is logged as an ingestion
// timeout and the run continues.
package ingest
