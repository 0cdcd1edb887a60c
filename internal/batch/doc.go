// Package batch runs a manifest of URLs through the analysis pipeline one item
// at a time.
//
// An item whose report already exists is skipped, so re-running a manifest
// only retries what has not finished. Failures are recorded and the batch
// moves on; there is no automatic retry. A fixed pacing delay separates items
// that reached the backend. A file lock in the output directory keeps two
// batches from writing the same reports, and every run is recorded in the
// ledger when one is configured.
package batch
