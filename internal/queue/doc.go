// Package queue records batch runs and their per-item outcomes in SQLite.
//
// Each batch invocation is a Run; each manifest entry is a RunItem moving
// through pending, running, and a terminal status (done, skipped, failed).
// The ledger is history, not the completion marker: whether an item needs
// work is decided by the presence of its report, so deleting the database
// never causes finished items to be re-run.
//
// Schema changes bump schemaVersion in schema.go; an older database must be
// removed (or moved aside) before the new schema is created.
package queue
