// Package report renders query results into Markdown analysis reports and
// writes them to the output directory.
//
// Each subject maps to a deterministic file name derived from its identity
// with Key, so the presence of a report doubles as the batch completion
// marker. Reports can be written as UTF-8 (optionally with a BOM) or UTF-16LE
// and mirrored to object storage after a successful write.
package report
