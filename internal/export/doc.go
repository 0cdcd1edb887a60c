// Package export dumps every backend workspace, with its sources and notes,
// to a JSON file and renders console tables summarizing the result.
package export
