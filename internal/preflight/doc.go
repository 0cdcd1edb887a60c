// Package preflight provides readiness checks for the filesystem paths,
// external binaries and analysis backend that notebrief depends on.
//
// These checks run in two contexts:
//   - The CLI "notebrief status" command prints every result as a table.
//   - The server command runs RunAll before binding its listeners and logs
//     failures without refusing to start.
//
// Each check returns a Result; none of them mutate state.
package preflight
