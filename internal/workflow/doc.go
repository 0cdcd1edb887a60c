// Package workflow runs the per-item analysis pipeline.
//
// A Pipeline composes the session, ingest, query and report components:
// prepare the origin, acquire a workspace, attach the source, wait for it to
// become usable, ask the prompts, persist the report, and release the
// workspace. Release runs on every exit path, including cancellation, and
// origins are prepared before any workspace exists so missing files and failed
// downloads never create one.
//
// Plans describe the variations between entry points (workspace title prefix,
// default prompt, readiness policy, report layout). The batch runner, MCP
// tools, and HTTP handlers each build a Plan and call Run; the playlist digest
// uses RunDigest to attach many sources to a single workspace.
package workflow
