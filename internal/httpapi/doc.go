// Package httpapi serves the analysis pipeline over a small JSON HTTP API.
//
// Three POST routes under /analyze accept an uploaded file, a remote file URL,
// or a web URL and answer with {"status":"success","result":...}. Failures
// answer {"detail":...} with 400 for caller mistakes and 500 for analysis
// errors. GET /health reports liveness.
package httpapi
