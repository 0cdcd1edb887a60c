// Package client talks to a running notebrief server: API wraps the JSON HTTP
// routes and MCP drives the tool server over streamable HTTP.
package client
