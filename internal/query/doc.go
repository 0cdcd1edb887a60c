// Package query asks questions of a workspace and holds the default analysis
// prompts. Prompts against one workspace are always sequential.
package query
