// Package session owns the lifetime of backend workspaces: one workspace per
// pipeline run, released on every exit path.
package session
