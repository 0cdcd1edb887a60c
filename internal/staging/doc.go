// Package staging holds remote downloads and HTTP uploads on local disk while
// they are attached to a workspace.
//
// Every staged file is created with os.CreateTemp under a shared prefix, so
// concurrent requests never collide and CleanStale can sweep files orphaned
// by an abrupt shutdown without touching anything else in the directory.
package staging
