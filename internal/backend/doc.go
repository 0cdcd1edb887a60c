// Package backend defines the capability contract notebrief needs from an
// analysis service: isolated workspaces, file and URL sources, and free-form
// queries. Implementations live in subpackages (notebook, llm) and a scripted
// fake for tests lives in backendtest.
//
// Optional capabilities (Inventory, HealthChecker) are discovered with type
// assertions so commands such as export degrade cleanly on backends that do
// not support them.
package backend
