// Package notifications delivers run summaries and failures via ntfy.
//
// The default implementation publishes to the ntfy topic URL configured in
// config.toml and degrades to a no-op when notifications are disabled. The
// enumerated events cover the end of each kind of run so commands emit
// consistent messages without duplicating HTTP glue.
//
// Extend this package if you need alternative transports; callers depend only
// on the Service interface.
package notifications
