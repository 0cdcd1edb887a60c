// Package config loads, normalizes, and validates notebrief configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NOTEBRIEF_API_KEY and OPENAI_API_KEY. The Config type centralizes every knob
// the CLI and servers need so report, staging, and state directories are
// resolved in one pass.
//
// Backend credentials are checked by the backend factory rather than here, so
// commands that never reach a backend still start with an incomplete config.
package config
