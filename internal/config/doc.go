// Package config loads, normalizes, and validates trimreview configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TRIMREVIEW_TOKEN and TRIMREVIEW_API_URL. The Config type centralizes every
// knob the store daemon and the reviewer CLI need, so the daemon's users table
// and the client's sync timings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
