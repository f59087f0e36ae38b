// Package config loads, normalizes, and validates tradescribe configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and pipeline need, so downstream code always receives sanitized paths
// and clear validation errors.
package config
