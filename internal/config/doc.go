// Package config loads, normalizes, and validates lightsd-formula settings.
//
// It supplies recipe defaults (the lightsd release archive, /usr/local as the
// host prefix, a hardened release build), expands user paths including tilde
// shortcuts, reads TOML files, and honours HOMEBREW_PREFIX when no prefix is
// configured. The Config type centralizes every knob the recipe steps need so
// the pipeline and the CLI resolve them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum spellings, and clear validation errors.
package config
