// Package config loads, normalizes, and validates hardsub configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ALIBABA_CLOUD_ACCESS_KEY_ID. The Config type centralizes every knob the
// pipeline and CLI need; collaborators receive explicit settings derived from
// it at construction time rather than reading globals.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
