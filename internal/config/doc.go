// Package config loads, normalizes, and validates romdl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from ~/.config/romdl/config.toml or a
// project-local romdl.toml. The Config type centralizes every knob the CLI
// needs: output directories, region filtering, fuzzy-match tuning, and
// downloader settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
