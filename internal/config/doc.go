// Package config loads, normalizes, and validates posecoach configuration.
//
// Settings live in a TOML file (see sample_config.toml). Load resolves the
// file from an explicit path, the user config directory, or the working
// directory, applies defaults and environment fallbacks, and validates the
// result so callers can rely on every field being usable.
package config
