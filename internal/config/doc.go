// Package config loads, normalizes, and validates demoreel configuration.
//
// Configuration is TOML. Load resolves an explicit path, then
// ~/.config/demoreel/config.toml, then ./demoreel.toml, and falls back to
// Default when none exists. Paths are expanded to absolute form and a handful
// of settings honour environment overrides (DEMOREEL_APP_URL,
// DEMOREEL_CHROME). CreateSample writes the embedded sample used by
// `demoreel config init`.
package config
