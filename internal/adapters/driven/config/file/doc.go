// Package file provides the TOML configuration store and the settings
// loader that layers defaults, config.toml and environment overrides.
package file
