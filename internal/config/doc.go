// Package config defines the settings of a packaging run and provides helpers
// to load, validate and save them in YAML format.
//
// Every field has a default matching the node-datachannel release layout, so
// the tool runs without a settings file. The feed token comes from the
// GITHUB_TOKEN environment variable and is never written back to disk.
package config
