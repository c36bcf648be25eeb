// Package version exposes build metadata for datachannels-prebuild.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Short and Full render them for CLI output; UserAgent is sent
// with release feed requests.
package version
