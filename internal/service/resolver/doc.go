// Package resolver reports which prebuilt binary the loader picks on this host.
//
// It rebuilds the selector from the run manifest and drives it with a loader
// that accepts a target only when the binary is installed below node_modules
// and its package descriptor matches the host os, cpu and libc.
package resolver
