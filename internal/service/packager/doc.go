// Package packager turns a node-datachannel release into npm packages.
//
// Run fetches the release feed, classifies every asset into a platform
// package, writes one package directory per PackageID with the extracted
// binary, generates the aggregator package, rewrites the library loader to
// try each platform package in turn and records the run manifest.
//
// A run marker next to the prebuilt directory keeps two runs from writing
// the same tree.
package packager
