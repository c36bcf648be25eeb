// Package platform contains the domain types that map release assets to
// per-platform npm packages.
//
// A ReleaseAsset name such as "node-datachannel-v0.29.0-linuxmusl-arm64.tar.gz"
// is reduced to a Key (os, arch, optional libc) and a PackageID ("linux-arm64").
// Set keeps PackageIDs unique in insertion order, which fixes the order the
// platform selector tries packages in.
package platform
