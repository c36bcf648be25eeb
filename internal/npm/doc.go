// Package npm builds and writes the package.json descriptors of the generated
// packages: one per platform, tagged with os/cpu/libc so package managers only
// install the matching one, and one aggregator listing all of them as optional
// dependencies.
package npm
