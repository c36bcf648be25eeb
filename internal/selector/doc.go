// Package selector implements the platform selector that picks a prebuilt
// native binary at library load time.
//
// Generate turns the ordered set of PackageIDs into a Procedure: plain data
// listing one module specifier per platform package. From that data the
// package offers two runtimes with the same contract:
//
//   - Selector builds a chain of thunks in Go and returns the first binary a
//     Loader accepts, used by the resolve command;
//   - Procedure.Expression renders a self-contained JavaScript expression that
//     builds the same chain inside Node.js, spliced into the library's loader
//     module by RewriteLoader in place of its static native require.
//
// In both runtimes load failures are swallowed, a successful pick prints one
// diagnostic line when DATACHANNELS_PREBUILT_LOG is "1", and exhausting the
// chain fails with the build-from-source message.
package selector
