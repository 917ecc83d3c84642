// Package bundle packages compiled binaries into deployment archives.
//
// The Lambda custom runtime expects a zip archive whose root contains a
// single executable named "bootstrap". Packaging renames the compiled binary
// to that entrypoint, preserves the execute bit through the archive, and
// writes atomically: the bundle either appears fully written or not at all.
// Every bundle is verified by enumerating its entries, and its content
// digest is recorded so deployments can be correlated with builds.
package bundle
