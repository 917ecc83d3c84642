// Package target validates compilation target triples.
//
// A triple encodes the architecture, vendor, operating system, and ABI the
// output executable must run on. Validation is deterministic: the same triple
// always produces the same [Target] and the same compilation flags, so builds
// are reproducible across machines. Triples outside the supported set are
// rejected before any toolchain or compiler work starts.
package target
