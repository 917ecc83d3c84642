// Package project discovers buildable functions in a cargo project.
//
// The project root's Cargo.toml is parsed to enumerate binary crates: a
// plain package yields one function, a workspace yields one function per
// binary member crate. Each function corresponds to one deployable bundle.
package project
