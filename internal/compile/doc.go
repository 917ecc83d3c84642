// Package compile runs the compiler against a project for a resolved
// toolchain and target.
//
// The compiler is an external capability behind the [Compiler] interface:
// the default backend runs cargo on the host, the sandbox package provides a
// containerized backend, and tests substitute fakes. Parallelism is bounded
// by the request's job limit, which caps concurrent compilation units rather
// than wall-clock time.
//
// Diagnostics are streamed line by line into an ordered, append-only
// [Diagnostics] record as the compiler produces them, so long builds remain
// observable without buffering everything first. A non-zero compiler exit
// produces a failed [Result] carrying the full diagnostic stream and no
// binary paths; it is never retried, because compiler errors are
// deterministic for the same inputs.
package compile
