// Package pipeline sequences a release build end to end.
//
// A [Pipeline] advances through a fixed set of states: Init,
// ToolchainResolved, Compiled, Packaged, Done, with a terminal Failed state
// reachable from any of them. Each stage delegates to its component package
// (toolchain, compile, bundle) and the first failure halts the run,
// reporting the failing stage and the underlying error. There are no
// automatic retries: the caller decides whether rerunning the whole
// pipeline makes sense.
//
// Cancellation is cooperative. The context is checked between stages and
// propagated into the compiler backend so in-flight compilation is killed;
// bundles are written last and atomically, so a cancelled run never leaves
// a partial artifact that looks complete.
//
// Example usage:
//
//	session := toolchain.NewSession(&toolchain.Rustup{}, false)
//	p := pipeline.New(session, &compile.Cargo{})
//
//	report, err := p.Run(ctx, pipeline.Request{
//	    Triple:    "x86_64-unknown-linux-musl",
//	    Profile:   "release",
//	    Jobs:      4,
//	    Root:      ".",
//	    Toolchain: toolchain.Spec{Channel: "stable"},
//	})
//	if err != nil {
//	    stage, _ := pipeline.FailedStage(err)
//	    // map stage to an exit code
//	}
package pipeline
