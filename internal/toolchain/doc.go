// Package toolchain resolves and activates compiler toolchains.
//
// A [Session] owns toolchain activation for one build. Resolution checks the
// installer capability for the requested channel, optionally installs it, and
// records it as the session's active toolchain. Activation never mutates the
// machine-wide rustup default: compiler invocations receive the toolchain via
// RUSTUP_TOOLCHAIN env injection ([Active.Environ]), so two projects building
// concurrently on the same machine cannot interfere.
//
// Example usage:
//
//	session := toolchain.NewSession(&toolchain.Rustup{}, false)
//
//	active, err := session.Resolve(ctx, toolchain.Spec{Channel: "stable"})
//	if err != nil {
//	    return err
//	}
//
//	if err := session.EnsureTarget(ctx, "x86_64-unknown-linux-musl"); err != nil {
//	    return err
//	}
//
//	cmd.Env = append(os.Environ(), active.Environ()...)
package toolchain
