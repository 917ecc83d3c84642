// Package sandbox runs compiler invocations inside containerd-managed
// toolchain containers.
//
// A [Runtime] connects to a containerd daemon. For each build it resolves or
// pulls the toolchain image for the target's platform, creates a [Builder]
// container with an overlayfs snapshot, and starts a long-running task that
// exec calls attach to. The project is streamed in as a tar archive, cargo
// runs inside with its output streamed back to the diagnostics, and the
// build output is streamed out so artifact paths match a native build.
// Sandboxes are destroyed when the build finishes.
//
// This backend exists for hosts without a cross toolchain: the container
// carries the compiler and linker for the target, at the cost of requiring
// a containerd socket (and QEMU / binfmt_misc for foreign architectures).
//
// Example usage:
//
//	rt, err := sandbox.New(sandbox.DefaultAddress, sandbox.DefaultNamespace)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	compiler := &sandbox.Compiler{Runtime: rt, Image: "docker.io/library/rust:1.78"}
//	code, err := compiler.Invoke(ctx, inv, diags)
package sandbox
