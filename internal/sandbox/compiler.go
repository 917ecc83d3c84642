package sandbox

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	goruntime "runtime"

	"github.com/crateship/crateship/internal/compile"
)

// Directory inside the sandbox the project is shipped to and compiled in.
const srcDir = "/src"

// Compiler backend that runs cargo inside a toolchain container.
//
// The toolchain image must provide cargo, rustup, and tar on PATH. Builds
// for a target architecture other than the host run the container under
// emulation, trading speed for not needing a cross-linker on the host.
type Compiler struct {
	Runtime *Runtime
	Image   string // Toolchain image reference.
	Keep    bool   // Keep the sandbox after the build, for debugging.
}

// Runs the compiler invocation inside a fresh sandbox.
//
// The project is streamed into the sandbox as a tar archive (minus build
// output and VCS metadata), cargo runs with its output streamed into the
// diagnostics, and on success the sandbox's target directory is streamed
// back out so artifact paths on the host match a native build. A non-zero
// cargo exit is reported through the exit code, not an error.
func (c *Compiler) Invoke(ctx context.Context, inv compile.Invocation, diags *compile.Diagnostics) (int, error) {
	platform := inv.Platform
	if platform == "" {
		platform = "linux/" + goruntime.GOARCH
	}

	b, err := c.Runtime.StartBuilder(ctx, c.Image, BuilderID(inv.Root), platform)
	if err != nil {
		return 0, err
	}
	if !c.Keep {
		defer b.Destroy(ctx)
	}

	if err := c.shipProject(ctx, b, inv.Root); err != nil {
		return 0, err
	}

	stdout := diags.Writer()
	stderr := diags.Writer()

	args := append([]string{"cargo"}, inv.Args...)
	code, err := b.Exec(ctx, args, inv.Env, srcDir, stdout, stderr)

	stdout.Close()
	stderr.Close()

	if err != nil {
		return 0, err
	}
	if code != 0 {
		return code, nil
	}

	if err := c.harvestTarget(ctx, b, inv.Root); err != nil {
		return 0, err
	}

	return 0, nil
}

// Streams the project tree into the sandbox's source directory.
func (c *Compiler) shipProject(ctx context.Context, b *Builder, root string) error {
	slog.Debug("shipping project into sandbox", "root", root)

	pr, pw := io.Pipe()

	go func() {
		tw := tar.NewWriter(pw)
		writeErr := writeDirToTar(tw, root, "src")
		tw.Close()
		pw.CloseWithError(writeErr)
	}()

	if err := b.CopyTo(ctx, pr, "/"); err != nil {
		return fmt.Errorf("%w: shipping project: %v", ErrSandbox, err)
	}
	return nil
}

// Streams the sandbox's build output back to the host target directory.
//
// After this, binaries sit at the same target/<triple>/<profile> paths a
// native build would produce, so the packaging stage is backend-agnostic.
func (c *Compiler) harvestTarget(ctx context.Context, b *Builder, root string) error {
	slog.Debug("harvesting build output from sandbox", "root", root)

	pr, pw := io.Pipe()

	errc := make(chan error, 1)
	go func() {
		errc <- b.CopyFrom(ctx, pw, srcDir+"/target")
		pw.Close()
	}()

	if err := extractTar(pr, root); err != nil {
		// Drain the producer before reporting.
		io.Copy(io.Discard, pr)
		<-errc
		return fmt.Errorf("%w: harvesting output: %v", ErrSandbox, err)
	}

	if err := <-errc; err != nil {
		return fmt.Errorf("%w: harvesting output: %v", ErrSandbox, err)
	}
	return nil
}
