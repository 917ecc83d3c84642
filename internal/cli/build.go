package cli

import (
	"context"
	"runtime"

	"github.com/crateship/crateship/internal/compile"
	"github.com/crateship/crateship/internal/pipeline"
	"github.com/crateship/crateship/internal/sandbox"
	"github.com/crateship/crateship/internal/toolchain"
)

// Represents the 'crateship build' command.
type BuildCmd struct {
	Target      string   `short:"t" help:"Target triple to compile for." env:"CRATESHIP_TARGET" default:"x86_64-unknown-linux-gnu"`
	Profile     string   `short:"p" help:"Build profile." enum:"debug,release" default:"release"`
	Jobs        int      `short:"j" help:"Parallel compilation job bound. 0 uses the CPU count." env:"CRATESHIP_JOBS" default:"0"`
	Root        string   `short:"C" help:"Project root directory." type:"existingdir" default:"."`
	Output      string   `short:"o" help:"Bundle output directory. Defaults to target/lambda under the project root." placeholder:"DIR"`
	Function    []string `short:"f" help:"Function to build and package. Repeatable; defaults to every binary crate."`
	Toolchain   string   `help:"Toolchain channel to build with." env:"CRATESHIP_TOOLCHAIN" default:"stable"`
	AutoInstall bool     `help:"Install the toolchain when missing instead of failing." env:"CRATESHIP_AUTO_INSTALL"`

	Sandbox             string `help:"Run the compiler inside a containerd-managed toolchain image instead of on the host." placeholder:"IMAGE"`
	ContainerdAddress   string `help:"Containerd socket address for sandboxed builds." default:"${containerd_address}"`
	ContainerdNamespace string `help:"Containerd namespace for sandboxed builds." default:"${containerd_namespace}"`
}

// Executes the build command.
//
// Assembles the toolchain session and compiler backend from the flags, then
// runs the pipeline. Stage failures are returned as-is so main can map them
// to stage-specific exit codes.
func (c *BuildCmd) Run(ctx context.Context) error {
	jobs := c.Jobs
	if jobs == 0 {
		jobs = runtime.NumCPU()
	}

	session, compiler, cleanup, err := c.backend()
	if err != nil {
		return err
	}
	defer cleanup()

	p := pipeline.New(session, compiler)

	_, err = p.Run(ctx, pipeline.Request{
		Triple:    c.Target,
		Profile:   c.Profile,
		Jobs:      jobs,
		Root:      c.Root,
		Output:    c.Output,
		Toolchain: toolchain.Spec{Channel: c.Toolchain, Required: true},
		Functions: c.Function,
	})
	return err
}

// Builds the toolchain session and compiler for the selected backend.
//
// The host backend uses rustup and cargo from PATH. The sandbox backend
// treats the image as providing the toolchain, so the session resolves
// against a preinstalled installer and no host rustup is required.
func (c *BuildCmd) backend() (*toolchain.Session, compile.Compiler, func(), error) {
	if c.Sandbox == "" {
		session := toolchain.NewSession(&toolchain.Rustup{}, c.AutoInstall)
		return session, &compile.Cargo{}, func() {}, nil
	}

	rt, err := sandbox.New(c.ContainerdAddress, c.ContainerdNamespace)
	if err != nil {
		return nil, nil, nil, err
	}

	session := toolchain.NewSession(toolchain.Preinstalled{}, false)
	compiler := &sandbox.Compiler{Runtime: rt, Image: c.Sandbox}
	return session, compiler, func() { rt.Close() }, nil
}
