package compile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/crateship/crateship/internal/project"
	"github.com/crateship/crateship/internal/target"
	"github.com/crateship/crateship/internal/toolchain"
)

// Build profile selecting optimization and debug settings.
type Profile string

const (
	Debug   Profile = "debug"
	Release Profile = "release"
)

// Reports whether the profile is one of the known values.
func (p Profile) Valid() bool {
	return p == Debug || p == Release
}

// Returns the directory name cargo uses for the profile's output.
func (p Profile) Dir() string {
	return string(p)
}

// A fully assembled compiler invocation.
//
// The invocation is backend-agnostic: the host backend runs it as a child
// process, the sandbox backend runs it inside a toolchain container.
type Invocation struct {
	Root     string   // Project root; the compiler's working directory.
	Args     []string // Compiler arguments, not including the binary name.
	Env      []string // Extra environment entries ("KEY=value").
	Platform string   // OCI platform hint for sandboxed backends.
}

// External compiler capability.
//
// Invoke runs the compiler and returns its exit code. A non-zero exit code
// is not an error: compiler failures are reported through the code and the
// diagnostics, while an error means the compiler could not be run at all.
type Compiler interface {
	Invoke(ctx context.Context, inv Invocation, diags *Diagnostics) (exitCode int, err error)
}

// Inputs for one compilation.
type Request struct {
	Root      string             // Project root.
	Target    target.Target      // Validated output target.
	Profile   Profile            // Build profile.
	Jobs      int                // Parallel compilation unit bound, >= 1.
	Toolchain *toolchain.Active  // Session-scoped toolchain.
	Functions []project.Function // Binaries to produce.
}

// One produced binary.
type Binary struct {
	Function string // Function name.
	Path     string // Absolute path to the executable.
}

// Outcome of a compilation.
//
// Binaries is populated iff Success is true; on failure the diagnostics
// carry the compiler's output verbatim.
type Result struct {
	Success     bool
	ExitCode    int
	Binaries    []Binary
	Diagnostics *Diagnostics
	Duration    time.Duration
}

// Runs compilations against a compiler backend.
type Runner struct {
	Compiler Compiler
	Stream   func() *Diagnostics // Diagnostics factory. Nil mirrors to stderr.
}

// Compiles the requested functions.
//
// The compiler runs once for the whole workspace with parallelism capped at
// req.Jobs; cargo schedules individual compilation units within that bound.
// Diagnostics are streamed as they are produced. On compiler failure the
// result reports Success false with no binaries; the failure is not retried
// since compiler errors are deterministic for the same inputs. On success
// every expected binary is verified to exist on disk.
func (r *Runner) Compile(ctx context.Context, req Request) (*Result, error) {
	diags := r.newDiagnostics()
	start := time.Now()

	inv := invocation(req)
	slog.Info("compiling",
		"target", req.Target.Triple,
		"profile", req.Profile,
		"jobs", req.Jobs,
		"functions", len(req.Functions),
	)
	slog.Debug("compiler invocation", "args", inv.Args, "env", inv.Env)

	exitCode, err := r.Compiler.Invoke(ctx, inv, diags)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompilerUnavailable, err)
	}

	result := &Result{
		ExitCode:    exitCode,
		Diagnostics: diags,
		Duration:    time.Since(start),
	}

	if exitCode != 0 {
		return result, nil
	}

	binaries, err := locateBinaries(req)
	if err != nil {
		return nil, err
	}

	result.Success = true
	result.Binaries = binaries
	return result, nil
}

func (r *Runner) newDiagnostics() *Diagnostics {
	if r.Stream != nil {
		return r.Stream()
	}
	return NewDiagnostics(os.Stderr)
}

// Assembles the compiler invocation for a request.
//
// The argument list is deterministic for identical requests. --locked keeps
// dependency resolution pinned to Cargo.lock so builds are reproducible
// across machines and CI.
func invocation(req Request) Invocation {
	args := []string{
		"build",
		"--target", req.Target.Triple,
		"--jobs", strconv.Itoa(req.Jobs),
		"--locked",
	}
	if req.Profile == Release {
		args = append(args, "--release")
	}
	for _, fn := range req.Functions {
		args = append(args, "--bin", fn.Name)
	}

	env := req.Toolchain.Environ()
	if flags := req.Target.Rustflags(); len(flags) > 0 {
		env = append(env, "RUSTFLAGS="+joinFlags(flags))
	}

	return Invocation{
		Root:     req.Root,
		Args:     args,
		Env:      env,
		Platform: req.Target.OCIPlatform(),
	}
}

// Verifies and returns the paths of the produced binaries.
func locateBinaries(req Request) ([]Binary, error) {
	dir := OutputDir(req.Root, req.Target, req.Profile)

	binaries := make([]Binary, 0, len(req.Functions))
	for _, fn := range req.Functions {
		path := filepath.Join(dir, fn.Name)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoArtifact, path)
		}
		binaries = append(binaries, Binary{Function: fn.Name, Path: path})
	}
	return binaries, nil
}

// Returns the directory cargo writes binaries to for a target and profile.
func OutputDir(root string, t target.Target, p Profile) string {
	return filepath.Join(root, "target", t.Triple, p.Dir())
}

func joinFlags(flags []string) string {
	s := ""
	for i, f := range flags {
		if i > 0 {
			s += " "
		}
		s += f
	}
	return s
}
