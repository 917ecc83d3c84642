package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crateship/crateship/internal/bundle"
	"github.com/crateship/crateship/internal/compile"
	"github.com/crateship/crateship/internal/paths"
	"github.com/crateship/crateship/internal/project"
	"github.com/crateship/crateship/internal/target"
	"github.com/crateship/crateship/internal/toolchain"
)

// Inputs for one pipeline run. Constructed once per invocation and not
// modified afterwards.
type Request struct {
	Triple    string         // Target triple, validated during the config stage.
	Profile   string         // "debug" or "release".
	Jobs      int            // Parallel compilation unit bound, >= 1.
	Root      string         // Project root directory.
	Output    string         // Bundle output directory. Empty uses the default under Root.
	Toolchain toolchain.Spec // Toolchain to resolve before compiling.
	Functions []string       // Function names to build. Empty builds all.
}

// Outcome of a successful pipeline run.
type Report struct {
	Target   target.Target
	Profile  compile.Profile
	Duration time.Duration
	Bundles  []*bundle.Bundle
}

// Sequences the build stages: resolve toolchain, compile, package.
//
// Stages run sequentially; the only internal parallelism lives inside the
// compile stage (compiler job bound) and the packaging of independent
// function bundles. A failure at any stage halts the pipeline immediately.
type Pipeline struct {
	session  *toolchain.Session
	compiler compile.Compiler
	stream   func() *compile.Diagnostics

	mu    sync.Mutex
	state State
}

// Creates a pipeline using the given toolchain session and compiler backend.
func New(session *toolchain.Session, compiler compile.Compiler) *Pipeline {
	return &Pipeline{
		session:  session,
		compiler: compiler,
		state:    StateInit,
	}
}

// Overrides the diagnostics destination. Used by tests to capture the
// compiler stream.
func (p *Pipeline) SetStream(stream func() *compile.Diagnostics) {
	p.stream = stream
}

// Returns the pipeline's current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Runs the pipeline to completion.
//
// The request is validated first; validation failures are config-stage
// errors and nothing is invoked. Cancellation is checked between stages, and
// the context is propagated into the compiler so in-flight work is killed.
// No bundle is written unless compilation fully succeeded.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()

	tgt, profile, functions, err := p.validate(req)
	if err != nil {
		return nil, p.fail(StageConfig, err)
	}

	active, err := p.resolveToolchain(ctx, req.Toolchain, tgt)
	if err != nil {
		return nil, p.fail(StageToolchain, err)
	}
	if err := p.advanceTo(StateToolchainResolved); err != nil {
		return nil, p.fail(StageToolchain, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, p.fail(StageCompile, err)
	}

	result, err := p.compile(ctx, req, tgt, profile, active, functions)
	if err != nil {
		return nil, p.fail(StageCompile, err)
	}
	if err := p.advanceTo(StateCompiled); err != nil {
		return nil, p.fail(StageCompile, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, p.fail(StagePackage, err)
	}

	bundles, err := p.packageAll(ctx, req, result.Binaries)
	if err != nil {
		return nil, p.fail(StagePackage, err)
	}
	if err := p.advanceTo(StatePackaged); err != nil {
		return nil, p.fail(StagePackage, err)
	}

	if err := p.advanceTo(StateDone); err != nil {
		return nil, p.fail(StagePackage, err)
	}

	report := &Report{
		Target:   tgt,
		Profile:  profile,
		Duration: time.Since(start),
		Bundles:  bundles,
	}

	slog.Info("build complete",
		"target", tgt.Triple,
		"profile", profile,
		"bundles", len(bundles),
		"duration", report.Duration.Round(time.Millisecond),
	)
	for _, b := range bundles {
		slog.Info("bundle", "path", b.Path, "digest", b.Digest)
	}

	return report, nil
}

// Validates the request and loads the workspace.
//
// All config problems surface here, before any toolchain or compiler work.
func (p *Pipeline) validate(req Request) (target.Target, compile.Profile, []project.Function, error) {
	tgt, err := target.Validate(req.Triple)
	if err != nil {
		return target.Target{}, "", nil, err
	}

	profile := compile.Profile(req.Profile)
	if !profile.Valid() {
		return target.Target{}, "", nil, fmt.Errorf("%w: %q", ErrInvalidProfile, req.Profile)
	}

	if req.Jobs < 1 {
		return target.Target{}, "", nil, fmt.Errorf("%w: %d", ErrInvalidJobs, req.Jobs)
	}

	if req.Toolchain.Channel == "" {
		return target.Target{}, "", nil, ErrNoToolchain
	}

	ws, err := project.Load(req.Root)
	if err != nil {
		return target.Target{}, "", nil, err
	}

	functions, err := ws.Select(req.Functions)
	if err != nil {
		return target.Target{}, "", nil, err
	}

	return tgt, profile, functions, nil
}

// Resolves and activates the toolchain and ensures the target stdlib.
func (p *Pipeline) resolveToolchain(ctx context.Context, spec toolchain.Spec, tgt target.Target) (*toolchain.Active, error) {
	active, err := p.session.Resolve(ctx, spec)
	if err != nil {
		return nil, err
	}
	if err := p.session.EnsureTarget(ctx, tgt.Triple); err != nil {
		return nil, err
	}
	return active, nil
}

// Runs the compile stage and maps compiler failure to an error.
func (p *Pipeline) compile(ctx context.Context, req Request, tgt target.Target, profile compile.Profile, active *toolchain.Active, functions []project.Function) (*compile.Result, error) {
	runner := &compile.Runner{Compiler: p.compiler, Stream: p.stream}

	result, err := runner.Compile(ctx, compile.Request{
		Root:      req.Root,
		Target:    tgt,
		Profile:   profile,
		Jobs:      req.Jobs,
		Toolchain: active,
		Functions: functions,
	})
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: compiler exited with code %d", ErrCompileFailed, result.ExitCode)
	}
	return result, nil
}

// Packages each compiled binary into its own bundle.
//
// Bundles are independent, so packaging runs concurrently bounded by the
// request's job limit. Any failure aborts the group; a bundle directory is
// never left with a partially written archive because writes are atomic.
func (p *Pipeline) packageAll(ctx context.Context, req Request, binaries []compile.Binary) ([]*bundle.Bundle, error) {
	output := req.Output
	if output == "" {
		output = paths.DefaultOutput(req.Root)
	}

	bundles := make([]*bundle.Bundle, len(binaries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(req.Jobs)

	for i, bin := range binaries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := bundle.Package(bin.Path, filepath.Join(output, bin.Function+".zip"))
			if err != nil {
				return err
			}
			bundles[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundles, nil
}

// Moves the pipeline forward one state.
func (p *Pipeline) advanceTo(to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := advance(p.state, to)
	if err != nil {
		return err
	}
	p.state = next
	return nil
}

// Records the failure and wraps the error with its stage.
func (p *Pipeline) fail(stage Stage, err error) error {
	p.mu.Lock()
	p.state = StateFailed
	p.mu.Unlock()

	slog.Error("build failed", "stage", string(stage), "error", err)
	return &StageError{Stage: stage, Err: err}
}
